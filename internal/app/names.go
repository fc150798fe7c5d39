package app

import "math/rand"

const (
	nameLetters = "abcdefghijklmnopqrstuvwxyz"
	nameDigits  = "0123456789"
)

// generateName returns five distinct letters followed by three distinct
// digits, e.g. "hbqzt394".
func generateName(rnd *rand.Rand) string {
	name := make([]byte, 0, 8)
	name = appendDistinct(name, rnd, nameLetters, 5)
	name = appendDistinct(name, rnd, nameDigits, 3)
	return string(name)
}

func appendDistinct(dst []byte, rnd *rand.Rand, alphabet string, n int) []byte {
	for _, i := range rnd.Perm(len(alphabet))[:n] {
		dst = append(dst, alphabet[i])
	}
	return dst
}
