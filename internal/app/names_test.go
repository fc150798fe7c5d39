package app

import (
	"math/rand"
	"testing"
	"unicode"
)

func TestGenerateName(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		name := generateName(rnd)
		if len(name) != 8 {
			t.Fatalf("expected 8 characters, got %q", name)
		}
		seen := map[rune]bool{}
		for j, r := range name {
			if seen[r] {
				t.Fatalf("repeated character in %q", name)
			}
			seen[r] = true
			if j < 5 && !unicode.IsLower(r) {
				t.Fatalf("expected letter at %d in %q", j, name)
			}
			if j >= 5 && !unicode.IsDigit(r) {
				t.Fatalf("expected digit at %d in %q", j, name)
			}
		}
	}
}
