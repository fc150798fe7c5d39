package auth

import (
	"context"
	"fmt"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// JWTResolver maps bearer tokens to host ids. Tokens are HS256 signed and
// carry the host id in the "sub" claim.
type JWTResolver struct {
	secret []byte
	now    func() time.Time
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret), now: time.Now}
}

// ResolveHost validates token and returns the host it was issued to.
func (r *JWTResolver) ResolveHost(_ context.Context, token string) (string, error) {
	parsed, err := jwt.Parse(token, r.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(r.now))
	if err != nil || !parsed.Valid {
		return "", domain.ErrInvalidHostToken
	}
	host, err := parsed.Claims.GetSubject()
	if err != nil || host == "" {
		return "", domain.ErrInvalidHostToken
	}
	return host, nil
}

// NewToken issues a token for host. A zero ttl yields a token without expiry.
func (r *JWTResolver) NewToken(host string, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  host,
		IssuedAt: jwt.NewNumericDate(r.now()),
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(r.now().Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("sign host token: %w", err)
	}
	return signed, nil
}

func (r *JWTResolver) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return r.secret, nil
}
