package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HS256 signs and verifies tokens with a shared secret, the way the admin
// API does. Used to stand up API fakes.
type HS256 struct {
	Secret []byte
}

// Sign serializes claims into a compact JWS.
func (h HS256) Sign(c Claims) (string, error) {
	if len(h.Secret) == 0 {
		return "", errors.New("jwtx: empty HS256 secret")
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	s, err := tok.SignedString(h.Secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return s, nil
}

// Verify checks the signature and the exp/nbf window and returns the claims.
func (h HS256) Verify(token string) (Claims, error) {
	var c Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return h.Secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Claims{}, ErrInvalidSig
	default:
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := c.ValidateExpiry(); err != nil {
		return Claims{}, err
	}
	return c, nil
}
