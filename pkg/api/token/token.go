// Package token signs and validates the bearer tokens that scope API requests to a
// navigation session.
package token

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

// ErrInvalid is returned when a token is malformed, expired, or signed with another
// secret.
var ErrInvalid = errors.New("[token] - invalid token")

type Service struct {
	Secret     []byte
	Expiration time.Duration
}

// New signs a token issued to the session with the given key.
func (s *Service) New(session uuid.UUID) (string, error) {
	claims := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Issuer:    session.String(),
		ExpiresAt: time.Now().Add(s.Expiration).Unix(),
	})
	return claims.SignedString(s.Secret)
}

// Validate checks the token and returns the key of the session it was issued to.
func (s *Service) Validate(token string) (uuid.UUID, error) {
	claims := &jwt.StandardClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method %s", t.Header["alg"])
		}
		return s.Secret, nil
	})
	if err != nil {
		return uuid.Nil, errors.Mark(errors.Wrap(err, "[token] - failed to validate"), ErrInvalid)
	}
	key, err := uuid.Parse(claims.Issuer)
	if err != nil {
		return uuid.Nil, errors.Mark(errors.Wrap(err, "[token] - bad issuer"), ErrInvalid)
	}
	return key, nil
}
