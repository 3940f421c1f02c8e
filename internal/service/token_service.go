package service

import (
	"errors"
	"time"

	"contabil-webhook-gateway/internal/core/ports"
	"contabil-webhook-gateway/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
)

// jwtTokenService implements ports.TokenService with HS256-signed tokens for
// the admin API.
type jwtTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string

	now func() time.Time
}

// NewTokenService creates a JWT token service.
func NewTokenService(secret string, expiry time.Duration, issuer string) ports.TokenService {
	return &jwtTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
		now:    time.Now,
	}
}

func (s *jwtTokenService) Generate(subject string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(err)
	}
	return signed, expiresAt, nil
}

func (s *jwtTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil || !token.Valid {
		return nil, apperror.ErrInvalidToken()
	}
	return &ports.TokenClaims{Subject: claims.Subject}, nil
}
