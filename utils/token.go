package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

type JwtCustomClaim struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	jwt.StandardClaims
}

// TokenIssuer signs and validates HS256 access tokens with a single secret.
type TokenIssuer struct {
	secret   []byte
	lifespan time.Duration
	now      func() time.Time
}

func NewTokenIssuer(secret string, lifespan time.Duration) *TokenIssuer {
	if lifespan <= 0 {
		lifespan = 8 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), lifespan: lifespan, now: time.Now}
}

// JwtGenerate returns the signed token and its expiry.
func (ti *TokenIssuer) JwtGenerate(userID int, username string) (string, time.Time, error) {
	if len(ti.secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is empty")
	}
	issuedAt := ti.now()
	expiresAt := issuedAt.Add(ti.lifespan)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, &JwtCustomClaim{
		ID:       userID,
		Username: username,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expiresAt.Unix(),
			IssuedAt:  issuedAt.Unix(),
		},
	})

	token, err := t.SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// JwtValidate parses the token and returns its claims; expired or tampered tokens fail.
func (ti *TokenIssuer) JwtValidate(token string) (*JwtCustomClaim, error) {
	parsed, err := jwt.ParseWithClaims(token, &JwtCustomClaim{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("there's a problem with the signing method")
		}
		return ti.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
