// Package auth issues and checks the HS256 access tokens returned by login.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/blobgate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the authenticated email next to the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

func GenerateToken(email string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Email: email,
	})

	return token.SignedString(secretKey)
}

// GetEmailFromToken validates tokenString and returns the email it was issued
// for. Expired tokens yield common.ErrTokenExpired, anything else that fails
// validation yields common.ErrInvalidToken.
func GetEmailFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Email == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Email, nil
}
