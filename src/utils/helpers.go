package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

func Sha256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// GenerateJWT issues a signed token for a user. Used by tooling and tests;
// the auth middleware only verifies.
func GenerateJWT(email, role string, sub string, ttl time.Duration) (string, error) {
	secretKey := os.Getenv("JWT_SECRET")
	token := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"username": email,
		"role":     role,
		"sub":      sub,
		"iss":      "carpool",
		"exp":      time.Now().Add(ttl).Unix(),
		"iat":      time.Now().Unix(),
	})
	return token.SignedString([]byte(secretKey))
}
