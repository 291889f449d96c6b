package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the identity claims carried by an access token.
// The "id" and "email" names match what existing clients decode.
type AccessClaims struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	TokenID   string    `json:"jti"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// jwtClaims is the JWT wire form of AccessClaims.
type jwtClaims struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
