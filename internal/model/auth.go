package model

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims are JWT claims binding a request to a user
type UserClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenRequest is the request body for issuing a user token
type TokenRequest struct {
	UserID string `json:"userId"`
}

// TokenResponse is returned after a token is issued
type TokenResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}
