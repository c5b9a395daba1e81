package service

import (
	"context"
	"errors"
	"livekaraoke/internal/model"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrUnknownUser  = errors.New("unknown user")
)

// AuthService issues and validates caller identity tokens
type AuthService struct {
	jwtSecret []byte
	tokenTTL  time.Duration
	identity  IdentityProvider
}

// NewAuthService creates a new auth service
func NewAuthService(secret string, tokenTTL time.Duration, identity IdentityProvider) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		jwtSecret: []byte(secret),
		tokenTTL:  tokenTTL,
		identity:  identity,
	}
}

// IssueUserToken signs a token for a user the directory knows about
func (s *AuthService) IssueUserToken(ctx context.Context, userID string) (*model.TokenResponse, error) {
	if userID == "" {
		return nil, ErrUnknownUser
	}
	if s.identity != nil {
		if _, err := s.identity.ResolveUser(ctx, userID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := &model.UserClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.TokenResponse{
		Token:     tokenString,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
	}, nil
}

// ValidateUserToken validates a user JWT and returns claims
func (s *AuthService) ValidateUserToken(tokenString string) (*model.UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.UserClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
