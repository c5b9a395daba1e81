package service

import (
	"context"
	"fmt"
	"livekaraoke/internal/cache"
	"livekaraoke/internal/model"
	"livekaraoke/internal/repository"
	"livekaraoke/internal/show"
	"log/slog"
)

// IdentityService reads the user directory through a Redis cache
type IdentityService struct {
	repo  repository.UserRepo
	cache cache.UserCache
	log   *slog.Logger
}

// NewIdentityService creates a new identity service
func NewIdentityService(repo repository.UserRepo, userCache cache.UserCache, log *slog.Logger) *IdentityService {
	if log == nil {
		log = slog.Default()
	}
	return &IdentityService{
		repo:  repo,
		cache: userCache,
		log:   log,
	}
}

// ResolveUser returns the profile for userID or a NotFound error
func (s *IdentityService) ResolveUser(ctx context.Context, userID string) (*model.UserProfile, error) {
	log := s.log.With(slog.String("op", "service.ResolveUser"), slog.String("user_id", userID))

	if s.cache != nil {
		profile, err := s.cache.Get(ctx, userID)
		if err != nil {
			log.Warn("user cache read failed", slog.String("error", err.Error()))
		} else if profile != nil {
			return profile, nil
		}
	}

	profile, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if profile == nil {
		return nil, show.Errorf(show.ErrNotFound, "user %s not found", userID)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, profile); err != nil {
			log.Warn("user cache write failed", slog.String("error", err.Error()))
		}
	}
	return profile, nil
}
