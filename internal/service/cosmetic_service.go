package service

import (
	"context"
	"fmt"
	"livekaraoke/internal/cache"
	"livekaraoke/internal/model"
)

// CosmeticService resolves avatar and microphone ids to display metadata
type CosmeticService struct {
	cache cache.CosmeticCache
}

// NewCosmeticService creates a new cosmetic service
func NewCosmeticService(cosmeticCache cache.CosmeticCache) *CosmeticService {
	return &CosmeticService{cache: cosmeticCache}
}

// Lookup returns the item, or a bare item carrying only the id when the store
// has no metadata for it
func (s *CosmeticService) Lookup(ctx context.Context, kind model.CosmeticKind, id string) (*model.Cosmetic, error) {
	item, err := s.cache.Get(ctx, kind, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", kind, id, err)
	}
	if item == nil {
		return &model.Cosmetic{ID: id, Kind: kind}, nil
	}
	return item, nil
}
