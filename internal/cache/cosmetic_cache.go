package cache

import (
	"context"
	"fmt"
	"livekaraoke/internal/model"

	"github.com/redis/go-redis/v9"
)

// CosmeticCache reads avatar and microphone display metadata. Items live in
// Redis hashes with no expiry; the store owns them.
type CosmeticCache interface {
	Get(ctx context.Context, kind model.CosmeticKind, id string) (*model.Cosmetic, error)
	Set(ctx context.Context, item *model.Cosmetic) error
}

type cosmeticCache struct {
	client *redis.Client
}

// NewCosmeticCache creates a new cosmetic cache
func NewCosmeticCache(client *redis.Client) CosmeticCache {
	return &cosmeticCache{client: client}
}

func (c *cosmeticCache) key(kind model.CosmeticKind, id string) string {
	return fmt.Sprintf("cosmetic:%s:%s", kind, id)
}

func (c *cosmeticCache) Get(ctx context.Context, kind model.CosmeticKind, id string) (*model.Cosmetic, error) {
	fields, err := c.client.HGetAll(ctx, c.key(kind, id)).Result()
	if err != nil {
		return nil, err
	}
	// HGetAll returns an empty map for a missing key
	if len(fields) == 0 {
		return nil, nil
	}
	return &model.Cosmetic{
		ID:       id,
		Kind:     kind,
		Name:     fields["name"],
		ImageURL: fields["imageUrl"],
		Rarity:   fields["rarity"],
	}, nil
}

func (c *cosmeticCache) Set(ctx context.Context, item *model.Cosmetic) error {
	return c.client.HSet(ctx, c.key(item.Kind, item.ID),
		"name", item.Name,
		"imageUrl", item.ImageURL,
		"rarity", item.Rarity,
	).Err()
}
