package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"livekaraoke/internal/model"
	"time"

	"github.com/redis/go-redis/v9"
)

// VenueCache caches venue records in front of the venue directory
type VenueCache interface {
	Get(ctx context.Context, venueID string) (*model.Venue, error)
	Set(ctx context.Context, venue *model.Venue) error
}

type venueCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewVenueCache creates a new venue cache. Venues rarely move, so the ttl is
// only there to pick up edits.
func NewVenueCache(client *redis.Client, ttl time.Duration) VenueCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &venueCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *venueCache) key(venueID string) string {
	return fmt.Sprintf("venue:%s", venueID)
}

func (c *venueCache) Get(ctx context.Context, venueID string) (*model.Venue, error) {
	data, err := c.client.Get(ctx, c.key(venueID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var venue model.Venue
	if err := json.Unmarshal([]byte(data), &venue); err != nil {
		return nil, err
	}
	return &venue, nil
}

func (c *venueCache) Set(ctx context.Context, venue *model.Venue) error {
	data, err := json.Marshal(venue)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(venue.ID), data, c.ttl).Err()
}
