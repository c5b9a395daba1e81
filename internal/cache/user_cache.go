package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"livekaraoke/internal/model"
	"time"

	"github.com/redis/go-redis/v9"
)

// UserCache caches user profiles in front of the user directory
type UserCache interface {
	Get(ctx context.Context, userID string) (*model.UserProfile, error)
	Set(ctx context.Context, profile *model.UserProfile) error
	Delete(ctx context.Context, userID string) error
}

type userCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewUserCache creates a new user cache
func NewUserCache(client *redis.Client, ttl time.Duration) UserCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &userCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *userCache) key(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

func (c *userCache) Get(ctx context.Context, userID string) (*model.UserProfile, error) {
	data, err := c.client.Get(ctx, c.key(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var profile model.UserProfile
	if err := json.Unmarshal([]byte(data), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *userCache) Set(ctx context.Context, profile *model.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(profile.ID), data, c.ttl).Err()
}

func (c *userCache) Delete(ctx context.Context, userID string) error {
	return c.client.Del(ctx, c.key(userID)).Err()
}
