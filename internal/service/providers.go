package service

import (
	"context"
	"livekaraoke/internal/model"
)

// IdentityProvider resolves a user id to a profile and DJ entitlement
type IdentityProvider interface {
	ResolveUser(ctx context.Context, userID string) (*model.UserProfile, error)
}

// GeoProvider measures distances and locates venues
type GeoProvider interface {
	Distance(a, b model.Coordinates) (float64, error)
	VenueCoordinates(ctx context.Context, venueID string) (*model.Venue, error)
}

// CosmeticProvider looks up avatar and microphone display metadata
type CosmeticProvider interface {
	Lookup(ctx context.Context, kind model.CosmeticKind, id string) (*model.Cosmetic, error)
}
