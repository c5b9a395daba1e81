package service

import (
	"context"
	"fmt"
	"livekaraoke/internal/cache"
	"livekaraoke/internal/model"
	"livekaraoke/internal/repository"
	"livekaraoke/internal/show"
	"log/slog"
	"math"
)

// EarthRadiusMeters is the IUGG mean Earth radius
const EarthRadiusMeters = 6371008.8

// GeoService measures great-circle distances and resolves venues
type GeoService struct {
	repo  repository.VenueRepo
	cache cache.VenueCache
	log   *slog.Logger
}

// NewGeoService creates a new geo service
func NewGeoService(repo repository.VenueRepo, venueCache cache.VenueCache, log *slog.Logger) *GeoService {
	if log == nil {
		log = slog.Default()
	}
	return &GeoService{
		repo:  repo,
		cache: venueCache,
		log:   log,
	}
}

// Distance returns the haversine distance between a and b in meters
func (s *GeoService) Distance(a, b model.Coordinates) (float64, error) {
	return Haversine(a, b)
}

// Haversine returns the great-circle distance in meters
func Haversine(a, b model.Coordinates) (float64, error) {
	if err := validCoordinates(a); err != nil {
		return 0, err
	}
	if err := validCoordinates(b); err != nil {
		return 0, err
	}

	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, h)
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h)), nil
}

func validCoordinates(c model.Coordinates) error {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return show.Errorf(show.ErrBadRequest, "invalid coordinates (%v, %v)", c.Lat, c.Lng)
	}
	return nil
}

// VenueCoordinates looks up a venue, cache first
func (s *GeoService) VenueCoordinates(ctx context.Context, venueID string) (*model.Venue, error) {
	log := s.log.With(slog.String("op", "service.VenueCoordinates"), slog.String("venue_id", venueID))

	if s.cache != nil {
		venue, err := s.cache.Get(ctx, venueID)
		if err != nil {
			log.Warn("venue cache read failed", slog.String("error", err.Error()))
		} else if venue != nil {
			return venue, nil
		}
	}

	venue, err := s.repo.GetByID(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}
	if venue == nil {
		return nil, show.Errorf(show.ErrNotFound, "venue %s not found", venueID)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, venue); err != nil {
			log.Warn("venue cache write failed", slog.String("error", err.Error()))
		}
	}
	return venue, nil
}
