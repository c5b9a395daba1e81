package model

import "time"

// Coordinates is a WGS84 lat/lng pair
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Venue is the physical place a show runs at
type Venue struct {
	ID      string  `json:"id" bson:"_id"`
	Name    string  `json:"name" bson:"name"`
	Address string  `json:"address" bson:"address"`
	Lat     float64 `json:"lat" bson:"lat"`
	Lng     float64 `json:"lng" bson:"lng"`
}

// Coordinates returns the venue location
func (v *Venue) Coordinates() Coordinates {
	return Coordinates{Lat: v.Lat, Lng: v.Lng}
}

// Show is a point-in-time view of a live show session
type Show struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	Venue            *Venue    `json:"venue,omitempty"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	IsActive         bool      `json:"isActive"`
	DJID             string    `json:"djId,omitempty"`
	DJName           string    `json:"djName,omitempty"`
	CurrentSingerID  string    `json:"currentSingerId,omitempty"`
	ParticipantCount int       `json:"participantCount"`
	QueueLength      int       `json:"queueLength"`
	CreatedBy        string    `json:"createdBy"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// CreateShowRequest is the request body for creating a show
type CreateShowRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	DJID        string     `json:"djId,omitempty"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	VenueID     string     `json:"venueId,omitempty"`
}

// JoinShowRequest is the request body for joining a show
type JoinShowRequest struct {
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	AvatarID string   `json:"avatarId,omitempty"`
	MicID    string   `json:"micId,omitempty"`
}

// JoinShowResponse is returned when a user joins a show
type JoinShowResponse struct {
	Show          Show `json:"show"`
	Role          Role `json:"role"`
	QueuePosition *int `json:"queuePosition,omitempty"`
	Rejoined      bool `json:"rejoined"`
}

// NearbyShow is a show found by a proximity search
type NearbyShow struct {
	Show           Show    `json:"show"`
	DistanceMeters float64 `json:"distanceMeters"`
	Venue          *Venue  `json:"venue"`
}
