package repository

import (
	"context"
	"livekaraoke/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VenueRepo is the venue directory
type VenueRepo interface {
	GetByID(ctx context.Context, id string) (*model.Venue, error)
	GetAll(ctx context.Context) ([]*model.Venue, error)
	Upsert(ctx context.Context, venue *model.Venue) error
}

type venueRepo struct {
	collection *mongo.Collection
}

// NewVenueRepo creates a new venue repository
func NewVenueRepo(db *mongo.Database) VenueRepo {
	return &venueRepo{
		collection: db.Collection("venues"),
	}
}

func (r *venueRepo) GetByID(ctx context.Context, id string) (*model.Venue, error) {
	var venue model.Venue
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&venue)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &venue, nil
}

func (r *venueRepo) GetAll(ctx context.Context) ([]*model.Venue, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var venues []*model.Venue
	if err = cursor.All(ctx, &venues); err != nil {
		return nil, err
	}
	return venues, nil
}

func (r *venueRepo) Upsert(ctx context.Context, venue *model.Venue) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": venue.ID}, venue, opts)
	return err
}
