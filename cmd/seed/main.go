package main

import (
	"context"
	"fmt"
	"livekaraoke/internal/cache"
	"livekaraoke/internal/config"
	"livekaraoke/internal/model"
	"livekaraoke/internal/repository"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var users = []model.UserProfile{
	{ID: "user_dj_marisol", Name: "Marisol Vega", StageName: "DJ Mari", IsDJEntitled: true},
	{ID: "user_dj_theo", Name: "Theo Lindqvist", StageName: "Big T", IsDJEntitled: true},
	{ID: "user_sam", Name: "Sam Okafor", StageName: "Sammy Sings"},
	{ID: "user_priya", Name: "Priya Raman"},
	{ID: "user_jules", Name: "Jules Moreau", StageName: "Jules"},
}

var venues = []model.Venue{
	{ID: "venue_blue_note", Name: "The Blue Note Lounge", Address: "131 W 3rd St, New York, NY", Lat: 40.73082, Lng: -73.99994},
	{ID: "venue_echo", Name: "Echo Karaoke Bar", Address: "1822 Sunset Blvd, Los Angeles, CA", Lat: 34.07768, Lng: -118.26034},
	{ID: "venue_mission", Name: "Mission Mic Night", Address: "2565 Mission St, San Francisco, CA", Lat: 37.75681, Lng: -122.41881},
}

var cosmetics = []model.Cosmetic{
	{ID: "avatar_star", Kind: model.CosmeticAvatar, Name: "Rising Star", ImageURL: "/cosmetics/avatar/star.png", Rarity: "common"},
	{ID: "avatar_diva", Kind: model.CosmeticAvatar, Name: "Disco Diva", ImageURL: "/cosmetics/avatar/diva.png", Rarity: "rare"},
	{ID: "mic_gold", Kind: model.CosmeticMicrophone, Name: "Golden Mic", ImageURL: "/cosmetics/mic/gold.png", Rarity: "legendary"},
	{ID: "mic_neon", Kind: model.CosmeticMicrophone, Name: "Neon Mic", ImageURL: "/cosmetics/mic/neon.png", Rarity: "common"},
}

func main() {
	_ = godotenv.Load(".env")
	cfg := config.MustLoad()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.Mongo.Database)
	userRepo := repository.NewUserRepo(db)
	venueRepo := repository.NewVenueRepo(db)

	for i := range users {
		if err := userRepo.Upsert(ctx, &users[i]); err != nil {
			log.Fatalf("Failed to upsert user %s: %v", users[i].ID, err)
		}
	}
	for i := range venues {
		if err := venueRepo.Upsert(ctx, &venues[i]); err != nil {
			log.Fatalf("Failed to upsert venue %s: %v", venues[i].ID, err)
		}
	}

	all, err := venueRepo.GetAll(ctx)
	if err != nil {
		log.Fatalf("Failed to list venues: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer rdb.Close()

	cosmeticCache := cache.NewCosmeticCache(rdb)
	for i := range cosmetics {
		if err := cosmeticCache.Set(ctx, &cosmetics[i]); err != nil {
			log.Fatalf("Failed to store cosmetic %s: %v", cosmetics[i].ID, err)
		}
	}

	fmt.Printf("Seeded %d users, %d venues (%d in directory), %d cosmetics\n", len(users), len(venues), len(all), len(cosmetics))
}
