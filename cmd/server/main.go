package main

import (
	"context"
	"errors"
	"livekaraoke/internal/cache"
	"livekaraoke/internal/config"
	"livekaraoke/internal/repository"
	"livekaraoke/internal/service"
	"livekaraoke/internal/show"
	"livekaraoke/internal/transport/rest"
	"livekaraoke/internal/transport/ws"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// @title Live Karaoke API
// @version 1.0
// @description Live karaoke show coordinator: admission, singer rotation and chat
// @host localhost:8080
// @BasePath /v1
func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Error("failed to connect to mongodb", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Error("failed to ping mongodb", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("connected to mongodb", slog.String("database", cfg.Mongo.Database))

	db := mongoClient.Database(cfg.Mongo.Database)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Error("failed to ping redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("connected to redis", slog.String("addr", cfg.Redis.Addr))

	// Initialize WebSocket hub
	wsHub := ws.NewHub(log)
	defer wsHub.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepo(db)
	venueRepo := repository.NewVenueRepo(db)

	// Initialize caches
	userCache := cache.NewUserCache(rdb, cfg.Redis.CacheTTL)
	venueCache := cache.NewVenueCache(rdb, cfg.Redis.CacheTTL)
	cosmeticCache := cache.NewCosmeticCache(rdb)

	// Initialize services
	clock := show.SystemClock{}
	identitySvc := service.NewIdentityService(userRepo, userCache, log)
	geoSvc := service.NewGeoService(venueRepo, venueCache, log)
	cosmeticSvc := service.NewCosmeticService(cosmeticCache)
	authSvc := service.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, identitySvc)
	announcer := service.NewAnnouncer(clock, log)

	opts := service.ShowOptions{
		ProximityRadiusMeters: cfg.Live.ProximityRadiusMeters,
		DefaultShowDuration:   cfg.Live.DefaultShowDuration,
		ChatHistoryCap:        cfg.Live.ChatHistoryCap,
		AnnouncementSeconds:   cfg.Live.AnnouncementSeconds,
	}
	registry := show.NewMemoryRegistry(cfg.Live.IdleGrace)
	showSvc := service.NewShowService(registry, identitySvc, geoSvc, cosmeticSvc, announcer, clock, opts, log)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	showSvc.SetBroadcaster(wsHub)

	janitor := show.NewJanitor(registry, clock, showSvc, log, cfg.Live.SweepInterval, show.DefaultStartInterval)

	router := rest.NewRouter(&rest.Container{
		AuthService:          authSvc,
		ShowService:          showSvc,
		WSHub:                wsHub,
		AllowProximityBypass: cfg.Live.AllowProximityBypass,
		CORSAllowedOrigins:   cfg.HTTP.CORSAllowedOrigins,
		Log:                  log,
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	log.Info("live show options", slog.String("options", opts.String()), slog.Bool("proximity_bypass", cfg.Live.AllowProximityBypass))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", slog.String("addr", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		announcer.Start()
		janitor.Start(gctx)
		<-gctx.Done()

		log.Info("shutting down")
		janitor.Stop()
		announcer.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("server exited")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
