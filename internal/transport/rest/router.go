package rest

import (
	_ "livekaraoke/internal/docs"
	"livekaraoke/internal/service"
	"livekaraoke/internal/transport/rest/handler"
	"livekaraoke/internal/transport/rest/middleware"
	"livekaraoke/internal/transport/ws"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/swaggo/swag"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService *service.AuthService
	ShowService *service.ShowService
	WSHub       *ws.Hub
	// AllowProximityBypass admits joins that send no location
	AllowProximityBypass bool
	CORSAllowedOrigins   string
	Log                  *slog.Logger
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	showHandler := handler.NewShowHandler(c.ShowService, c.AllowProximityBypass)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.ShowService, c.AllowProximityBypass, c.Log)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSAllowedOrigins))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	r.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := swag.ReadDoc()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(doc))
	}).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/token", authHandler.IssueToken).Methods("POST", "OPTIONS")

	// WebSocket route (token in query param or authenticate message)
	v1.HandleFunc("/ws", wsHandler.ServeWS).Methods("GET")

	// User routes (require user auth)
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/shows", showHandler.Create).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/shows", showHandler.List).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/shows/nearby", showHandler.Nearby).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/shows/{id}", showHandler.Get).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/shows/{id}/participants", showHandler.Participants).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/shows/{id}/join", showHandler.Join).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/shows/{id}/leave", showHandler.Leave).Methods("POST", "OPTIONS")

	// Queue routes
	userRoutes.HandleFunc("/shows/{id}/queue", showHandler.Queue).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/shows/{id}/queue", showHandler.AddToQueue).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/shows/{id}/queue/order", showHandler.ReorderQueue).Methods("PUT", "OPTIONS")
	userRoutes.HandleFunc("/shows/{id}/queue/current", showHandler.SetCurrentSinger).Methods("PUT", "OPTIONS")
	userRoutes.HandleFunc("/shows/{id}/queue/{userId}", showHandler.RemoveFromQueue).Methods("DELETE", "OPTIONS")
	userRoutes.HandleFunc("/shows/{id}/queue/{userId}/song", showHandler.SetSongTiming).Methods("PUT", "OPTIONS")

	// Chat routes
	userRoutes.HandleFunc("/shows/{id}/chat", showHandler.ChatHistory).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/shows/{id}/chat", showHandler.SendChat).Methods("POST", "OPTIONS")
	userRoutes.HandleFunc("/shows/{id}/announcements", showHandler.Announcements).Methods("GET", "OPTIONS")
	userRoutes.HandleFunc("/shows/{id}/announcements", showHandler.SendAnnouncement).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
