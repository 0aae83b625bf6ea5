package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"roomchat/internal/config"
	"roomchat/internal/domain"
	"roomchat/internal/presence"
	"roomchat/internal/security"
	"roomchat/internal/service"
	"roomchat/internal/store/postgres"
	"roomchat/internal/store/sqlite"
	"roomchat/internal/ws"
)

// Repositories bundles the PersistenceGateway adapters for one database.
type Repositories struct {
	Accounts domain.AccountRepository
	Rooms    domain.RoomRepository
	Messages domain.MessageRepository
	Friends  domain.FriendRepository
}

// NewSQLiteRepositories wires the sqlite adapters.
func NewSQLiteRepositories(db *sql.DB) Repositories {
	return Repositories{
		Accounts: sqlite.NewAccountRepo(db),
		Rooms:    sqlite.NewRoomRepo(db),
		Messages: sqlite.NewMessageRepo(db),
		Friends:  sqlite.NewFriendRepo(db),
	}
}

// NewPostgresRepositories wires the postgres adapters.
func NewPostgresRepositories(db *sql.DB) Repositories {
	return Repositories{
		Accounts: postgres.NewAccountRepo(db),
		Rooms:    postgres.NewRoomRepo(db),
		Messages: postgres.NewMessageRepo(db),
		Friends:  postgres.NewFriendRepo(db),
	}
}

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(cfg *config.Config, repos Repositories, hub *ws.Hub, tokenSvc *security.TokenService, passwordHasher *security.PasswordHasher) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Debug {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	registry := presence.NewRegistry(repos.Accounts)
	authSvc := service.NewAuthService(repos.Accounts, tokenSvc, passwordHasher)
	roomSvc := service.NewRoomService(repos.Rooms, passwordHasher)
	friendSvc := service.NewFriendService(repos.Friends, repos.Accounts)
	coordinator := service.NewCoordinator(roomSvc, registry, repos.Messages, hub)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"roomchat API","version":"1.0.0"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, repos.Accounts))

			r.Post("/auth/logout", handleLogout(authSvc))
			r.Get("/auth/me", handleMe())

			// Rooms
			r.Route("/rooms", func(r chi.Router) {
				r.Get("/", handleListRooms(roomSvc))
				r.Post("/", handleCreateRoom(roomSvc))
				r.Post("/{roomID}/authorize", handleAuthorizeRoom(roomSvc))
			})

			// Friends
			r.Route("/friends", func(r chi.Router) {
				r.Get("/", handleListFriends(friendSvc))
				r.Post("/requests", handleSendFriendRequest(friendSvc))
				r.Get("/requests", handleListPendingRequests(friendSvc))
				r.Post("/requests/{requestID}/respond", handleRespondFriendRequest(friendSvc))
			})

			// Uploads (implementation in separate file)
			r.Mount("/uploads", UploadRoutes(cfg, coordinator))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, tokenSvc, coordinator, cfg.CORSOrigins))

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain and service sentinels to HTTP status codes. Unknown
// errors are treated as storage being unavailable.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusServiceUnavailable
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, service.ErrAlreadyFriends),
		errors.Is(err, service.ErrRequestAlreadySent):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, service.ErrWrongPassword),
		errors.Is(err, service.ErrNotJoined):
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
