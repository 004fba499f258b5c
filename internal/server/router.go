// Package server assembles stores, services and handlers into the HTTP API.
package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ayush/event-registration/backend/internal/auth"
	"github.com/ayush/event-registration/backend/internal/config"
	"github.com/ayush/event-registration/backend/internal/events"
	"github.com/ayush/event-registration/backend/internal/logging"
	"github.com/ayush/event-registration/backend/internal/middleware"
	"github.com/ayush/event-registration/backend/internal/registrations"
	"github.com/ayush/event-registration/backend/internal/respond"
	"github.com/ayush/event-registration/backend/internal/users"
)

// UserStore is everything the API needs from user persistence.
type UserStore interface {
	auth.UserStore
	users.Store
}

// Deps are the collaborators New wires together. Locker and Hasher are
// optional.
type Deps struct {
	Users         UserStore
	Events        events.EventStore
	Registrations registrations.Store
	Files         events.FileStore
	Locker        registrations.Locker
	Hasher        auth.Hasher
	Logger        logging.Logger
}

// New builds the full handler: request id, real ip, access log, panic
// recovery, CORS, authentication gate, role authorizer, then the routes.
func New(cfg *config.Config, d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	hasher := d.Hasher
	if hasher == nil {
		hasher = auth.NewBcryptHasher(0)
	}
	base := "/" + strings.Trim(cfg.APIBasePath, "/")
	if base == "/" {
		base = ""
	}

	tokens := auth.NewTokenCodec([]byte(cfg.JWTSecret), cfg.TokenTTL, cfg.TokenIssuer)
	authSvc := auth.NewService(d.Users, hasher, tokens, logger)

	var directory middleware.Directory
	if cfg.RecheckUser {
		directory = d.Users
	}
	gate := middleware.NewGate(tokens, directory, logger)
	policy := auth.NewPolicy(base)

	authH := auth.NewHandler(authSvc, logger)
	usersH := users.NewHandler(users.NewService(d.Users, authSvc, hasher, logger), logger)
	eventsH := events.NewHandler(d.Events, d.Files, base+"/events", logger)
	ledger := registrations.NewLedger(d.Registrations, d.Events, d.Users, d.Locker, logger)
	regsH := registrations.NewHandler(ledger, base+"/events", logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(gate.Authenticate)
	r.Use(middleware.Authorize(policy, logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route(base+"/public", func(r chi.Router) {
		r.Get("/check", authH.Check)
		r.Post("/login", authH.Login)
		r.Post("/create-user", authH.CreateUser)
		r.Post("/register-admin", authH.RegisterAdmin)
	})

	r.Route(base+"/user", func(r chi.Router) {
		r.Get("/", usersH.Me)
		r.Put("/update", usersH.UpdateMe)
		r.Delete("/delete", usersH.DeleteMe)
	})

	r.Route(base+"/events", func(r chi.Router) {
		r.Get("/", eventsH.List)
		r.Get("/public", eventsH.List)
		r.Get("/filter/location", eventsH.FilterByLocation)
		r.Get("/search", eventsH.Search)
		r.Get("/{id}", eventsH.Get)
		r.Get("/{id}/image", eventsH.DownloadImage)
	})

	r.Route(base+"/register", func(r chi.Router) {
		r.Post("/{eventId}", regsH.Register)
		r.Delete("/{registrationId}", regsH.Cancel)
		r.Get("/my-registrations", regsH.Mine)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/users", usersH.List)
		r.Post("/adduser", usersH.Add)
		r.Put("/updateuser/{id}", usersH.Update)
		r.Delete("/deleteuser/{id}", usersH.Delete)

		r.Get("/events", eventsH.List)
		r.Post("/events", eventsH.Create)
		r.Put("/events/{id}", eventsH.Update)
		r.Delete("/events/{id}", eventsH.Delete)
		r.Put("/events/{id}/image", eventsH.UploadImage)

		r.Get("/registrations", regsH.All)
		r.Get("/registrations/pending", regsH.Pending)
		r.Put("/registrations/accept/{id}", regsH.Accept)
		r.Put("/registrations/reject/{id}", regsH.Reject)
	})

	return r
}
