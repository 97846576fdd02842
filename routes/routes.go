package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/leaddesk/app"
	"github.com/upb/leaddesk/handlers"
	"github.com/upb/leaddesk/middleware"
	"github.com/upb/leaddesk/utils"
	"go.uber.org/zap"
)

// Intake paths. /create-lead keeps existing embeds working.
const (
	IntakePath       = "/api/leads"
	LegacyIntakePath = "/create-lead"
)

// requestTimeout bounds a single request, verification and email included
const requestTimeout = 60 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	healthHandler := handlers.NewHealthHandler(deps.DB.DB, deps.Logger).
		WithCheck("verification", deps.VerificationConfigured)
	intakeHandler := handlers.NewIntakeHandler(deps.Intake, deps.Logger)

	return NewRouter(deps.Logger, deps.Config.CORS.MaxAge, healthHandler, intakeHandler)
}

// NewRouter builds the chi router over already constructed handlers
func NewRouter(logger *zap.Logger, corsMaxAge int, health *handlers.HealthHandler, intake *handlers.IntakeHandler) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.ClientIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	// Public intake, no authentication
	for _, path := range []string{IntakePath, LegacyIntakePath} {
		r.Group(func(r chi.Router) {
			r.Use(middleware.PublicCORS)
			r.Use(middleware.PublicPreflight(corsMaxAge))
			r.Post(path, intake.HandleCreateLead)
			r.Get(path, intake.HandleProbe)
			r.Head(path, intake.HandleProbe)
			r.Options(path, intake.HandleProbe)
		})
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteMethodNotAllowed(w)
	})

	return r
}
