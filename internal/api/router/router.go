package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-booking-agent/internal/conversation"
	"github.com/wolfman30/clinic-booking-agent/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-booking-agent/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-agent/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	ProvidersHandler    *handlers.ProvidersHandler
	ToolsHandler        *handlers.ToolsHandler
	HealthHandler       *handlers.HealthHandler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
	// UserAuthSecret enables HMAC bearer tokens on the API routes; empty trusts X-User-ID.
	UserAuthSecret string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	// Public endpoints
	r.Group(func(public chi.Router) {
		health := cfg.HealthHandler
		if health == nil {
			health = handlers.NewHealthHandler(nil, cfg.Logger)
		}
		public.Get("/health", health.Health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/v1", func(api chi.Router) {
		if cfg.ProvidersHandler != nil {
			api.Route("/providers", func(p chi.Router) {
				p.Get("/", cfg.ProvidersHandler.List)
				p.Get("/{providerID}", cfg.ProvidersHandler.Get)
				p.Get("/{providerID}/availability", cfg.ProvidersHandler.Availability)
			})
		}
		if cfg.ToolsHandler != nil {
			api.Get("/tools", cfg.ToolsHandler.List)
			api.With(httpmiddleware.UserIdentity(cfg.UserAuthSecret)).
				Post("/tools/{toolName}", cfg.ToolsHandler.Invoke)
		}
		if cfg.ConversationHandler != nil {
			api.With(httpmiddleware.UserIdentity(cfg.UserAuthSecret)).
				Post("/agent/messages", cfg.ConversationHandler.Message)
		}
	})

	return r
}
