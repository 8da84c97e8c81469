package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atwonio16/noshowdentalclinic/internal/http/handlers"
	httpmiddleware "github.com/atwonio16/noshowdentalclinic/internal/http/middleware"
	"github.com/atwonio16/noshowdentalclinic/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger           *logging.Logger
	TokenActions     *handlers.TokenActionHandler
	CSVImport        *handlers.CSVImportHandler
	Dashboard        *handlers.DashboardHandler
	MetricsHandler   http.Handler
	ManagerJWTSecret string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints: health, metrics and the patient link pages.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok": true}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.TokenActions != nil {
			public.Get("/c/{token}", cfg.TokenActions.Confirm)
			public.Get("/x/{token}", cfg.TokenActions.Cancel)
		}
	})

	// Staff endpoints behind the manager JWT.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.ManagerJWT(cfg.ManagerJWTSecret))
		admin.Route("/clinics/{clinicID}", func(clinicRoutes chi.Router) {
			if cfg.CSVImport != nil {
				clinicRoutes.Post("/import", cfg.CSVImport.Import)
			}
			if cfg.Dashboard != nil {
				clinicRoutes.Get("/dashboard", cfg.Dashboard.Summary)
				clinicRoutes.Get("/appointments", cfg.Dashboard.Appointments)
				clinicRoutes.Put("/settings", cfg.Dashboard.UpdateSettings)
			}
		})
	})

	return r
}
