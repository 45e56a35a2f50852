package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"sales-dashboard/internal/config"
	"sales-dashboard/internal/export"
	"sales-dashboard/internal/handlers"
	"sales-dashboard/internal/middleware"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
	"sales-dashboard/internal/session"
)

// Deps are the long-lived services the routes are built on.
type Deps struct {
	Config      *config.Config
	Analytics   *services.Analytics
	Sessions    *session.Store
	Exporter    *export.Exporter
	Metrics     *observability.Metrics
	RateLimiter *middleware.RateLimiter
	Logger      *slog.Logger
}

type Server struct {
	router         chi.Router
	logger         *slog.Logger
	apiHandlers    *handlers.APIHandlers
	sseHandlers    *handlers.SSEHandlers
	pageHandlers   *handlers.PageHandlers
	exportHandlers *handlers.ExportHandlers
}

func NewServer(deps Deps) *Server {
	cfg := deps.Config
	s := &Server{
		router:         chi.NewRouter(),
		logger:         deps.Logger,
		apiHandlers:    handlers.NewAPIHandlers(deps.Analytics, deps.Sessions, deps.Logger, cfg.Telemetry.ServiceVersion),
		sseHandlers:    handlers.NewSSEHandlers(deps.Analytics, deps.Sessions, deps.Logger, cfg.Dataset.PreviewRows),
		pageHandlers:   handlers.NewPageHandlers(deps.Analytics, deps.Sessions, deps.Logger, cfg.Dataset.PreviewRows),
		exportHandlers: handlers.NewExportHandlers(deps.Analytics, deps.Exporter, deps.Sessions, cfg.Export.DefaultName, deps.Logger),
	}
	s.setupMiddleware(deps)
	s.setupRoutes(deps)
	return s
}

func (s *Server) setupMiddleware(deps Deps) {
	cfg := deps.Config
	stack := []middleware.Middleware{
		middleware.Recovery(deps.Logger),
		chimw.StripSlashes,
		middleware.RequestID(),
		middleware.Tracing(),
		middleware.Logger(deps.Logger),
		middleware.Metrics(deps.Metrics),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
	}
	if cfg.Security.EnableRateLimit && deps.RateLimiter != nil {
		stack = append(stack, middleware.RateLimit(deps.RateLimiter, deps.Logger))
	}
	s.router.Use(middleware.Chain(stack...))
}

func (s *Server) setupRoutes(deps Deps) {
	r := s.router

	// Pages
	r.Get("/", s.pageHandlers.Dashboard)
	r.Get("/raw", s.pageHandlers.Raw)

	r.Get("/health", s.apiHandlers.HandleHealth)
	r.Get("/admin/stats", s.apiHandlers.HandleStats)
	r.Handle("/metrics", deps.Metrics.Handler())

	// REST API endpoints
	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/report", s.apiHandlers.HandleReport)
		r.Post("/report", s.apiHandlers.HandleReportJSON)
		r.Get("/locations/{measure}", s.apiHandlers.HandleLocations)
		r.Get("/months/{measure}", s.apiHandlers.HandleMonths)
		r.Get("/categories/{measure}", s.apiHandlers.HandleCategories)
		r.Get("/sellers", s.apiHandlers.HandleSellers)
		r.Get("/options", s.apiHandlers.HandleOptions)
		r.Get("/regions", s.apiHandlers.HandleRegions)
		r.Get("/session/filters", s.apiHandlers.HandleGetSession)
		r.Put("/session/filters", s.apiHandlers.HandlePutSession)
		r.Delete("/session/filters", s.apiHandlers.HandleDeleteSession)
	})

	// Datastar SSE endpoints
	r.Get("/sse/dashboard", s.sseHandlers.HandleDashboard)
	r.Get("/sse/raw", s.sseHandlers.HandleRaw)

	r.Get("/export.csv", s.exportHandlers.HandleCSV)
	r.Get("/export.xlsx", s.exportHandlers.HandleXLSX)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
