package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claude/liftlog/internal/ingest/alpha"
	"github.com/claude/liftlog/internal/storage"
	"github.com/claude/liftlog/internal/training"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db      storage.Store
	svc     *training.Service
	alpha   *alpha.Provider
	log     *slog.Logger
	apiKey  string
	router  chi.Router
	metrics *Metrics
	whois   WhoIsClient
	mcp     http.Handler
}

// New creates a new Server with all routes configured.
func New(db storage.Store, svc *training.Service, alphaProvider *alpha.Provider, apiKey string, metrics *Metrics, log *slog.Logger) *Server {
	s := &Server{
		db:      db,
		svc:     svc,
		alpha:   alphaProvider,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
		metrics: metrics,
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches identity from the dev user to Tailscale WhoIs lookups.
func (s *Server) SetTailscale(whois WhoIsClient) {
	s.whois = whois
}

// SetMCP mounts an MCP transport at /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.mcp = h
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(CORS)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	s.router.Group(func(r chi.Router) {
		r.Use(s.identify)

		// Write endpoints (API key required)
		r.Group(func(r chi.Router) {
			r.Use(APIKeyAuth(s.apiKey))
			r.Post("/api/v1/sets", s.handleInsertSets)
			r.Post("/api/v1/ingest/alpha", s.handleAlphaIngest)
		})

		r.Get("/api/v1/me", s.handleMe)
		r.Get("/api/v1/sets", s.handleQuerySets)
		r.Get("/api/v1/exercises", s.handleExercises)
		r.Get("/api/v1/exercises/{id}", s.handleExercise)
		r.Get("/api/v1/recovery", s.handleRecoveryMap)
		r.Get("/api/v1/recovery/{muscle}", s.handleMuscleRecovery)
		r.Get("/api/v1/recommendations/{exercise}", s.handleRecommendation)

		r.Handle("/mcp", http.HandlerFunc(s.handleMCP))
	})
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	if s.mcp == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "mcp is not enabled"})
		return
	}
	s.mcp.ServeHTTP(w, r)
}
