package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"scriptflow/internal/config"
	"scriptflow/internal/monitor"
)

// Server is the HTTP surface over the pipeline.
type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	startTime  time.Time
}

// NewServer configures the HTTP server with all routes and middleware.
func NewServer(cfg *config.Config, handlers *Handlers, metrics *monitor.Metrics) *Server {
	s := &Server{
		cfg:       cfg,
		startTime: time.Now(),
	}

	if len(cfg.Security.AllowedKeys) == 0 {
		log.Warn().Msg("no API keys configured, API is open")
	}

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /execute", handlers.HandleExecute)
	apiMux.HandleFunc("GET /results", handlers.HandleListResults)
	apiMux.HandleFunc("GET /results/{id}", handlers.HandleGetResult)
	apiMux.HandleFunc("DELETE /results/{id}", handlers.HandleDeleteResult)
	apiMux.HandleFunc("POST /analyze", handlers.HandleAnalyze)
	apiMux.HandleFunc("GET /analyses/{id}", handlers.HandleGetAnalysis)
	apiMux.HandleFunc("POST /report", handlers.HandleReport)
	apiMux.HandleFunc("GET /monitor", handlers.HandleMonitor)

	authedAPI := AuthMiddleware(cfg.Security.APIKeyHeader, cfg.Security.AllowedKeys)(apiMux)
	if cfg.Security.RateLimitRPS > 0 {
		// Wraps auth: unauthenticated requests count against the limit too.
		authedAPI = RateLimitMiddleware(cfg.Security.RateLimitRPS, cfg.Security.RateLimitBurst)(authedAPI)
	}

	// Health and metrics bypass auth; everything else goes through it.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	if cfg.Metrics.Enabled && metrics != nil {
		mux.Handle("GET "+cfg.Metrics.Path, promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}
	mux.Handle("/", authedAPI)

	// Middleware chain, outermost first.
	var handler http.Handler = mux
	handler = MetricsMiddleware(metrics)(handler)
	handler = MaxBodyMiddleware(cfg.Server.MaxRequestBody)(handler)
	handler = LoggingMiddleware(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins listening for requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}
