package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gql "github.com/mnohosten/laura-db/pkg/graphql"
	"github.com/mnohosten/laura-db/pkg/hashindex"
	"github.com/mnohosten/laura-db/pkg/metrics"
	"github.com/mnohosten/laura-db/pkg/storage"
)

// Server is the read-only HTTP observability surface over a running buffer
// pool manager and hash index: health, stats, Prometheus metrics, a
// websocket event feed, and a GraphQL query endpoint.
type Server struct {
	config    *Config
	bpm       *storage.BufferPoolManager
	ht        gql.HashTableStats
	router    *chi.Mux
	httpSrv   *http.Server
	startTime time.Time

	metricsCollector *metrics.MetricsCollector
	promExporter     *metrics.PrometheusExporter
	events           *EventHub
}

// New builds an admin server over bpm and ht. It installs itself as the
// eviction/resize listener of both, so every eviction, dirty-page
// write-back, and Resize is reflected in metrics and the websocket feed
// without the caller needing to wire that up separately. Page fetches and
// hash table GetValue/Insert/Remove calls are not recorded by this wiring,
// so the collector's fetch, hit-rate, and hash-operation counters stay 0.
func New(config *Config, bpm *storage.BufferPoolManager, ht *hashindex.LinearProbeHashTable[int64, hashindex.RID]) (*Server, error) {
	metricsCollector := metrics.NewMetricsCollector()
	promExporter := metrics.NewPrometheusExporter(metricsCollector)
	events := NewEventHub(metricsCollector)

	bpm.SetEvictionListener(events)
	ht.SetResizeListener(events)

	srv := &Server{
		config:           config,
		bpm:              bpm,
		ht:               ht,
		router:           chi.NewRouter(),
		startTime:        time.Now(),
		metricsCollector: metricsCollector,
		promExporter:     promExporter,
		events:           events,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	if config.EnableGraphQL {
		if err := srv.setupGraphQLRoutes(); err != nil {
			return nil, fmt.Errorf("failed to setup GraphQL routes: %w", err)
		}
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	srv.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      srv.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return srv, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	if s.config.EnableLogging {
		s.router.Use(middleware.Logger)
	}

	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}

	s.router.Use(s.requestSizeLimitMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/_health", s.jsonContentType(s.handleHealth))
	s.router.Get("/_stats", s.jsonContentType(s.handleStats))
	s.router.Get("/_metrics", s.handlePrometheusMetrics)
	s.router.Get("/_ws/events", s.events.ServeWS)
}

func (s *Server) setupGraphQLRoutes() error {
	graphqlHandler, err := gql.NewHandler(s.bpm, s.ht, s.metricsCollector)
	if err != nil {
		return fmt.Errorf("failed to create GraphQL handler: %w", err)
	}

	s.router.Post("/graphql", graphqlHandler.ServeHTTP)
	s.router.Get("/graphiql", gql.GraphiQLHandler())

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	numBuckets, err := s.ht.NumBuckets()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	WriteSuccess(w, map[string]interface{}{
		"bufferPool": s.bpm.Stats(),
		"hashTable": map[string]interface{}{
			"capacity":   s.ht.Capacity(),
			"numBuckets": numBuckets,
		},
		"metrics": s.metricsCollector.GetMetrics(),
	})
}

func (s *Server) handlePrometheusMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	if err := s.promExporter.WriteMetrics(w); err != nil {
		http.Error(w, fmt.Sprintf("Error writing metrics: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) jsonContentType(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next(w, r)
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.config.AllowedOrigins) > 0 {
			origin = s.config.AllowedOrigins[0]
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestSizeLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
		next.ServeHTTP(w, r)
	})
}

// Start runs the HTTP server until an error occurs or a termination signal
// is received, then shuts down gracefully.
func (s *Server) Start() error {
	fmt.Printf("admin: listening on http://%s:%d\n", s.config.Host, s.config.Port)
	fmt.Printf("admin: websocket event feed at ws://%s:%d/_ws/events\n", s.config.Host, s.config.Port)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		return s.Shutdown()
	}
}

// MetricsCollector returns the metrics collector backing this server.
func (s *Server) MetricsCollector() *metrics.MetricsCollector {
	return s.metricsCollector
}

// Shutdown gracefully stops the HTTP server. It does not close bpm or ht,
// which it does not own.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error envelope.
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	WriteJSON(w, statusCode, map[string]interface{}{
		"ok":      false,
		"error":   errorType,
		"message": message,
		"code":    statusCode,
	})
}

// WriteSuccess writes a JSON success envelope.
func WriteSuccess(w http.ResponseWriter, result interface{}) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":     true,
		"result": result,
	})
}
