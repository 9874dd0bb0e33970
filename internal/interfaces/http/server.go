// Package http is the service boundary: webhook ingest on POST, state
// queries on GET. Handlers stay thin; everything interesting happens in
// the engine and the stores.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pulsedeck/decisiond/internal/audit"
	"github.com/pulsedeck/decisiond/internal/clock"
	"github.com/pulsedeck/decisiond/internal/config"
	"github.com/pulsedeck/decisiond/internal/engine"
	"github.com/pulsedeck/decisiond/internal/market"
	"github.com/pulsedeck/decisiond/internal/metrics"
)

type ctxKey int

const requestIDKey ctxKey = iota

// Server is the decisiond HTTP boundary.
type Server struct {
	router  *mux.Router
	server  *http.Server
	cfg     config.Settings
	reg     *config.Registry
	eng     *engine.Engine
	stores  engine.Stores
	builder *market.Builder
	trail   *audit.Log
	met     *metrics.Registry
	clk     clock.Clock
	limiter *rate.Limiter
	log     zerolog.Logger
	started time.Time
}

// NewServer wires the boundary. The listen probe fails fast when the
// port is taken, matching operator expectations over a late bind error.
func NewServer(
	cfg config.Settings,
	reg *config.Registry,
	eng *engine.Engine,
	stores engine.Stores,
	builder *market.Builder,
	trail *audit.Log,
	met *metrics.Registry,
	clk clock.Clock,
	logger zerolog.Logger,
) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	probe, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("port %d is busy or unavailable: %w", cfg.Server.Port, err)
	}
	probe.Close()

	s := &Server{
		router:  mux.NewRouter(),
		cfg:     cfg,
		reg:     reg,
		eng:     eng,
		stores:  stores,
		builder: builder,
		trail:   trail,
		met:     met,
		clk:     clk,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst),
		log:     logger,
		started: time.Now(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	hooks := s.router.PathPrefix("/webhooks").Subrouter()
	hooks.Use(s.rateLimitMiddleware)
	hooks.HandleFunc("/signals", s.handleWebhook).Methods("POST")
	hooks.HandleFunc("/saty-phase", s.handleWebhook).Methods("POST")
	hooks.HandleFunc("/trend", s.handleWebhook).Methods("POST")
	hooks.HandleFunc("/strat-exec", s.handleWebhook).Methods("POST")

	s.router.HandleFunc("/signals/current", s.handleSignalsCurrent).Methods("GET")
	s.router.HandleFunc("/phase/current", s.handlePhaseCurrent).Methods("GET")
	s.router.HandleFunc("/trend/current", s.handleTrendCurrent).Methods("GET")
	s.router.HandleFunc("/decisions/recent", s.handleDecisionsRecent).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", s.met.Handler()).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		s.log.Info().
			Str("request_id", requestID(r)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}

// rateLimitMiddleware sheds webhook load with a shared token bucket.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Error:     "RATE_LIMIT_ERROR",
				Message:   "webhook rate limit exceeded",
				RequestID: requestID(r),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "NOT_FOUND",
		Message: fmt.Sprintf("no route for %s", r.URL.Path),
	})
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:   "METHOD_NOT_ALLOWED",
		Message: fmt.Sprintf("%s not allowed on %s", r.Method, r.URL.Path),
	})
}

// Start blocks serving until Shutdown or listener failure.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("http server starting")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}

// Address returns the configured listen address.
func (s *Server) Address() string { return s.server.Addr }

func requestID(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// responseWrapper captures status codes for the access log.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
