// Package api exposes the HTTP interface for the lead service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/JakeFAU/pagespeed-leads/internal/config"
	"github.com/JakeFAU/pagespeed-leads/internal/id/uuid"
	"github.com/JakeFAU/pagespeed-leads/internal/lead"
	"github.com/JakeFAU/pagespeed-leads/internal/logging"
	"github.com/JakeFAU/pagespeed-leads/internal/metrics"
)

const (
	readyTimeout    = 2 * time.Second
	maxRequestBytes = 1 << 20
)

// LeadService is the lead pipeline the handlers drive.
type LeadService interface {
	AnalyzeAndCreateLead(ctx context.Context, email, websiteURL string, strategy lead.Strategy) (lead.Result, error)
	RequestContinue(ctx context.Context, id int64) (bool, error)
	GetLead(ctx context.Context, id int64) (*lead.Lead, error)
	ListLeads(ctx context.Context, filter lead.ListFilter) ([]lead.Lead, error)
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Limiter decides whether a client key may proceed.
type Limiter interface {
	Allow(key string) bool
}

// Server wires HTTP handlers to the lead service.
type Server struct {
	router  chi.Router
	leads   LeadService
	db      Pinger
	limiter Limiter
	ids     *uuid.Generator
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes. A nil limiter
// disables rate limiting; a nil db makes /readyz always report ready.
func NewServer(
	leads LeadService,
	db Pinger,
	limiter Limiter,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		leads:   leads,
		db:      db,
		limiter: limiter,
		ids:     uuid.New(),
		logger:  logger,
	}
	if cfg.CORS.AllowedOrigin == "" {
		logger.Warn("cors.allowed_origin is not set; all origins are allowed")
	}

	r := chi.NewRouter()
	if cfg.Server.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(s.requestIDMiddleware)
	r.Use(timingMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(corsOptions(cfg.CORS)))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Not Found - %s %s", r.Method, r.URL.RequestURI()))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method Not Allowed - %s %s", r.Method, r.URL.RequestURI()))
	})

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1/leads", func(r chi.Router) {
		r.Get("/", s.listLeads)
		r.With(s.rateLimitMiddleware).Post("/analyze", s.analyze)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getLead)
			r.Patch("/continue", s.continueLead)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func corsOptions(cfg config.CORSConfig) cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Response-Time"},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           300,
	}
	if cfg.AllowedOrigin != "" {
		opts.AllowedOrigins = []string{cfg.AllowedOrigin}
	}
	return opts
}

type healthStatus struct {
	Status string `json:"status"`
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: healthStatus{Status: "ok"}})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			logging.FromContext(r.Context(), s.logger).Warn("readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: healthStatus{Status: "ready"}})
}

// requestIDMiddleware keeps a caller-supplied X-Request-ID when it is a UUID
// and mints one otherwise.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if !uuid.Valid(reqID) {
			reqID = s.ids.NewID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// timingMiddleware stamps X-Response-Time just before the status line goes out.
func timingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tw := &timedWriter{ResponseWriter: w, start: time.Now()}
		next.ServeHTTP(tw, r)
	})
}

type timedWriter struct {
	http.ResponseWriter
	start       time.Time
	wroteHeader bool
}

func (tw *timedWriter) WriteHeader(code int) {
	if !tw.wroteHeader {
		tw.wroteHeader = true
		tw.Header().Set("X-Response-Time", strconv.FormatInt(time.Since(tw.start).Milliseconds(), 10)+"ms")
	}
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timedWriter) Write(b []byte) (int, error) {
	if !tw.wroteHeader {
		tw.WriteHeader(http.StatusOK)
	}
	n, err := tw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (tw *timedWriter) Flush() {
	if !tw.wroteHeader {
		tw.WriteHeader(http.StatusOK)
	}
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLogger := s.logger.With(zap.String("request_id", requestID(r.Context())))
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r.WithContext(logging.WithContext(r.Context(), reqLogger)))
		reqLogger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.FromContext(r.Context(), s.logger).Error("panic recovered",
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				if hw, ok := w.(interface{ headerWritten() bool }); ok && hw.headerWritten() {
					return
				}
				writeError(w, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(clientIP(r)) {
			metrics.ObserveRateLimited(r.URL.Path)
			w.Header().Set("Retry-After", "5")
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.wroteHeader = true
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) headerWritten() bool {
	return rw.wroteHeader
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		rw.wroteHeader = true
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

// envelope is the body shape shared by every JSON response from the lead routes.
type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Details string   `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}
