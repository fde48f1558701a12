package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/songzhibin97/supercircle/internal/contract"
)

type Config struct {
	Addr        string   `json:"addr" yaml:"addr"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

// Deps are the services the API serves.
type Deps struct {
	Circles  CircleService
	Builder  *contract.Builder
	Balances BalanceService
	Judge    JudgeRunner
	Verdicts VerdictLister
}

// Server is the HTTP API in front of the contract and the judge.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

func NewServer(cfg Config, deps Deps, logger *slog.Logger) *Server {
	logger = logger.With("component", "server")
	h := &handlers{deps: deps, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.health)
	mux.HandleFunc("POST /api/judge", h.runJudge)

	mux.HandleFunc("GET /api/circles", h.listCircles)
	mux.HandleFunc("GET /api/circles/search", h.searchCircle)
	mux.HandleFunc("GET /api/circles/{id}", h.getCircle)
	mux.HandleFunc("GET /api/circles/{id}/validate", h.validateCircle)
	mux.HandleFunc("GET /api/circles/{id}/eligibility", h.eligibility)
	mux.HandleFunc("GET /api/circles/{id}/verdicts", h.listVerdicts)
	mux.HandleFunc("GET /api/stats", h.stats)
	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/accounts/{address}/balance", h.balance)

	mux.HandleFunc("POST /api/payloads/create", h.createPayload)
	mux.HandleFunc("POST /api/payloads/accept", h.acceptPayload)
	mux.HandleFunc("POST /api/payloads/support", h.supportPayload)
	mux.HandleFunc("POST /api/payloads/resolve", h.resolvePayload)

	var handler http.Handler = mux
	handler = Logging(logger)(handler)
	handler = CORS(cfg.CORSOrigins)(handler)

	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		handler: handler,
		logger:  logger,
	}
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start blocks until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Logging logs every request with its status and duration.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			logger.InfoContext(r.Context(), "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", r.URL.RawQuery),
				slog.Int("status", rw.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// CORS allows the listed origins, or every origin when the list is empty.
// The browser front-end calls the payload endpoints cross-origin.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); origin != "" {
				allowed := len(allowedOrigins) == 0
				for _, o := range allowedOrigins {
					if o == "*" || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}
				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
