// Package server exposes deployments over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	slogcontext "github.com/veqryn/slog-context"

	"github.com/cameronsjo/berth/internal/account"
	"github.com/cameronsjo/berth/internal/deploy"
	"github.com/cameronsjo/berth/internal/resource"
	"github.com/cameronsjo/berth/internal/task"
	"github.com/cameronsjo/berth/internal/ui"
)

// Routes.
const (
	PathHealth = "/healthz"
	PathKinds  = "/v1/kinds"
	PathDeploy = "/v1/manifests/deploy"
)

// maxBodyBytes bounds deploy request bodies.
const maxBodyBytes = 4 << 20

// Deployer runs deployments.
type Deployer interface {
	Deploy(ctx context.Context, desc *deploy.Description) (*resource.OperationResult, error)
	Kinds() []resource.Properties
}

// Config holds server settings.
type Config struct {
	// Addr is the listen address (default: ":8080").
	Addr string
	// Token, when set, is required as a bearer token on every route but
	// the health check.
	Token string
	// Timeout bounds a single deployment (default: 5m).
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{Addr: ":8080", Timeout: 5 * time.Minute}
}

// Server handles deployment requests.
type Server struct {
	config     Config
	deployer   Deployer
	logger     *slog.Logger
	httpServer *http.Server
}

// New creates a Server.
func New(deployer Deployer, cfg Config, logger *slog.Logger) *Server {
	defaults := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = defaults.Addr
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{config: cfg, deployer: deployer, logger: logger}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathHealth, s.handleHealth)
	mux.HandleFunc("GET "+PathKinds, s.handleKinds)
	mux.HandleFunc("POST "+PathDeploy, s.handleDeploy)
	return s.loggingMiddleware(s.authMiddleware(mux))
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is canceled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	auth := "no auth"
	if s.config.Token != "" {
		auth = "bearer auth required"
	}
	ui.Info("HTTP server listening on %s (%s)", listener.Addr(), auth)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		ui.Info("Shutting down HTTP server...")
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// authMiddleware validates bearer token authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health endpoint is public for load balancer checks
		if s.config.Token == "" || r.URL.Path == PathHealth {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="berth"`)
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid authorization format")
			return
		}

		// Constant-time comparison to prevent timing attacks
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.config.Token)) != 1 {
			s.logger.Warn("Authentication failed", slog.String("remote", r.RemoteAddr))
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		ctx := slogcontext.NewCtx(r.Context(), s.logger)
		next.ServeHTTP(wrapped, r.WithContext(ctx))

		s.logger.Info("HTTP request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", wrapped.statusCode),
			slog.Duration("duration", time.Since(start)))
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

var startTime = time.Now()

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "healthy",
		Uptime: time.Since(startTime).Round(time.Second).String(),
	})
}

// KindInfo describes a deployable kind.
type KindInfo struct {
	Kind      string `json:"kind"`
	Versioned bool   `json:"versioned"`
}

func (s *Server) handleKinds(w http.ResponseWriter, _ *http.Request) {
	props := s.deployer.Kinds()
	kinds := make([]KindInfo, 0, len(props))
	for _, p := range props {
		kinds = append(kinds, KindInfo{Kind: p.Kind, Versioned: p.Versioned})
	}
	writeJSON(w, http.StatusOK, kinds)
}

// DeployResponse is returned by the deploy endpoint.
type DeployResponse struct {
	ID     string                    `json:"id"`
	Result *resource.OperationResult `json:"result,omitempty"`
	Status []task.Entry              `json:"status"`
	Error  string                    `json:"error,omitempty"`
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	desc, err := deploy.ParseDescription(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := uuid.NewString()
	ctx, cancel := context.WithTimeout(r.Context(), s.config.Timeout)
	defer cancel()
	ctx = slogcontext.With(ctx, slog.String("operation", deploy.Phase), slog.String("id", id))

	history := task.NewHistory()
	ctx = task.WithReporter(ctx, task.Multi{history, task.NewLogger(ctx)})

	result, err := s.deployer.Deploy(ctx, desc)
	resp := DeployResponse{ID: id, Result: result, Status: history.Entries()}
	if err != nil {
		resp.Result = nil
		resp.Error = err.Error()
		writeJSON(w, StatusCode(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// StatusCode maps a deployment error to an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, deploy.ErrUnsupportedSource),
		errors.Is(err, deploy.ErrMissingManifest),
		errors.Is(err, deploy.ErrInvalidManifest),
		errors.Is(err, resource.ErrUnknownKind),
		errors.Is(err, account.ErrUnknownAccount):
		return http.StatusBadRequest
	case errors.Is(err, deploy.ErrArtifactFetch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, deploy.ErrSubmission):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorResponse is the body of request-level failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
