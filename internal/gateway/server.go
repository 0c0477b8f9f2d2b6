// Package gateway exposes the job API and the live event stream over HTTP.
package gateway

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"scribe/internal/api"
	"scribe/internal/broadcast"
	"scribe/internal/config"
	"scribe/internal/logging"
)

// Server hosts the REST endpoints and the websocket event feed.
type Server struct {
	cfg    *config.Config
	svc    *api.Service
	hub    *broadcast.Hub
	logger *slog.Logger

	httpServer *http.Server
	listener   net.Listener
}

// NewServer wires the HTTP surface. Start must be called to begin serving.
func NewServer(cfg *config.Config, svc *api.Service, hub *broadcast.Hub, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{cfg: cfg, svc: svc, hub: hub, logger: logger}
	s.httpServer = &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start binds the configured address and serves until Shutdown. It returns
// once the listener is bound; serving continues on a background goroutine.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Paths.APIBind)
	if err != nil {
		return err
	}
	s.listener = listener
	s.logger.Info("api listening",
		logging.String(logging.FieldComponent, "gateway"),
		logging.String("bind", listener.Addr().String()),
	)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server stopped", logging.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound address, or empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown drains connections and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/jobs", http.HandlerFunc(s.handleCreateJob))
	mux.Handle("GET /api/jobs", http.HandlerFunc(s.handleListJobs))
	mux.Handle("GET /api/jobs/{id}", http.HandlerFunc(s.handleGetJob))
	mux.Handle("POST /api/jobs/{id}/cancel", http.HandlerFunc(s.handleCancelJob))
	mux.Handle("POST /api/jobs/{id}/retry", http.HandlerFunc(s.handleRetryJob))
	mux.Handle("GET /api/stats", http.HandlerFunc(s.handleStats))
	mux.Handle("GET /api/health", http.HandlerFunc(s.handleHealth))
	mux.Handle("GET /api/events", http.HandlerFunc(s.handleEvents))
	mux.Handle("GET /healthz", http.HandlerFunc(healthz))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthz))

	return s.withAuth(mux)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// withAuth enforces the configured bearer token on every /api route. The
// websocket endpoint also accepts the token as a query parameter because
// browser websocket clients cannot set headers.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(s.cfg.Paths.APIToken)
		if token == "" || !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		presented := bearerToken(r)
		if presented == "" {
			presented = r.URL.Query().Get("token")
		}
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "unauthorized", Err: errors.New("missing or invalid token")})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
