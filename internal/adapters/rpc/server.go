// Package rpc serves the workflow controller over JSON-RPC 2.0 for a local
// browser front-end.
package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lensfrens/go-backend/internal/platform/ratelimiter"
	"lensfrens/go-backend/internal/workflow"
	"lensfrens/go-backend/pkg/models"
)

const (
	DefaultRPCAddr      = "127.0.0.1:8797"
	rpcTokenHeader      = "X-Lensfrens-RPC-Token"
	defaultMaxBodyBytes = int64(64 << 20)
)

// Service is the workflow surface exposed over RPC. *workflow.Controller
// implements it.
type Service interface {
	State() workflow.State
	Connect(ctx context.Context) (workflow.State, error)
	RequestConnection(ctx context.Context) (workflow.State, error)
	Login(ctx context.Context) (workflow.State, error)
	RestoreSession(ctx context.Context) (bool, error)
	CheckDispatcher(ctx context.Context) (bool, error)
	SetDispatcher(ctx context.Context) (common.Hash, error)
	Publish(ctx context.Context, draft models.DraftPost) (models.PublishResult, error)
	Metrics() *workflow.Metrics
	Events() *workflow.EventHub
}

type Options struct {
	Addr           string
	Token          string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
	Gatherer       prometheus.Gatherer
	Logger         *slog.Logger
}

type Server struct {
	httpServer   *http.Server
	service      Service
	rpcToken     string
	origins      map[string]struct{}
	limiter      *ratelimiter.MapLimiter
	maxBodyBytes int64
	logger       *slog.Logger
}

func NewServer(svc Service, opts Options) *Server {
	addr := strings.TrimSpace(opts.Addr)
	if addr == "" {
		addr = DefaultRPCAddr
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	origins := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			origins[origin] = struct{}{}
		}
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		service:      svc,
		rpcToken:     strings.TrimSpace(opts.Token),
		origins:      origins,
		limiter:      ratelimiter.New(opts.RateLimitRPS, opts.RateLimitBurst, 10*time.Minute),
		maxBodyBytes: maxBody,
		logger:       logger,
	}
	if s.rpcToken == "" {
		logger.Warn("rpc token is not set; RPC auth disabled")
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.HandleFunc("/rpc/stream", s.handleRPCStream)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("rpc server listening", "addr", s.httpServer.Addr)
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.applyCORS(w, r) {
		return
	}
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
