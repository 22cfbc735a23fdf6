// Package server exposes the conversation driver and the browser tools over
// HTTP: a streaming chat endpoint, direct tool dispatch, health and metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/entrhq/webpilot/pkg/agent"
	"github.com/entrhq/webpilot/pkg/agent/tools"
	"github.com/entrhq/webpilot/pkg/config"
	"github.com/entrhq/webpilot/pkg/llm"
	"github.com/entrhq/webpilot/pkg/logging"
	"github.com/entrhq/webpilot/pkg/metrics"
	"github.com/entrhq/webpilot/pkg/types"
)

var logger = logging.NewLogger("server")

const (
	// DefaultMaxDuration bounds one chat request.
	DefaultMaxDuration = 300 * time.Second

	defaultShutdownTimeout = 30 * time.Second
	maxRequestBytes        = 1 << 20
)

// ChatRunner runs one conversation turn. *agent.Driver satisfies it.
type ChatRunner interface {
	Run(ctx context.Context, history []*types.Message, emit agent.EventFunc) ([]*types.Message, error)
}

// ToolRunner dispatches tool calls by name. *browser.Dispatcher satisfies it.
type ToolRunner interface {
	Execute(ctx context.Context, name string, args json.RawMessage) *tools.Result
	Lookup(name string) (tools.Tool, bool)
	Definitions() []llm.ToolDefinition
}

// SessionCounter reports how many browser sessions are live. *browser.Pool
// satisfies it.
type SessionCounter interface {
	Len() int
}

// Server routes HTTP requests to the chat runner and the tools.
type Server struct {
	cfg      config.ServerConfig
	chat     ChatRunner
	tools    ToolRunner
	sessions SessionCounter
	router   *mux.Router
}

// New builds a server. sessions may be nil.
func New(cfg config.ServerConfig, chat ChatRunner, toolRunner ToolRunner, sessions SessionCounter) *Server {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		cfg:      cfg,
		chat:     chat,
		tools:    toolRunner,
		sessions: sessions,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(RecoveryMiddleware)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	s.router.HandleFunc("/api/chat", s.handleChat).Methods("POST")
	s.router.HandleFunc("/api/tools", s.handleListTools).Methods("GET")
	s.router.HandleFunc("/api/tools/{name}", s.handleCallTool).Methods("POST")
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		// Chat streams may run for the full MaxDuration.
		WriteTimeout: s.cfg.MaxDuration + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Server listening on %s", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infof("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
