// Package server is the mpp preview server. It renders the templates under
// a root directory against a data file on every request, so edits show up on
// reload.
package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sambeau/mustachepp"
	"github.com/sambeau/mustachepp/config"
	"github.com/sambeau/mustachepp/pkg/watch"
)

// Server represents a preview server instance.
type Server struct {
	config    *config.Config
	engine    *mustachepp.Engine
	stdout    io.Writer
	stderr    io.Writer
	mux       *http.ServeMux
	server    *http.Server
	changeSeq atomic.Uint64
}

// New creates a preview server that renders with engine.
func New(cfg *config.Config, engine *mustachepp.Engine, stdout, stderr io.Writer) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("creating server: no engine")
	}
	s := &Server{
		config: cfg,
		engine: engine,
		stdout: stdout,
		stderr: stderr,
		mux:    http.NewServeMux(),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	if s.config.Serve.Reload {
		s.mux.Handle("/__livereload", newLiveReloadHandler(s))
	}
	s.mux.Handle("/", &previewHandler{server: s})
}

// Handler returns the full handler chain.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux

	if s.config.Serve.Reload {
		handler = injectLiveReload(handler)
	}

	handler = newCompressionHandler(handler, s.config.Serve.Compression)

	// Request logs are skipped when only errors are wanted
	if s.config.Logging.Level != "error" {
		handler = newRequestLogger(handler, s.stdout, s.config.Logging.Format)
	}
	return handler
}

// Reload tells open pages to reload.
func (s *Server) Reload() {
	s.changeSeq.Add(1)
}

// ChangeSeq returns the number of reloads so far.
func (s *Server) ChangeSeq() uint64 {
	return s.changeSeq.Load()
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Serve.Host, s.config.Serve.Port)

	if s.config.Serve.Reload {
		if w, err := s.startWatcher(ctx); err != nil {
			s.logError("failed to start watcher: %v", err)
		} else {
			defer w.Close()
		}
	}

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(s.stdout, "Serving %s on http://%s\n", s.config.Serve.Root, addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintf(s.stdout, "\nShutting down gracefully...\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// startWatcher watches the template root, the partials and the data file
// and bumps the reload sequence when any of them change.
func (s *Server) startWatcher(ctx context.Context) (*watch.Watcher, error) {
	cfg := s.config
	w, err := watch.New(cfg.Watch.Debounce, cfg.Extensions, func([]string) { s.Reload() }, s.stdout, s.stderr)
	if err != nil {
		return nil, err
	}
	if err := w.Add(cfg.Serve.Root, cfg.Partials, cfg.Serve.Data); err != nil {
		w.Close()
		return nil, err
	}
	go w.Run(ctx)
	return w, nil
}

func (s *Server) logError(format string, args ...interface{}) {
	fmt.Fprintf(s.stderr, "[ERROR] "+format+"\n", args...)
}
