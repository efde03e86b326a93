// Package server exposes the view controller over HTTP and pushes every
// published state to WebSocket clients.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stockchart/internal/chart"
	"stockchart/internal/logger"
	"stockchart/internal/view"
)

// Controller is the view state the API reads and changes.
type Controller interface {
	Snapshot() view.Snapshot
	SetSymbol(text string) string
	Search(ctx context.Context) error
	SetChartKind(kind chart.Kind) error
	SetWindowDays(days int) error
	ToggleTheme() view.Theme
}

type Server struct {
	ctrl   Controller
	hub    *Hub
	log    *zap.SugaredLogger
	engine *gin.Engine

	// base scopes searches started by requests; they outlive the request.
	base     context.Context
	searches sync.WaitGroup
}

// New builds the router. hub may be nil, in which case /ws is not served.
func New(ctrl Controller, hub *Hub, log *zap.SugaredLogger) *Server {
	s := &Server{
		ctrl: ctrl,
		hub:  hub,
		log:  logger.OrNop(log),
		base: context.Background(),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is done, then shuts down gracefully and waits
// for running searches.
func (s *Server) Run(ctx context.Context, addr string, requestTimeout time.Duration) error {
	s.base = ctx
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       requestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Infow("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.searches.Wait()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Infow("server stopped")
	return nil
}

// startSearch runs a search in the background.
func (s *Server) startSearch() {
	s.searches.Add(1)
	go func() {
		defer s.searches.Done()
		if err := s.ctrl.Search(s.base); err != nil {
			s.log.Errorw("search failed", "error", err.Error())
		}
	}()
}
