// Package server provides the reference task API that the api store talks
// to. Routes live under /api; persistence is any types.Store.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/taskboard/pkg/types"
)

const (
	maxBodySize     = 1 << 20 // 1MB
	shutdownTimeout = 5 * time.Second
)

// Server serves the task API over a types.Store.
type Server struct {
	store  types.Store
	log    zerolog.Logger
	router *gin.Engine
}

// New creates a Server backed by store. The store stays owned by the
// caller.
func New(store types.Store, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	s := &Server{
		store:  store,
		log:    logger.With().Str("cmp", "server").Logger(),
		router: router,
	}

	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleList)
		api.POST("/tasks", s.handleCreate)
		api.PUT("/tasks/:id", s.handleUpdate)
		api.DELETE("/tasks/:id", s.handleDelete)
		api.GET("/history", s.handleHistory)
	}

	return s
}

// Handler returns the router wrapped in the CORS policy: any origin, the
// four task verbs plus preflight.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Accept"},
	})
	return c.Handler(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("task API listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info().Msg("task API stopped")
	return nil
}

// requestLogger logs one event per request through zerolog.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := s.log.Debug()
		if status >= http.StatusInternalServerError {
			ev = s.log.Error()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
