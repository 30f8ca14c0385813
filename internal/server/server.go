// Package server exposes the daemon's HTTP surface: health, metrics,
// reader state, recent readings and the live websocket feed.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/llrpd/internal/auth"
	"github.com/danmuck/llrpd/internal/observability"
	"github.com/danmuck/llrpd/internal/protocol/session"
	"github.com/danmuck/llrpd/internal/reader"
	"github.com/danmuck/llrpd/internal/reading"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const Version = "0.1.0"

// StatusSource reports reader connections.
type StatusSource interface {
	Statuses() []reader.Status
}

// RecentSource returns the latest stored readings.
type RecentSource interface {
	Recent(n int) ([]reading.Reading, error)
}

type Options struct {
	Name        string
	Registry    *session.Registry
	Readers     StatusSource
	Recent      RecentSource
	RecentLimit int
	// Live serves /ws when set.
	Live        http.Handler
	CorsOrigins []string
	// Auth guards every route except /health and /metrics when set.
	Auth        auth.Validator
}

type Server struct {
	opts     Options
	router   *gin.Engine
	appeared time.Time
}

func New(opts Options) *Server {
	if strings.TrimSpace(opts.Name) == "" {
		opts.Name = "llrpd"
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 100
	}
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(opts.Name))
	if len(opts.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: opts.CorsOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{opts: opts, router: r, appeared: time.Now()}
	s.registerRoutes()
	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// ListenAndServe serves addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server.Server listening")
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
