package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/taskbot/internal/config"
	"github.com/foxseedlab/taskbot/internal/logview"
	"github.com/foxseedlab/taskbot/internal/tracker"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	requestIDHeader   = "X-Request-ID"
)

type LogService interface {
	List(ctx context.Context, q logview.Query) ([]logview.Entry, error)
	Projects(ctx context.Context) ([]tracker.Project, error)
}

type Server struct {
	addr   string
	engine *gin.Engine
}

func NewServer(cfg *config.Config, logs LogService) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), accessLog())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handler{logs: logs}
	api := engine.Group("/")
	if cfg.LogViewUser != "" {
		api.Use(gin.BasicAuth(gin.Accounts{cfg.LogViewUser: cfg.LogViewPassword}))
	}
	api.GET("/logs", h.listLogs)
	api.GET("/projects", h.listProjects)

	return &Server{addr: cfg.HTTPAddr, engine: engine}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("startup: log view listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("log view server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("log view shutdown failed: %w", err)
	}
	slog.Info("log view stopped")
	return nil
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
