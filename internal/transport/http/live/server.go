package livehttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"papertrade/internal/logger"
	"papertrade/internal/observability"

	"github.com/gin-gonic/gin"
)

// Server serves the REST API, the market websocket feed and /metrics.
type Server struct {
	addr   string
	router *gin.Engine
	hub    *Hub
}

// ServerConfig describes the HTTP server's dependencies.
type ServerConfig struct {
	Addr    string
	Service Service
	Metrics *observability.Metrics
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("http server requires a simulation service")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":5000"
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Metrics))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	hub := NewHub(cfg.Service.Market, cfg.Metrics)
	cfg.Service.Subscribe(hub.Publish)
	router.GET("/ws/market", hub.Serve)

	NewRouter(cfg.Service).Register(router.Group("/api"))

	return &Server{addr: cfg.Addr, router: router, hub: hub}, nil
}

// requestLogger logs every request and feeds the HTTP metrics. Routes are
// labelled by their pattern so usernames do not explode cardinality.
func requestLogger(metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(method, route, status, dur)
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is canceled or the listener fails. Websocket
// clients are disconnected on shutdown.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("HTTP server listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.hub.Close()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		s.hub.Close()
		return err
	}
}
