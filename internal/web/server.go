package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskfocus/taskfocus/internal/config"
	"github.com/taskfocus/taskfocus/internal/metrics"
)

// RequestIDHeader carries the id assigned to every request
const RequestIDHeader = "X-Request-ID"

type Server struct {
	config  *config.Config
	handler *Handler
	router  *gin.Engine
	server  *http.Server
	logger  *zap.Logger
}

func NewServer(cfg *config.Config, deps Deps, customPort int) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	deps.Logger = logger

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := NewHandler(cfg, deps)
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(logger))
	if deps.Metrics != nil {
		router.Use(metrics.Middleware(deps.Metrics))
	}
	handler.SetupRoutes(router)

	port := cfg.Web.Port
	if customPort > 0 {
		port = customPort
	}

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, port)
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: handler,
		router:  router,
		server:  httpServer,
		logger:  logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting web server", zap.String("addr", "http://"+s.server.Addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down web server")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// Websocket sessions and scrapes would flood the log
		if c.FullPath() == "/ws" || c.FullPath() == "/metrics" {
			return
		}
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
			zap.String("caller", c.GetHeader(CallerHeader)))
	}
}
