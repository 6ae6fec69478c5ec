package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"traffic-server/internal/domain"
	"traffic-server/internal/engine"
	"traffic-server/internal/version"
	"traffic-server/pkg/api"
	"traffic-server/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// commandTimeout bounds how long a request waits for the loop to apply a toggle.
const commandTimeout = 5 * time.Second

type Server struct {
	Service *engine.Service
	Port    string

	router *gin.Engine
	http   *http.Server
}

func New(svc *engine.Service, port string) *Server {
	s := &Server{
		Service: svc,
		Port:    port,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:              ":" + port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Run() error {
	logger.Log.WithField("port", s.Port).Info("Traffic server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.Default())

	r.GET("/health", s.handleHealth)
	r.GET("/version", s.handleVersion)
	r.GET("/ws", s.handleWS)

	apiGroup := r.Group("/api")
	apiGroup.GET("/snapshot", s.handleSnapshot)
	apiGroup.POST("/obstacles", s.handleObstacle)

	NewDebugHandler(s.Service).RegisterRoutes(r.Group("/debug"))
	return r
}

// requestLogger replaces gin's default logger with the process logrus logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log.WithFields(logrus.Fields{
			"component": "http",
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"duration":  time.Since(start).String(),
		}).Debug("Request served")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, version.Current())
}

// handleSnapshot returns the last published state. ?format=binary returns
// the protobuf frame instead of JSON.
func (s *Server) handleSnapshot(c *gin.Context) {
	snap := s.Service.Snapshot()
	if c.Query("format") != "binary" {
		c.JSON(http.StatusOK, snap)
		return
	}
	data, err := api.EncodeFrame(api.FrameFromSnapshot(snap))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/x-protobuf", data)
}

func (s *Server) handleObstacle(c *gin.Context) {
	var req api.ObstacleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), commandTimeout)
	defer cancel()

	at := domain.Coord{Row: req.Row, Col: req.Col}
	if err := s.Service.ToggleObstacle(ctx, at, req.Add, "http"); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, req)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidCell):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
