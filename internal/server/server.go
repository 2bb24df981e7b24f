package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/elskow/authflow/internal/api"
	"github.com/elskow/authflow/internal/auth"
	"github.com/elskow/authflow/internal/config"
)

type Server struct {
	config      *config.AppConfig
	log         *zap.Logger
	engine      *gin.Engine
	httpServer  *http.Server
	authHandler *auth.Handler
	checker     *Checker
}

type Params struct {
	fx.In

	Config      *config.AppConfig
	Logger      *zap.Logger
	AuthHandler *auth.Handler
	Checker     *Checker
}

func NewServer(p Params) *Server {
	gin.SetMode(ginMode(p.Config.Server.Mode))

	engine := gin.New()
	engine.Use(requestLogger(p.Logger), gin.Recovery())
	// Same-origin deployments configure no origins and need no CORS.
	if cfg, ok := corsConfig(p.Config.Server); ok {
		engine.Use(cors.New(cfg))
	}

	server := &Server{
		config:      p.Config,
		log:         p.Logger,
		engine:      engine,
		authHandler: p.AuthHandler,
		checker:     p.Checker,
	}
	server.registerRoutes()

	server.httpServer = &http.Server{
		Addr:              net.JoinHostPort(p.Config.Server.Host, p.Config.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return server
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET(api.Health, s.health)

	s.authHandler.RegisterRoutes(s.engine.Group(api.AuthPrefix))

	if s.config.Server.ServeStatic() {
		s.engine.NoRoute(s.serveFrontend)
	} else {
		s.engine.NoRoute(notFound)
	}
}

func (s *Server) health(c *gin.Context) {
	if err := s.checker.Check(c.Request.Context()); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// serveFrontend serves the built single-page app. Unknown paths outside
// the API fall back to index.html so client-side routes resolve.
func (s *Server) serveFrontend(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, api.Prefix+"/") || c.Request.Method != http.MethodGet {
		notFound(c)
		return
	}

	root := s.config.Server.StaticDir
	path := filepath.Join(root, filepath.Clean("/"+c.Request.URL.Path))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		c.File(path)
		return
	}
	c.File(filepath.Join(root, "index.html"))
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"message": "not found",
	})
}

func (s *Server) Start() error {
	s.log.Info("Starting HTTP server",
		zap.String("address", s.httpServer.Addr),
		zap.Object("config", serverConfigToField(s.config)),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func serverConfigToField(config *config.AppConfig) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		enc.AddString("environment", config.Server.Mode)
		enc.AddString("client_url", config.Server.ClientURL)
		enc.AddBool("serve_static", config.Server.ServeStatic())
		enc.AddString("database", config.Database.Driver)
		enc.AddString("notify_transport", config.Notify.Transport)
		enc.AddString("notify_provider", config.Notify.Provider)
		return nil
	})
}

func ginMode(env string) string {
	switch env {
	case EnvProduction:
		return gin.ReleaseMode
	case EnvTesting:
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

func corsConfig(cfg config.ServerConfig) (cors.Config, bool) {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return cors.Config{}, false
	}
	c := cors.DefaultConfig()
	c.AllowOrigins = cfg.CORSAllowedOrigins
	c.AllowCredentials = true
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	return c, true
}

// requestLogger writes one structured line per request.
func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case status >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
