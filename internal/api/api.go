// Package api exposes the playlist library over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glefebvre/iptvcore/internal/library"
	"github.com/glefebvre/iptvcore/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthFunc reports whether the durable tier is reachable
type HealthFunc func(ctx context.Context) error

// Options configures optional server behavior
type Options struct {
	AllowedOrigins []string
	Health         HealthFunc
	Logger         *logger.Logger
}

// Server represents the API server
type Server struct {
	router  *gin.Engine
	library *library.Library
	health  HealthFunc
	logger  *logger.Logger
	http    *http.Server
}

// NewServer creates a new API server instance
func NewServer(lib *library.Library, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.AppLogger()
	}

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(errorHandlerMiddleware(opts.Logger))
	router.Use(accessLogMiddleware(opts.Logger))
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	s := &Server{
		router:  router,
		library: lib,
		health:  opts.Health,
		logger:  opts.Logger,
	}

	s.setupRoutes()

	return s
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on the given port until Shutdown is called
func (s *Server) Run(port int) error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.WithFields(map[string]interface{}{"port": port}).Info("API server listening")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "X-Request-ID")
	cfg.ExposeHeaders = []string{"X-Request-ID"}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		playlists := v1.Group("/playlists")
		playlists.GET("", s.listPlaylists)
		playlists.POST("", s.createPlaylist)
		playlists.POST("/import", s.importPlaylist)
		playlists.GET("/:id", s.getPlaylist)
		playlists.PATCH("/:id", s.updatePlaylist)
		playlists.DELETE("/:id", s.deletePlaylist)
		playlists.POST("/:id/refresh", s.refreshPlaylist)
		playlists.GET("/:id/export", s.exportPlaylist)
		playlists.GET("/:id/groups", s.listGroups)
		playlists.GET("/:id/groups/:groupId/channels", s.groupChannels)

		v1.GET("/channels/search", s.searchChannels)
		v1.GET("/storage/stats", s.storageStats)
	}
}
