package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"benepick/server/middleware"
)

// Server owns the HTTP surface and the background scheduler.
type Server struct {
	container  *Container
	httpServer *http.Server

	handlerOnce    sync.Once
	httpHandler    http.Handler
	handlerInitErr error

	schedulerCtx    context.Context
	schedulerCancel context.CancelFunc

	startTime time.Time
}

func NewServer(container *Container) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		container:       container,
		schedulerCtx:    ctx,
		schedulerCancel: cancel,
		startTime:       time.Now(),
	}
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	handler, err := s.ensureHTTPHandler()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%s", s.container.Config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.container.Scheduler.Start(s.schedulerCtx)

	log.Printf("Starting HTTP server on %s...", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the scheduler goroutines and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Initiating graceful shutdown...")
	s.schedulerCancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to stop http server: %w", err)
		}
	}

	log.Println("Graceful shutdown completed")
	return nil
}

// ServeHTTP implements http.Handler for tests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler, err := s.ensureHTTPHandler()
	if err != nil {
		http.Error(w, "server is not initialized", http.StatusInternalServerError)
		return
	}
	handler.ServeHTTP(w, r)
}

func (s *Server) ensureHTTPHandler() (http.Handler, error) {
	s.handlerOnce.Do(func() {
		s.httpHandler = s.buildHTTPHandler()
	})
	if s.handlerInitErr != nil {
		return nil, s.handlerInitErr
	}
	return s.httpHandler, nil
}

func (s *Server) buildHTTPHandler() http.Handler {
	if ginMode := os.Getenv("GIN_MODE"); ginMode == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.GinRequestIDMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.GinGzipMiddleware())
	router.Use(middleware.GinLoggerMiddleware())
	router.Use(middleware.GinRecoveryMiddleware())

	s.registerRoutes(router)
	return router
}

func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/health", s.handleHealth)

	api := router.Group("/api")

	recommendationsAPI := api.Group("/recommendations")
	{
		recommendationsAPI.POST("/simulate", s.handleSimulate)
		recommendationsAPI.GET("/history", s.handleRecentRuns)

		recommendationsAPI.GET("/quality/latest", s.handleQualityLatest)
		recommendationsAPI.POST("/quality/recompute", s.handleQualityRecompute)
		recommendationsAPI.GET("/quality/export", s.handleQualityExport)

		recommendationsAPI.GET("/:runId", s.handleGetRun)
		recommendationsAPI.GET("/:runId/analytics", s.handleRunAnalytics)
		recommendationsAPI.POST("/:runId/redirect", s.handleRedirect)
	}

	catalogAPI := api.Group("/catalog")
	{
		catalogAPI.POST("/sync/finlife", s.handleSyncFinlife)
		catalogAPI.POST("/sync/cards/external", s.handleSyncCards)
		catalogAPI.GET("/sync/status", s.handleSyncStatus)
		catalogAPI.GET("/summary", s.handleCatalogSummary)
		catalogAPI.GET("/search", s.handleCatalogSearch)
	}
}
