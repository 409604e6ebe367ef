// Package api exposes the read-only query surface and the collection
// trigger over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"price-tracker/internal/alerts"
	"price-tracker/internal/collector"
	"price-tracker/internal/config"
	apperrors "price-tracker/internal/errors"
	"price-tracker/internal/models"
	"price-tracker/internal/store"
)

const defaultHistoryDays = 30

// Server wires the HTTP handlers over the collector, store and alert
// engine.
type Server struct {
	store     store.DataStore
	collector *collector.Collector
	alerts    *alerts.Engine
	cfg       config.ServerConfig
	logger    zerolog.Logger
}

// NewServer creates the HTTP server.
func NewServer(dataStore store.DataStore, c *collector.Collector, engine *alerts.Engine, cfg config.ServerConfig, logger zerolog.Logger) *Server {
	return &Server{
		store:     dataStore,
		collector: c,
		alerts:    engine,
		cfg:       cfg,
		logger:    logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(s.requestLogger())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/run", s.triggerRun)
	router.GET("/api/status", s.runStatus)
	router.GET("/api/latest", s.latestPrices)
	router.GET("/api/prices", s.priceHistory)
	router.GET("/api/alerts", s.priceAlerts)
	router.GET("/api/stats", s.summaryStats)

	router.GET("/products", s.listProducts)
	router.POST("/products", s.addProduct)
	router.DELETE("/products/:id", s.deleteProduct)

	return router
}

// ListenAndServe runs the HTTP server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", s.cfg.Port).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
}

// triggerRun starts a collection run in the background. The run token
// guards external triggers; a second trigger while a run is active is
// rejected, never queued.
func (s *Server) triggerRun(c *gin.Context) {
	if s.cfg.RunToken != "" {
		auth := c.GetHeader("Authorization")
		if !strings.EqualFold(strings.TrimSpace(auth), "Bearer "+s.cfg.RunToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid run token"})
			return
		}
	}

	if s.collector.Status().State == models.RunRunning {
		c.JSON(http.StatusConflict, gin.H{"status": "already_running"})
		return
	}

	go func() {
		stats, err := s.collector.Run(context.Background())
		if err != nil {
			if apperrors.Is(err, apperrors.ErrRunInProgress) {
				return
			}
			s.logger.Error().Err(err).Msg("Collection run failed")
			recordRunMetrics(0, 0, true)
			return
		}
		recordRunMetrics(stats.Priced, stats.Errored, false)
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (s *Server) runStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.collector.Status())
}

func (s *Server) latestPrices(c *gin.Context) {
	records, err := s.store.LatestAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) priceHistory(c *gin.Context) {
	productID, err := strconv.ParseInt(c.Query("product_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}

	days := defaultHistoryDays
	if v := c.Query("days"); v != "" {
		days, err = strconv.Atoi(v)
		if err != nil || days < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
			return
		}
	}

	records, err := s.store.History(c.Request.Context(), store.HistoryFilter{
		ProductID: productID,
		Store:     c.Query("store"),
		Days:      days,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) priceAlerts(c *gin.Context) {
	threshold := 0.0
	if v := c.Query("threshold"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be a non-negative number"})
			return
		}
		threshold = parsed
	}

	found, err := s.alerts.Detect(c.Request.Context(), threshold)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, found)
}

func (s *Server) summaryStats(c *gin.Context) {
	stats, err := s.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) listProducts(c *gin.Context) {
	products, err := s.store.ListProducts(c.Request.Context(), false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, products)
}

type addProductRequest struct {
	Name        string            `json:"name" binding:"required"`
	SearchQuery string            `json:"search_query"`
	Category    string            `json:"category"`
	OwnBrand    bool              `json:"own_brand"`
	URLs        map[string]string `json:"urls"`
}

func (s *Server) addProduct(c *gin.Context) {
	var req addProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	id, err := s.store.AddProduct(c.Request.Context(), &models.Product{
		Name:        req.Name,
		SearchQuery: req.SearchQuery,
		Category:    req.Category,
		OwnBrand:    req.OwnBrand,
		URLs:        req.URLs,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "name": req.Name})
}

func (s *Server) deleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return
	}

	if err := s.store.DeleteProduct(c.Request.Context(), id); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
