package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/AuctionLedger/internal/audit"
	"github.com/jmerrifield20/AuctionLedger/internal/auction/handler"
	"github.com/jmerrifield20/AuctionLedger/internal/auction/service"
	"github.com/jmerrifield20/AuctionLedger/internal/identity"
	"github.com/jmerrifield20/AuctionLedger/internal/txlog"
	"github.com/jmerrifield20/AuctionLedger/internal/webhooks"
	"go.uber.org/zap"
)

type routerConfig struct {
	CORSOrigins  []string
	RateLimitRPS int
}

// newRouter assembles the middleware stack and mounts every route.
// tokens, auditor and hooks may be nil.
func newRouter(ctx context.Context, cfg routerConfig, svc *service.CommodityService, log txlog.Log, auditor *audit.Auditor, hooks *webhooks.Service, tokens *identity.TokenIssuer, logger *zap.Logger) *gin.Engine {
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", identity.HeaderClientID, identity.HeaderMSPID},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(cfg.CORSOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// Request body size limit (1 MB)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
		c.Next()
	})

	router.Use(handler.PrometheusMiddleware())
	if cfg.RateLimitRPS > 0 {
		router.Use(handler.RateLimiter(ctx, cfg.RateLimitRPS, cfg.RateLimitRPS*2))
	}
	router.Use(requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", handler.MetricsHandler())

	ledgerHandler := handler.NewLedgerHandler(log, logger)
	if auditor != nil {
		ledgerHandler.SetAuditor(auditor)
	}

	v1 := router.Group("/api/v1")
	handler.NewCommodityHandler(svc, tokens, logger).Register(v1)
	ledgerHandler.Register(v1)
	if hooks != nil {
		webhooks.NewHandler(hooks, tokens, logger).Register(v1)
	}

	return router
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
