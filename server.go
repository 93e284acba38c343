package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
	"bitbucket.org/mmdatafocus/purchases_backend/handlers"
	"bitbucket.org/mmdatafocus/purchases_backend/logsync"
	"bitbucket.org/mmdatafocus/purchases_backend/middlewares"
	"bitbucket.org/mmdatafocus/purchases_backend/models"
	"bitbucket.org/mmdatafocus/purchases_backend/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

func main() {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	var relay logsync.RelayClient
	relayClient, err := logsync.NewHTTPRelayClientFromEnv()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "relay"}).Warn("relay not configured: " + err.Error())
	} else {
		relay = relayClient
	}
	engine := logsync.NewEngine(logger, relay)

	r := gin.New()
	r.Use(middlewares.CorrelationIdMiddleware())
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "X-Correlation-Id")
	corsConfig.AddExposeHeaders("Content-Length", "X-Correlation-Id")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.AuthMiddleware())
	r.Use(requestLogger(logger))
	r.Use(gin.Recovery())

	r.POST("/api/auth/login", handlers.LoginHandler())

	api := r.Group("/api", middlewares.RequireAuth())
	{
		api.POST("/users", handlers.RegisterUserHandler())

		api.POST("/purchase-records/batch", handlers.SaveRecordBatchHandler())
		api.POST("/purchase-records/post", handlers.PostRecordsHandler())
		api.POST("/purchase-records/delete-component", handlers.DeleteComponentHandler())
		api.GET("/purchase-records", handlers.ListPurchaseRecordsHandler())
		api.GET("/purchase-records/:id", handlers.GetPurchaseRecordHandler())
		api.GET("/components/:key/records", handlers.GetComponentRecordsHandler())

		api.GET("/vendors", handlers.ListVendorsHandler())
		api.POST("/vendors", handlers.CreateVendorHandler())
		api.PUT("/vendors/:id", handlers.UpdateVendorHandler())
		api.DELETE("/vendors/:id", handlers.DeleteVendorHandler())

		api.GET("/items", handlers.ListItemsHandler())
		api.POST("/items", handlers.CreateItemHandler())
		api.PUT("/items/:id", handlers.UpdateItemHandler())
		api.DELETE("/items/:id", handlers.DeleteItemHandler())

		api.GET("/categories", handlers.ListCategoriesHandler())
		api.POST("/categories", handlers.CreateCategoryHandler())
		api.DELETE("/categories/:id", handlers.DeleteCategoryHandler())
		api.GET("/subcategories", handlers.ListSubcategoriesHandler())
		api.POST("/subcategories", handlers.CreateSubcategoryHandler())

		api.GET("/activity-logs", handlers.ListActivityLogsHandler())

		api.POST("/sync", logsync.TriggerSyncHandler(engine))
		api.GET("/sync/status", logsync.SyncStatusHandler())
	}

	// Pub/Sub push endpoint for the sync trigger topic.
	r.POST("/pubsub/sync", logsync.PubSubPushHandler(engine))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()

	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	select {
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.WithFields(logrus.Fields{"field": "server"}).Error(err)
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		logger.WithFields(logrus.Fields{
			"status":         c.Writer.Status(),
			"method":         c.Request.Method,
			"path":           c.Request.URL.Path,
			"latency":        latency.String(),
			"correlation_id": cid,
		}).Info("request")
	}
}
