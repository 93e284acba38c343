package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
	"bitbucket.org/mmdatafocus/purchases_backend/logsync"
	"bitbucket.org/mmdatafocus/purchases_backend/middlewares"
	"bitbucket.org/mmdatafocus/purchases_backend/models"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8081"

// Standalone sync worker. It serves the Pub/Sub push endpoint and a manual
// trigger, and optionally runs on a fixed interval when
// SYNC_INTERVAL_SECONDS is set.
func main() {
	_ = godotenv.Load()

	port := os.Getenv("SYNC_SERVICE_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	relay, err := logsync.NewHTTPRelayClientFromEnv()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "relay"}).Fatal("relay not configured: " + err.Error())
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
	r.Use(gin.Recovery())

	r.POST("/sync", logsync.TriggerSyncHandler(engine))
	r.GET("/sync/status", logsync.SyncStatusHandler())
	r.POST("/pubsub/sync", logsync.PubSubPushHandler(engine))

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
	}

	if interval := intervalFromEnv(); interval > 0 {
		go runOnInterval(sigCtx, logger, engine, interval)
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

func runOnInterval(ctx context.Context, logger *logrus.Logger, engine *logsync.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := engine.Run(ctx)
			if err != nil {
				if errors.Is(err, logsync.ErrSyncInProgress) {
					continue
				}
				logger.WithFields(logrus.Fields{"field": "sync"}).
					Error("scheduled sync finished with errors: " + err.Error() + " (" + result.Summary() + ")")
				continue
			}
			logger.WithFields(logrus.Fields{"field": "sync"}).Info("scheduled sync: " + result.Summary())
		}
	}
}

func intervalFromEnv() time.Duration {
	val := strings.TrimSpace(os.Getenv("SYNC_INTERVAL_SECONDS"))
	if val == "" {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
