package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shoplist/internal/cache"
	"shoplist/internal/config"
	"shoplist/internal/controller"
	"shoplist/internal/database"
	"shoplist/internal/metrics"
	"shoplist/internal/queue"
	"shoplist/internal/repository"
	"shoplist/internal/routes"
	"shoplist/internal/session"
	"shoplist/internal/throttle"
	"shoplist/internal/worker"
	"shoplist/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	ctx := context.Background()
	// Variables already in the environment win over .env.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn(ctx, "Failed to read .env", "error", err)
	}
	logger.InitFromEnv()

	cfg := config.Get()
	gin.SetMode(gin.ReleaseMode)

	db := database.InitDB(ctx)
	if db == nil {
		logger.Error(ctx, "Database not available; exiting")
		os.Exit(1)
	}
	dialect := database.Dialect(cfg.DatabaseDriver)
	if err := database.MigrateOrCreateSchema(ctx, db, dialect); err != nil {
		logger.Error(ctx, "Schema migration failed", "error", err)
		os.Exit(1)
	}
	items := repository.NewItems(db, dialect)

	// Redis is optional: without it the cache is off and sessions and the
	// login throttle live in process memory.
	rdb := cache.Client(ctx)
	itemCache := cache.NewItems(rdb, time.Duration(cfg.CacheTTL)*time.Second)

	creds, err := session.NewCredentials(cfg.AdminUsername, cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		logger.Error(ctx, "Invalid admin credentials", "error", err)
		os.Exit(1)
	}
	if os.Getenv("SECRET_KEY") == "" {
		logger.Warn(ctx, "SECRET_KEY not set; sessions will not survive a restart")
	}
	sessions := session.NewManager(session.NewStore(ctx, rdb), cfg.SecretKey, cfg.SessionLifetime)
	th := throttle.New(throttle.NewStore(ctx, rdb))

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	events := queue.Producer(ctx)
	queue.EnsureTopic(ctx)
	defer func() {
		if err := events.Close(); err != nil {
			logger.Error(ctx, "Kafka producer close failed", "error", err)
		}
	}()

	workerCtx, stopWorker := context.WithCancel(ctx)
	defer stopWorker()
	go worker.Run(workerCtx, worker.NewWarmer(items, itemCache))

	router, err := routes.Router(routes.Deps{
		Items:          controller.NewItems(items, itemCache, events, m),
		Auth:           controller.NewAuth(sessions, creds, th, m),
		Health:         controller.NewHealth(items, rdb),
		Sessions:       sessions,
		Throttle:       th,
		Metrics:        m,
		ForceHTTPS:     cfg.ForceHTTPS,
		TrustedProxies: cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error(ctx, "Invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		var err error
		if fileExists(cfg.TLSCert) && fileExists(cfg.TLSKey) {
			logger.Info(ctx, "HTTPS server listening", "port", cfg.HTTPPort)
			err = server.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			logger.Warn(ctx, "TLS certificate not found; serving plain HTTP", "cert", cfg.TLSCert)
			logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort)
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server")
	stopWorker()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown error", "error", err)
	}
	if err := db.Close(); err != nil {
		logger.Error(ctx, "Database close failed", "error", err)
	}
	logger.Info(ctx, "Server stopped")
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
