package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/logger"
	"github.com/joho/godotenv"

	"matchday-backend/config"
	"matchday-backend/internal/api"
	"matchday-backend/internal/db"
	"matchday-backend/internal/ledger"
	"matchday-backend/internal/match"
	"matchday-backend/internal/notification"
	"matchday-backend/internal/ranking"
	"matchday-backend/internal/roster"
	"matchday-backend/internal/schedule"
	"matchday-backend/internal/stats"
	"matchday-backend/internal/store"
	"matchday-backend/internal/store/redisstore"
	"matchday-backend/internal/voting"
)

func main() {
	defer logger.Init("matchd", true, false, io.Discard).Close()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warningf("failed to read .env: %v", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Infof("configuration loaded successfully from %s", configPath)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	var occurrences ledger.Store = appStore
	if cfg.Ledger.Backend == "redis" {
		rdb, err := redisstore.NewClient(ctx, cfg.Redis.Addrs, cfg.Redis.Password)
		if err != nil {
			logger.Fatalf("failed to initialize redis ledger: %v", err)
		}
		defer rdb.Close()
		occurrences = redisstore.New(rdb)
	}
	slotLedger := ledger.New(occurrences, cfg.Ledger.MaxAttempts)
	logger.Infof("slot ledger ready (backend %s, max attempts %d)", cfg.Ledger.Backend, cfg.Ledger.MaxAttempts)

	var announcer match.Announcer
	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Warningf("VAPID keys are not configured; announcements are disabled")
	} else {
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
		pool.Start(ctx)
		announcer = pool
	}

	publisher := ranking.NewPublisher(appStore, slotLedger)
	matches := match.NewService(
		slotLedger,
		roster.NewService(slotLedger),
		stats.NewRecorder(slotLedger),
		voting.NewService(slotLedger, appStore),
		publisher,
		announcer,
	)

	var runner *schedule.Runner
	if cfg.Scheduler.Enabled {
		loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
		if err != nil {
			logger.Fatalf("invalid scheduler timezone %q: %v", cfg.Scheduler.Timezone, err)
		}
		runner = schedule.NewRunner(schedule.Config{
			Location:      loc,
			Hour:          cfg.Scheduler.Hour,
			Minute:        cfg.Scheduler.Minute,
			LookaheadDays: cfg.Scheduler.LookaheadDays,
		}, appStore, matches)
		if err := runner.Start(ctx); err != nil {
			logger.Fatalf("failed to start scheduler: %v", err)
		}
	}

	handler := api.NewHandler(appStore, matches, publisher, &webpushOptions)
	if cfg.Ledger.Backend == "redis" {
		handler.DisableOccurrenceListing()
	}
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:        time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		RequestTimeout:  cfg.Ledger.Timeout,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Infof("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Infof("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server Shutdown: %v", err)
	}
	if runner != nil {
		if err := runner.Stop(); err != nil {
			logger.Errorf("scheduler shutdown: %v", err)
		}
	}
	cancel()

	logger.Infof("Server gracefully stopped")
}
