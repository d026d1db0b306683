package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsboard/internal/config"
	"newsboard/internal/db"
	"newsboard/internal/logging"
	"newsboard/internal/metrics"
	"newsboard/internal/router"
	"newsboard/internal/services"
	"newsboard/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// openStore 按配置选择存储后端，返回的 cleanup 在退出时调用
func openStore(ctx context.Context, cfg *config.Config, clock clockwork.Clock, log *zap.Logger) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		rdb, err := store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using redis store")
		return store.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil
	case config.BackendPostgres:
		gdb, err := db.Open(cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using postgres store")
		return store.NewGormStore(gdb, clock), func() {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	default:
		log.Warn("using in-memory store, data is lost on restart")
		return store.NewMemoryStore(clock), func() {}, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not ready yet
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("newsboard starting", zap.String("env", cfg.AppEnv), zap.String("port", cfg.Port))

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	clock := clockwork.NewRealClock()
	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	st, closeStore, err := openStore(connectCtx, cfg, clock, logger)
	cancel()
	if err != nil {
		logger.Fatal("failed to open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	reg := metrics.NewRegistry()
	board, err := services.NewBoard(st, clock, services.SettingsFromConfig(cfg), logger, metrics.NewBoardMetrics(reg))
	if err != nil {
		logger.Fatal("failed to build board", zap.Error(err))
	}

	r := router.New(router.Options{
		Board:         board,
		Log:           logger,
		Registry:      reg,
		SessionSecret: cfg.SessionSecret,
		Secure:        cfg.AppEnv == "production",
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, cleaning up")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}
