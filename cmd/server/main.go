package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/codingrush01/murlidhar-mobiles/internal/cache"
	"github.com/codingrush01/murlidhar-mobiles/internal/config"
	"github.com/codingrush01/murlidhar-mobiles/internal/domain"
	"github.com/codingrush01/murlidhar-mobiles/internal/feed"
	"github.com/codingrush01/murlidhar-mobiles/internal/httpapi"
	"github.com/codingrush01/murlidhar-mobiles/internal/liveview"
	"github.com/codingrush01/murlidhar-mobiles/internal/logger"
	"github.com/codingrush01/murlidhar-mobiles/internal/service"
	"github.com/codingrush01/murlidhar-mobiles/internal/settings"
	"github.com/codingrush01/murlidhar-mobiles/internal/store"
	"github.com/codingrush01/murlidhar-mobiles/internal/store/memory"
	pgstore "github.com/codingrush01/murlidhar-mobiles/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stdout"})
	defer func() { _ = log.Sync() }()

	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal("invalid security configuration", zap.Error(err))
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	hub := feed.NewHub(log)
	closers := make([]func() error, 0, 3)

	var docs store.DocumentStore
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, hub)
		if err != nil {
			log.Fatal("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", zap.Error(err))
		}
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal("migrate failed", zap.Error(err))
		}
		docs = pg
		closers = append(closers, pg.Close)
		log.Info("document store: postgres")
	} else {
		docs = memory.NewSeeded(hub, log)
		log.Info("document store: in-memory")
	}

	dashboardCache := cache.DashboardCache(cache.NoopDashboardCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisDashboardCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Warn("redis unavailable, using noop cache and local change feed", zap.Error(err))
			_ = redisCache.Close()
		} else {
			dashboardCache = redisCache
			closers = append(closers, redisCache.Close)

			bridge := feed.NewRedisBridge(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisChannel, hub, log)
			if err := bridge.Start(rootCtx); err != nil {
				log.Warn("redis change feed unavailable", zap.Error(err))
				_ = bridge.Close()
			} else {
				closers = append(closers, bridge.Close)
				log.Info("cache: redis", zap.String("channel", cfg.RedisChannel))
			}
		}
	} else {
		log.Info("cache: noop")
	}

	fallback := domain.Settings{LowStockQty: cfg.DefaultLowStockQty, LowStockValue: cfg.DefaultLowStockValue}
	cfgStore := settings.New(docs, fallback, log)
	if _, err := cfgStore.Load(ctx); err != nil {
		log.Warn("settings unavailable, using defaults", zap.Error(err))
	}
	stopWatch := cfgStore.Watch(rootCtx)
	defer stopWatch()

	view := liveview.New(docs, log)
	stopView, err := view.Start(rootCtx)
	if err != nil {
		log.Warn("live inventory view unavailable, reads go to the store", zap.Error(err))
	} else {
		defer stopView()
	}

	svc := service.New(docs, cfgStore, service.Options{
		View:     view,
		Cache:    dashboardCache,
		CacheTTL: time.Duration(cfg.DashboardCacheTTLSeconds) * time.Second,
		Logger:   log,
	})

	if cfg.SeedAdminPassword != "" {
		created, err := svc.EnsureAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
		if err != nil {
			log.Fatal("seed admin failed", zap.Error(err))
		}
		if created {
			log.Info("seeded admin account", zap.String("email", cfg.SeedAdminEmail))
		}
	}

	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, svc)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin, log)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("inventory backend listening", zap.String("addr", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown error", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Warn("close error", zap.Error(err))
		}
	}

	hub.Wait()
	log.Info("server stopped")
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.SeedAdminPassword != "" && len(cfg.SeedAdminPassword) < 8 {
		return fmt.Errorf("SEED_ADMIN_PASSWORD must be at least 8 characters")
	}
	return nil
}
