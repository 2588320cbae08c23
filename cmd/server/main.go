package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"codetracker/internal/api"
	"codetracker/internal/auth"
	"codetracker/internal/cache"
	"codetracker/internal/config"
	"codetracker/internal/db"
	"codetracker/internal/logger"
	"codetracker/internal/refresh"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	memoryMode := flag.Bool("memory", false, "run with an in-memory store instead of MongoDB")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zlog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	if cfg.Auth.JWTSecret == "" {
		zlog.Fatal("auth.jwt_secret must be set")
	}

	var store db.Store
	if *memoryMode {
		zlog.Warn("running with in-memory store, data will not survive restart")
		store = db.NewMemoryStore()
	} else {
		mongoStore, err := db.NewMongoStore(cfg.DB)
		if err != nil {
			zlog.Fatal("connect to mongodb", zap.Error(err))
		}
		store = mongoStore
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			zlog.Warn("close store", zap.Error(err))
		}
	}()

	var existsCache *cache.ExistsCache
	if cfg.Cache.Addr != "" {
		existsCache, err = cache.New(cfg.Cache)
		if err != nil {
			zlog.Fatal("connect to redis", zap.Error(err))
		}
		defer existsCache.Close()
	} else {
		zlog.Info("cache.addr not set, existence checks go straight to the store")
	}

	tokens := auth.NewTokenService(
		cfg.Auth.JWTSecret,
		cfg.Auth.Issuer,
		time.Duration(cfg.Auth.AccessTTLMin)*time.Minute,
		time.Duration(cfg.Auth.RefreshTTLHours)*time.Hour,
	)
	authService := auth.NewService(store, tokens)

	router := api.NewRouter(store, existsCache, authService, tokens, zlog)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Refresh.Enabled {
		refresher := refresh.New(store, cfg.Refresh, cfg.Tracker.Fetch.UserAgent, zlog.Named("refresh"))
		go refresher.Run(rootCtx)
		zlog.Info("metadata refresher started",
			zap.Int("interval_min", cfg.Refresh.IntervalMin),
			zap.Int("stale_after_hours", cfg.Refresh.StaleAfterHours),
		)
	}

	go func() {
		zlog.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
	zlog.Info("server stopped")
}
