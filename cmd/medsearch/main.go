package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rx-radar/medsearch/internal/config"
	dbRedis "github.com/rx-radar/medsearch/internal/db/redis"
	logpkg "github.com/rx-radar/medsearch/internal/logger"
	"github.com/rx-radar/medsearch/internal/metrics"
	searchreqrepo "github.com/rx-radar/medsearch/internal/repository/searchreq"
	userrepo "github.com/rx-radar/medsearch/internal/repository/user"
	"github.com/rx-radar/medsearch/internal/session"
	chiTransport "github.com/rx-radar/medsearch/internal/transport/chi"
	"github.com/rx-radar/medsearch/internal/version"
	healthuc "github.com/rx-radar/medsearch/internal/usecase/health"
	searchuc "github.com/rx-radar/medsearch/internal/usecase/search"
)

func main() {
	// .env first so ENV and ${VAR} references in the YAML can come from it
	if err := config.LoadDotEnv(); err != nil {
		panic("failed to load .env: " + err.Error())
	}

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting medsearch API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("search_path", cfg.HTTP.SearchPath),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
	)

	// Redis and Valkey both speak RESP3 with the JSON module; one rueidis store serves both drivers.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterHTTPMetrics()
	metrics.RegisterSearchMetrics()

	verifier, err := session.NewVerifier(session.Config{
		HMACSecret: cfg.Session.HMACSecret,
		CertURL:    cfg.Session.CertURL,
		Issuer:     cfg.Session.Issuer,
		Audience:   cfg.Session.Audience,
		Leeway:     time.Duration(cfg.Session.LeewaySec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create session verifier", zap.Error(err))
	}

	// Repositories
	users := userrepo.New(store, cfg.Storage.KeyPrefix, cfg.Collections.Users)
	requests := searchreqrepo.New(store, cfg.Storage.KeyPrefix, searchreqrepo.Collections{
		Immediate: cfg.Collections.SearchRequests,
		Pending:   cfg.Collections.PendingSearchRequests,
	})

	// Use case services
	searchSvc := searchuc.New(verifier, users, users, requests)
	if cfg.RateLimit.Enabled {
		searchSvc.WithRateLimit(time.Duration(cfg.RateLimit.WindowSec) * time.Second)
	}

	var extras []healthuc.Checker
	if cfg.Session.CertURL != "" {
		extras = append(extras, verifier)
	}
	healthSvc := healthuc.New(store, extras...)

	server := chiTransport.NewServer(searchSvc, healthSvc, logger).
		WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		SearchPath:    cfg.HTTP.SearchPath,
		AllowedOrigin: cfg.HTTP.AllowedOrigin,
		APIKeys:       cfg.Auth.APIKeys,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
