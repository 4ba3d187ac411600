package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"ProductsAPI/internal/config"
	"ProductsAPI/internal/migrate"
	"ProductsAPI/internal/product"
	"ProductsAPI/pkg/kit"
)

const startupTimeout = 30 * time.Second

func main() {
	service := "products"

	cfg, err := config.Load(config.Options{})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := kit.NewLogger(service, cfg.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("config loaded", zap.Stringer("config", cfg))

	store, closeStore, err := openStore(cfg)
	if err != nil {
		logger.Fatal("open store failed", zap.Error(err))
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h := product.NewHandler(&product.Server{Store: store, Log: logger}, product.HTTPDeps{
		Log:             logger,
		Service:         service,
		Registry:        reg,
		APIKey:          cfg.APIKey,
		MetricsEnabled:  cfg.MetricsEnabled,
		MetricsToken:    cfg.MetricsToken,
		CORSOrigins:     cfg.AllowedOrigins(),
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	if err := kit.RunHTTPServer(cfg.Addr(), h, logger, cfg.ShutdownTimeout); err != nil {
		logger.Fatal("http server stopped", zap.Error(err))
	}
}

func openStore(cfg config.Config) (product.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return product.NewMemStore(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
		return nil, nil, err
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	store := product.NewPostgresStore(db)
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping db: %w", err)
	}
	return store, func() { _ = db.Close() }, nil
}
