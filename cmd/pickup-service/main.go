package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/zsmoke/pickup-service/internal/catalog"
	"github.com/zsmoke/pickup-service/internal/eventlog"
	eventsqlite "github.com/zsmoke/pickup-service/internal/eventlog/sqlite"
	"github.com/zsmoke/pickup-service/internal/httpx"
	"github.com/zsmoke/pickup-service/internal/lifecycle"
	"github.com/zsmoke/pickup-service/internal/messaging"
	"github.com/zsmoke/pickup-service/internal/negotiation"
	"github.com/zsmoke/pickup-service/internal/pkg/clock"
	"github.com/zsmoke/pickup-service/internal/pkg/config"
	"github.com/zsmoke/pickup-service/internal/pkg/telemetry"
	"github.com/zsmoke/pickup-service/internal/store"
)

const serviceName = "pickup-service"

func main() {
	telemetry.InitLogger(serviceName)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		shutdown, err := telemetry.SetupTracer(ctx, serviceName)
		if err != nil {
			slog.Error("tracing setup failed", "error", err)
			os.Exit(1)
		}
		defer func() { _ = shutdown(context.Background()) }()
	}

	clk := clock.Real{}

	var (
		orderStore store.OrderStore
		products   catalog.Catalog
	)
	switch cfg.StoreBackend {
	case "redis":
		rs := store.NewRedisStore(cfg.RedisAddr, clk)
		if err := rs.Ping(ctx); err != nil {
			slog.Error("redis unavailable", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer rs.Close()
		orderStore = rs

		rc := catalog.NewRedisCatalog(cfg.RedisAddr)
		defer rc.Close()
		products = rc
	case "memory":
		orderStore = store.NewMemoryStore(clk)
		products = catalog.NewMemoryCatalog()
		slog.Warn("using in-memory store; orders are lost on restart")
	}

	var events eventlog.Repository
	if cfg.EventLogPath != "" {
		repo, err := eventsqlite.Open(cfg.EventLogPath)
		if err != nil {
			slog.Error("event log unavailable", "path", cfg.EventLogPath, "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		events = repo
	}

	var provider messaging.Provider = messaging.LogProvider{}
	if cfg.SMSProvider == "twilio" {
		provider = messaging.NewTwilioProvider(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
	}
	gateway := messaging.NewGateway(provider, clk, cfg.StorePhones)

	engine := lifecycle.NewEngine(orderStore, products, events, messaging.NewNotifier(gateway), clk)
	protocol := negotiation.NewProtocol(orderStore, products, gateway, events, clk)
	sweeper := lifecycle.NewSweeper(orderStore, engine)

	if cfg.SweepInterval > 0 {
		go sweeper.Run(ctx, cfg.SweepInterval)
	}

	handler := httpx.NewHandler(orderStore, engine, protocol, sweeper, events, cfg.CronSecret)
	router := httpx.NewRouter(handler)

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	slog.Info("pickup-service listening", "addr", cfg.HTTPAddr, "store", cfg.StoreBackend, "sms", cfg.SMSProvider)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
}
