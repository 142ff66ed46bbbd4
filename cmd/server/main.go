package main

import (
	"context"
	"log"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/paytab/backend/api/handler"
	"github.com/paytab/backend/internal/config"
	"github.com/paytab/backend/internal/infrastructure/journal"
	"github.com/paytab/backend/internal/infrastructure/monitor"
	"github.com/paytab/backend/internal/middleware"
	"github.com/paytab/backend/internal/ratelimit"
	"github.com/paytab/backend/internal/router"
	"github.com/paytab/backend/internal/services"
	"github.com/paytab/backend/internal/services/lifecycle"
	"github.com/paytab/backend/internal/vault"
	"github.com/paytab/backend/pkg/httpcontext"
	"github.com/paytab/backend/pkg/logger"
	"github.com/paytab/backend/repository/memory"
	ledgerUC "github.com/paytab/backend/usecase/ledger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	journalStore, err := journal.Open(cfg.Journal.Path, cfg.Journal.Bucket)
	if err != nil {
		zapLogger.Fatal("failed to open settlement journal", zap.Error(err))
	}
	manager.Register("journal", func(ctx context.Context) error {
		return journalStore.Close()
	})

	vaultClient := vault.NewClient(vault.ClientConfig{
		RPCURL:      cfg.Vault.RPCURL,
		AccountKey:  cfg.Vault.AccountKey,
		CallTimeout: cfg.Vault.CallTimeout,
	}, zapLogger)

	breaker := vault.NewCircuitBreaker(vault.CircuitOptions{
		FailureThreshold: cfg.Vault.BreakerTrips,
		OpenDuration:     cfg.Vault.BreakerCooldown,
	})

	bridge := services.NewSettlementBridge(vaultClient, breaker, journalStore, cfg.Vault.CallTimeout, zapLogger)

	sessionRepo := memory.NewSessionRepository()
	limiter := ratelimit.New(cfg.Limiter.Window, cfg.Limiter.Threshold)
	ledger := ledgerUC.New(sessionRepo, bridge, limiter, cfg.Vault.MerchantAddress, zapLogger)

	mon := monitor.New(breaker, journalStore, cfg.Monitor.Interval, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	divergence := services.NewDivergenceReporter(ledger, zapLogger, services.ReporterConfig{
		Interval: cfg.Monitor.SweepInterval,
	})
	divergence.Start()
	manager.Register("divergence_reporter", func(ctx context.Context) error {
		divergence.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Session: apiHandler.NewSessionHandler(ledger, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, divergence, ctxAdapter, zapLogger),
	}

	traffic := middleware.Traffic(cfg.Traffic.PerSecond, cfg.Traffic.Burst, zapLogger)
	r := router.New(handlers, traffic)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
