package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tickgate/tickgate/internal/config"
	"github.com/tickgate/tickgate/internal/cron"
	"github.com/tickgate/tickgate/internal/handler"
	"github.com/tickgate/tickgate/internal/pipeline"
	"github.com/tickgate/tickgate/internal/pkg/crypto"
	"github.com/tickgate/tickgate/internal/pkg/logger"
	"github.com/tickgate/tickgate/internal/repository"
	"github.com/tickgate/tickgate/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level)

	logger.Info("booting",
		"port", cfg.Server.Port,
		"runner_enabled", cfg.Runner.Enabled,
		"sweep_interval", cfg.Runner.SweepInterval().String(),
		"cooldown_sec", cfg.Runner.CooldownSec,
		"lock_ttl_sec", cfg.Runner.LockTTLSec,
		"breaker_threshold", cfg.Runner.BreakerThreshold,
		"metrics_enabled", cfg.Metrics.Enabled,
	)

	key, err := crypto.KeyFromString(cfg.Crypto.EncryptionKey)
	if err != nil {
		logger.Error("encryption key invalid", "error", err)
		os.Exit(1)
	}
	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		logger.Error("encryptor init failed", "error", err)
		os.Exit(1)
	}

	// Postgres with in-memory fallback for local development.
	var (
		strategies service.StrategyStore
		ticks      service.TickStore
		risk       service.RiskStore
	)
	if cfg.Database.DSN != "" {
		db, err := repository.OpenDB(cfg.Database.DSN)
		if err != nil {
			logger.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		pg := repository.NewPGStore(db)
		strategies, ticks, risk = pg, pg, pg
		logger.Info("using postgres store")
	} else {
		mem := service.NewMemoryStore()
		strategies, ticks, risk = mem, mem, mem
		logger.Warn("no database DSN configured, using in-memory store")
	}

	// Redis lock with in-process fallback.
	var locks service.LockManager
	if cfg.Redis.Addr != "" {
		client, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Error("redis unavailable", "error", err)
			os.Exit(1)
		}
		locks = repository.NewRedisLockManager(client, cfg.Redis.LockPrefix)
		logger.Info("using redis lock manager", "addr", cfg.Redis.Addr)
	} else {
		locks = service.NewMemoryLockManager()
		logger.Warn("no redis configured, locks are process-local")
	}

	recorder := service.NewRecorder(ticks)
	gate := service.NewRiskGate(risk, cfg.Risk)
	breaker := service.NewCircuitBreaker(ticks, strategies, recorder, cfg.Runner.BreakerThreshold)
	engine := pipeline.NewEngine(recorder)
	resolver := service.NewCredentialResolver(enc)
	orch := service.NewOrchestrator(strategies, gate, locks, resolver, recorder, breaker, engine, nil, cfg.Runner)
	sweeper := service.NewSweeper(strategies, orch)

	router := handler.NewRouter(cfg,
		handler.NewRunnerHandler(sweeper, gate, risk, cfg),
		handler.NewStrategyHandler(strategies, ticks, orch))

	scheduler := cron.New()
	if cfg.Runner.Enabled {
		scheduler.AddEvery(cfg.Runner.SweepInterval(), "sweep", func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Runner.SweepInterval())
			defer cancel()
			if _, err := sweeper.RunDue(ctx); err != nil {
				logger.Error("scheduled sweep failed", "error", err)
			}
		})
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if cfg.Runner.Enabled {
		scheduler.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("stopped")
}
