// Command sweeper runs a single sweep pass against the configured
// stores and prints the summary as JSON. Useful from system cron or
// for ad-hoc operational runs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/tickgate/tickgate/internal/config"
	"github.com/tickgate/tickgate/internal/pipeline"
	"github.com/tickgate/tickgate/internal/pkg/crypto"
	"github.com/tickgate/tickgate/internal/pkg/logger"
	"github.com/tickgate/tickgate/internal/repository"
	"github.com/tickgate/tickgate/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level)

	if cfg.Database.DSN == "" {
		fmt.Fprintln(os.Stderr, "a database DSN is required for one-shot sweeps")
		os.Exit(1)
	}
	if !cfg.Runner.Enabled {
		fmt.Fprintln(os.Stderr, "runner is disabled")
		os.Exit(1)
	}

	key, err := crypto.KeyFromString(cfg.Crypto.EncryptionKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encryption key invalid:", err)
		os.Exit(1)
	}
	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		fmt.Fprintln(os.Stderr, "encryptor init failed:", err)
		os.Exit(1)
	}

	db, err := repository.OpenDB(cfg.Database.DSN)
	if err != nil {
		fmt.Fprintln(os.Stderr, "postgres unavailable:", err)
		os.Exit(1)
	}
	pg := repository.NewPGStore(db)

	var locks service.LockManager
	if cfg.Redis.Addr != "" {
		client, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			fmt.Fprintln(os.Stderr, "redis unavailable:", err)
			os.Exit(1)
		}
		locks = repository.NewRedisLockManager(client, cfg.Redis.LockPrefix)
	} else {
		locks = service.NewMemoryLockManager()
	}

	recorder := service.NewRecorder(pg)
	gate := service.NewRiskGate(pg, cfg.Risk)
	breaker := service.NewCircuitBreaker(pg, pg, recorder, cfg.Runner.BreakerThreshold)
	engine := pipeline.NewEngine(recorder)
	resolver := service.NewCredentialResolver(enc)
	orch := service.NewOrchestrator(pg, gate, locks, resolver, recorder, breaker, engine, nil, cfg.Runner)
	sweeper := service.NewSweeper(pg, orch)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := sweeper.RunDue(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sweep failed:", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}
