package service

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLockAcquireContendRelease(t *testing.T) {
	locks := NewMemoryLockManager()
	ctx := context.Background()

	ok, err := locks.Acquire(ctx, "run-1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire = %v, %v", ok, err)
	}

	ok, _ = locks.Acquire(ctx, "run-1", time.Minute)
	if ok {
		t.Fatal("second acquire must fail while held")
	}

	// A different run is independent.
	ok, _ = locks.Acquire(ctx, "run-2", time.Minute)
	if !ok {
		t.Fatal("unrelated lock must be acquirable")
	}

	if err := locks.Release(ctx, "run-1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	// Release is idempotent.
	if err := locks.Release(ctx, "run-1"); err != nil {
		t.Fatalf("second release: %v", err)
	}

	ok, _ = locks.Acquire(ctx, "run-1", time.Minute)
	if !ok {
		t.Fatal("acquire after release must succeed")
	}
}

func TestMemoryLockTTLExpiry(t *testing.T) {
	locks := NewMemoryLockManager()
	now := time.Now()
	locks.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := locks.Acquire(ctx, "run-1", 2*time.Minute); !ok {
		t.Fatal("acquire failed")
	}
	if ok, _ := locks.Acquire(ctx, "run-1", 2*time.Minute); ok {
		t.Fatal("acquire must fail before expiry")
	}

	// A crashed holder never releases; the TTL frees the lock.
	now = now.Add(2*time.Minute + time.Second)
	if ok, _ := locks.Acquire(ctx, "run-1", 2*time.Minute); !ok {
		t.Fatal("acquire must succeed after TTL expiry")
	}
}

func TestMemoryStoreSettings(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.SetSetting(ctx, "k1", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := store.GetSetting(ctx, "k1")
	if err != nil || !ok || val != "v1" {
		t.Fatalf("get = %q, %v, %v", val, ok, err)
	}
	if _, ok, _ := store.GetSetting(ctx, "absent"); ok {
		t.Fatal("absent setting must report not found")
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, defaultRunnerCfg())
	h.seedRun(t, "run-1", "conn-1", "active")

	run, err := h.store.GetStrategyRun(ctx, "run-1")
	if err != nil || run == nil {
		t.Fatalf("get: %v %v", run, err)
	}
	run.Status = "stopped"

	again, _ := h.store.GetStrategyRun(ctx, "run-1")
	if again.Status != "active" {
		t.Fatal("mutating a returned row must not touch the store")
	}
}
