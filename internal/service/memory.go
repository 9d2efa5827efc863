package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tickgate/tickgate/internal/model"
)

// MemoryStore is an in-process implementation of all three store
// interfaces. It backs local development when Postgres is absent and
// doubles as the test fixture.
type MemoryStore struct {
	mu          sync.RWMutex
	runs        map[string]*model.StrategyRun
	connections map[string]*model.ExchangeConnection
	tickRuns    []model.TickRun
	events      []model.Event
	riskStates  map[string]*model.RiskState
	settings    map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:        make(map[string]*model.StrategyRun),
		connections: make(map[string]*model.ExchangeConnection),
		riskStates:  make(map[string]*model.RiskState),
		settings:    make(map[string]string),
	}
}

func (m *MemoryStore) CreateStrategyRun(_ context.Context, run *model.StrategyRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *MemoryStore) GetStrategyRun(_ context.Context, id string) (*model.StrategyRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *run
	return &cp, nil
}

func (m *MemoryStore) ListStrategyRuns(_ context.Context, userID string) ([]model.StrategyRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.StrategyRun
	for _, run := range m.runs {
		if run.UserID == userID {
			out = append(out, *run)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) ListActiveRuns(_ context.Context) ([]model.StrategyRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.StrategyRun
	for _, run := range m.runs {
		if run.Status == model.StatusActive {
			out = append(out, *run)
		}
	}
	// Stable order so sweep summaries are deterministic.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateRunStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[id]; ok {
		run.Status = status
		run.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MemoryStore) MarkRan(_ context.Context, id string, ranAt time.Time, signalAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[id]; ok {
		ts := ranAt
		run.LastRunAt = &ts
		if signalAt != nil {
			sig := *signalAt
			run.LastSignalAt = &sig
		}
		run.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MemoryStore) CreateConnection(_ context.Context, conn *model.ExchangeConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *conn
	m.connections[conn.ID] = &cp
	return nil
}

func (m *MemoryStore) GetConnection(_ context.Context, id string) (*model.ExchangeConnection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.connections[id]
	if !ok {
		return nil, nil
	}
	cp := *conn
	return &cp, nil
}

func (m *MemoryStore) InsertTickRun(_ context.Context, run *model.TickRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickRuns = append(m.tickRuns, *run)
	return nil
}

func (m *MemoryStore) InsertEvent(_ context.Context, ev *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return nil
}

func (m *MemoryStore) ListRecentEvents(_ context.Context, strategyRunID, eventType string, limit int) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Event
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		ev := m.events[i]
		if ev.StrategyRunID != strategyRunID {
			continue
		}
		if eventType != "" && ev.EventType != eventType {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// TickRuns returns a copy of all persisted tick runs, oldest first.
func (m *MemoryStore) TickRuns() []model.TickRun {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.TickRun, len(m.tickRuns))
	copy(out, m.tickRuns)
	return out
}

// Events returns a copy of all persisted events, oldest first.
func (m *MemoryStore) Events() []model.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Event, len(m.events))
	copy(out, m.events)
	return out
}

func riskKey(userID, day string) string { return userID + "|" + day }

func (m *MemoryStore) GetRiskState(_ context.Context, userID, day string) (*model.RiskState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.riskStates[riskKey(userID, day)]
	if !ok {
		return nil, nil
	}
	cp := *state
	return &cp, nil
}

func (m *MemoryStore) UpsertRiskState(_ context.Context, state *model.RiskState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	cp.UpdatedAt = time.Now().UTC()
	m.riskStates[riskKey(state.UserID, state.Day)] = &cp
	return nil
}

func (m *MemoryStore) GetSetting(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.settings[key]
	return val, ok, nil
}

func (m *MemoryStore) SetSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

type memoryLockEntry struct {
	expiresAt time.Time
}

// MemoryLockManager mirrors the Redis lock semantics in-process:
// check-and-set under one mutex with TTL expiry, unconditional
// idempotent release.
type MemoryLockManager struct {
	mu    sync.Mutex
	locks map[string]memoryLockEntry
	now   func() time.Time
}

func NewMemoryLockManager() *MemoryLockManager {
	return &MemoryLockManager{locks: make(map[string]memoryLockEntry), now: time.Now}
}

func (m *MemoryLockManager) Acquire(_ context.Context, strategyRunID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if entry, ok := m.locks[strategyRunID]; ok && entry.expiresAt.After(now) {
		return false, nil
	}
	m.locks[strategyRunID] = memoryLockEntry{expiresAt: now.Add(ttl)}
	return true, nil
}

func (m *MemoryLockManager) Release(_ context.Context, strategyRunID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, strategyRunID)
	return nil
}
