package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tickgate/tickgate/internal/model"
)

// PGStore implements the service store interfaces on Postgres.
type PGStore struct {
	db *gorm.DB
}

func NewPGStore(db *gorm.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) CreateStrategyRun(ctx context.Context, run *model.StrategyRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *PGStore) GetStrategyRun(ctx context.Context, id string) (*model.StrategyRun, error) {
	var run model.StrategyRun
	err := s.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *PGStore) ListStrategyRuns(ctx context.Context, userID string) ([]model.StrategyRun, error) {
	var runs []model.StrategyRun
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&runs).Error
	return runs, err
}

func (s *PGStore) ListActiveRuns(ctx context.Context) ([]model.StrategyRun, error) {
	var runs []model.StrategyRun
	err := s.db.WithContext(ctx).
		Where("status = ?", model.StatusActive).
		Order("id ASC").
		Find(&runs).Error
	return runs, err
}

func (s *PGStore) UpdateRunStatus(ctx context.Context, id, status string) error {
	return s.db.WithContext(ctx).
		Model(&model.StrategyRun{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *PGStore) MarkRan(ctx context.Context, id string, ranAt time.Time, signalAt *time.Time) error {
	updates := map[string]any{"last_run_at": ranAt}
	if signalAt != nil {
		updates["last_signal_at"] = *signalAt
	}
	return s.db.WithContext(ctx).
		Model(&model.StrategyRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *PGStore) CreateConnection(ctx context.Context, conn *model.ExchangeConnection) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(conn).Error
}

func (s *PGStore) GetConnection(ctx context.Context, id string) (*model.ExchangeConnection, error) {
	var conn model.ExchangeConnection
	err := s.db.WithContext(ctx).First(&conn, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

func (s *PGStore) InsertTickRun(ctx context.Context, run *model.TickRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *PGStore) InsertEvent(ctx context.Context, ev *model.Event) error {
	return s.db.WithContext(ctx).Create(ev).Error
}

func (s *PGStore) ListRecentEvents(ctx context.Context, strategyRunID, eventType string, limit int) ([]model.Event, error) {
	q := s.db.WithContext(ctx).
		Where("strategy_run_id = ?", strategyRunID).
		Order("created_at DESC").
		Limit(limit)
	if eventType != "" {
		q = q.Where("event_type = ?", eventType)
	}
	var events []model.Event
	err := q.Find(&events).Error
	return events, err
}

func (s *PGStore) GetRiskState(ctx context.Context, userID, day string) (*model.RiskState, error) {
	var state model.RiskState
	err := s.db.WithContext(ctx).
		First(&state, "user_id = ? AND day = ?", userID, day).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *PGStore) UpsertRiskState(ctx context.Context, state *model.RiskState) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "day"}},
			UpdateAll: true,
		}).
		Create(state).Error
}

func (s *PGStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var setting model.PlatformSetting
	err := s.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return setting.Value, true, nil
}

func (s *PGStore) SetSetting(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&model.PlatformSetting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}).Error
}
