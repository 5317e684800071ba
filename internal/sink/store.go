package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"rangebot-go/internal/signal"
)

// SignalModel is one stored signal. A run id groups the signals of one live session or backtest.
type SignalModel struct {
	ID     uint      `gorm:"primaryKey"`
	RunID  string    `gorm:"size:36;not null;uniqueIndex:signal_run_sym_ts,priority:1"`
	Symbol string    `gorm:"size:32;not null;uniqueIndex:signal_run_sym_ts,priority:2"`
	Ts     time.Time `gorm:"not null;uniqueIndex:signal_run_sym_ts,priority:3"`
	Side   int       `gorm:"not null"`
	Close  float64   `gorm:"not null"`
	Reason string    `gorm:"size:64"`
}

func (SignalModel) TableName() string {
	return "signals"
}

func toModel(runID string, s signal.Signal) SignalModel {
	return SignalModel{
		RunID:  runID,
		Symbol: s.Symbol,
		Ts:     s.Ts.UTC(),
		Side:   int(s.Side),
		Close:  s.Close,
		Reason: s.Reason,
	}
}

// Store persists signals through gorm. Re-emitting the same run/symbol/bar overwrites it.
type Store struct {
	db    *gorm.DB
	runID string
}

// NewStore wraps an open database. An empty runID gets a fresh UUID.
func NewStore(db *gorm.DB, runID string) *Store {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Store{db: db, runID: runID}
}

// OpenStore opens (or creates) a SQLite database at path and migrates the signals table.
func OpenStore(path, runID string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&SignalModel{}); err != nil {
		return nil, fmt.Errorf("migrate signals: %w", err)
	}
	return NewStore(db, runID), nil
}

// RunID identifies the rows written by this store.
func (s *Store) RunID() string { return s.runID }

// Emit stores one signal.
func (s *Store) Emit(ctx context.Context, sig signal.Signal) error {
	return s.SaveBatch(ctx, []signal.Signal{sig})
}

// SaveBatch upserts signals in one statement.
func (s *Store) SaveBatch(ctx context.Context, sigs []signal.Signal) error {
	if len(sigs) == 0 {
		return nil
	}
	ms := make([]SignalModel, 0, len(sigs))
	for _, sig := range sigs {
		ms = append(ms, toModel(s.runID, sig))
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "run_id"}, {Name: "symbol"}, {Name: "ts"}},
		DoUpdates: clause.AssignmentColumns([]string{"side", "close", "reason"}),
	}).Create(&ms).Error
}

// Find returns the signals of a run for symbol, oldest first. An empty runID means this store's run.
func (s *Store) Find(ctx context.Context, runID, symbol string) ([]signal.Signal, error) {
	if runID == "" {
		runID = s.runID
	}
	var rows []SignalModel
	if err := s.db.WithContext(ctx).
		Where("run_id = ? AND symbol = ?", runID, symbol).
		Order("ts ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]signal.Signal, 0, len(rows))
	for _, m := range rows {
		out = append(out, signal.Signal{
			Symbol: m.Symbol,
			Side:   signal.Side(m.Side),
			Close:  m.Close,
			Reason: m.Reason,
			Ts:     m.Ts,
		})
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
