package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kapu/famescale/internal/domain"
	"github.com/kapu/famescale/internal/service/cache"
	"github.com/kapu/famescale/pkg/errors"
	"go.uber.org/zap"
)

const createSnapshotsTable = `
	CREATE TABLE IF NOT EXISTS fame_snapshots (
		slot       TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)
`

// SnapshotStore keeps the cached fame collection as one JSON row per slot.
type SnapshotStore struct {
	db     *DB
	slot   string
	logger *zap.Logger
}

var _ cache.Store = (*SnapshotStore)(nil)

func NewSnapshotStore(ctx context.Context, db *DB, slot string, logger *zap.Logger) (*SnapshotStore, error) {
	if _, err := db.db.ExecContext(ctx, createSnapshotsTable); err != nil {
		return nil, fmt.Errorf("failed to create fame_snapshots table: %w", err)
	}
	logger.Debug("Snapshot store ready",
		zap.String("dialect", string(db.Dialect())),
		zap.String("slot", slot),
	)
	return &SnapshotStore{
		db:     db,
		slot:   slot,
		logger: logger,
	}, nil
}

func (s *SnapshotStore) Read(ctx context.Context) ([]*domain.FameRecord, bool, error) {
	query := s.db.bind(`
		SELECT payload
		FROM fame_snapshots
		WHERE slot = $1
	`)

	var payload string
	err := s.db.db.QueryRowContext(ctx, query, s.slot).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		s.logger.Error("Snapshot read failed", zap.String("slot", s.slot), zap.Error(err))
		return nil, false, errors.NewCacheError("select failed", "read", s.slot, err)
	}

	records, err := cache.Decode([]byte(payload))
	if err != nil {
		s.logger.Error("Snapshot unmarshal failed", zap.String("slot", s.slot), zap.Error(err))
		return nil, false, errors.NewCacheError("unmarshal failed", "read", s.slot, err)
	}
	return records, true, nil
}

func (s *SnapshotStore) Write(ctx context.Context, records []*domain.FameRecord) error {
	payload, err := cache.Encode(records)
	if err != nil {
		return errors.NewCacheError("marshal failed", "write", s.slot, err)
	}

	query := s.db.bind(`
		INSERT INTO fame_snapshots (slot, payload, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot) DO UPDATE
		SET payload = excluded.payload, updated_at = excluded.updated_at
	`)

	if _, err := s.db.db.ExecContext(ctx, query, s.slot, string(payload), time.Now().UTC()); err != nil {
		s.logger.Error("Snapshot write failed", zap.String("slot", s.slot), zap.Error(err))
		return errors.NewCacheError("upsert failed", "write", s.slot, err)
	}
	return nil
}

// UpdatedAt reports when the slot was last written.
func (s *SnapshotStore) UpdatedAt(ctx context.Context) (time.Time, bool, error) {
	query := s.db.bind(`SELECT updated_at FROM fame_snapshots WHERE slot = $1`)

	var updatedAt time.Time
	err := s.db.db.QueryRowContext(ctx, query, s.slot).Scan(&updatedAt)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.NewCacheError("select failed", "updated_at", s.slot, err)
	}
	return updatedAt, true, nil
}
