package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chargesteer/chargesteer/internal/core/domain"
	"github.com/chargesteer/chargesteer/internal/core/port"
)

const sqliteDriverName = "sqlite"

const schemaPoints = `
CREATE TABLE IF NOT EXISTS points (
    id TEXT PRIMARY KEY,
    mode TEXT NOT NULL,
    manual_kw REAL NOT NULL,
    boost_enabled BOOLEAN NOT NULL,
    boost_cutoff TEXT NOT NULL,
    boost_target_soc INTEGER NOT NULL,
    boost_battery_kwh REAL NOT NULL,
    boost_efficiency REAL NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaEcoConfig = `
CREATE TABLE IF NOT EXISTS eco_config (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    sunny_kw REAL NOT NULL,
    cloudy_kw REAL NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaEnergySamples = `
CREATE TABLE IF NOT EXISTS energy_samples (
    id TEXT PRIMARY KEY,
    point_id TEXT NOT NULL,
    at TIMESTAMP NOT NULL,
    kwh REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_energy_samples_at ON energy_samples(at);
`

const (
	upsertPointSQL = `
		INSERT INTO points (id, mode, manual_kw, boost_enabled, boost_cutoff,
			boost_target_soc, boost_battery_kwh, boost_efficiency, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mode=excluded.mode,
			manual_kw=excluded.manual_kw,
			boost_enabled=excluded.boost_enabled,
			boost_cutoff=excluded.boost_cutoff,
			boost_target_soc=excluded.boost_target_soc,
			boost_battery_kwh=excluded.boost_battery_kwh,
			boost_efficiency=excluded.boost_efficiency,
			updated_at=excluded.updated_at
	`

	selectPointsSQL = `
		SELECT id, mode, manual_kw, boost_enabled, boost_cutoff,
			boost_target_soc, boost_battery_kwh, boost_efficiency
		FROM points ORDER BY id
	`

	upsertEcoSQL = `
		INSERT INTO eco_config (id, sunny_kw, cloudy_kw, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sunny_kw=excluded.sunny_kw,
			cloudy_kw=excluded.cloudy_kw,
			updated_at=excluded.updated_at
	`

	selectEcoSQL = `SELECT sunny_kw, cloudy_kw FROM eco_config WHERE id=1`

	insertSampleSQL = `
		INSERT INTO energy_samples (id, point_id, at, kwh)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	selectSamplesSQL = `
		SELECT id, point_id, at, kwh FROM energy_samples
		WHERE at >= ? ORDER BY at
	`
)

// SQLiteStore persists operator settings and energy samples in a single
// SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ port.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the database file and ensures the
// schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// SQLite tolerates a single writer only
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{schemaPoints, schemaEcoConfig, schemaEnergySamples} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) SavePoint(ctx context.Context, rec port.PointRecord) error {
	_, err := s.db.ExecContext(ctx, upsertPointSQL,
		rec.ID,
		string(rec.Mode),
		rec.ManualKW,
		rec.Boost.Enabled,
		rec.Boost.CutoffLocal.String(),
		rec.Boost.TargetSoC,
		rec.Boost.BatteryKWh,
		rec.Boost.ChargeEfficiency,
		time.Now().UTC(),
	)
	return err
}

func (s *SQLiteStore) LoadPoints(ctx context.Context) ([]port.PointRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectPointsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []port.PointRecord
	for rows.Next() {
		var rec port.PointRecord
		var mode, cutoff string
		if err := rows.Scan(
			&rec.ID,
			&mode,
			&rec.ManualKW,
			&rec.Boost.Enabled,
			&cutoff,
			&rec.Boost.TargetSoC,
			&rec.Boost.BatteryKWh,
			&rec.Boost.ChargeEfficiency,
		); err != nil {
			return nil, err
		}
		parsedMode, err := domain.ParsePowerMode(mode)
		if err != nil {
			return nil, fmt.Errorf("point %s: %w", rec.ID, err)
		}
		rec.Mode = parsedMode
		ct, err := domain.ParseClockTime(cutoff)
		if err != nil {
			return nil, fmt.Errorf("point %s: %w", rec.ID, err)
		}
		rec.Boost.CutoffLocal = ct
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLiteStore) SaveEcoConfig(ctx context.Context, cfg domain.EcoConfig) error {
	_, err := s.db.ExecContext(ctx, upsertEcoSQL, cfg.SunnyKW, cfg.CloudyKW, time.Now().UTC())
	return err
}

// LoadEcoConfig returns nil when no config has been saved yet.
func (s *SQLiteStore) LoadEcoConfig(ctx context.Context) (*domain.EcoConfig, error) {
	var cfg domain.EcoConfig
	err := s.db.QueryRowContext(ctx, selectEcoSQL).Scan(&cfg.SunnyKW, &cfg.CloudyKW)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AppendEnergySample is idempotent on sample id.
func (s *SQLiteStore) AppendEnergySample(ctx context.Context, sample domain.EnergySample) error {
	_, err := s.db.ExecContext(ctx, insertSampleSQL,
		sample.ID, sample.PointID, sample.At.UTC(), sample.KWh)
	return err
}

func (s *SQLiteStore) ListEnergySamples(ctx context.Context, since time.Time) ([]domain.EnergySample, error) {
	rows, err := s.db.QueryContext(ctx, selectSamplesSQL, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []domain.EnergySample
	for rows.Next() {
		var sm domain.EnergySample
		if err := rows.Scan(&sm.ID, &sm.PointID, &sm.At, &sm.KWh); err != nil {
			return nil, err
		}
		sm.At = sm.At.UTC()
		samples = append(samples, sm)
	}
	return samples, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
