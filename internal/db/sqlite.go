package db

// Package db is the persistence layer for scoring history: every served
// prediction and every dispatched alert is recorded off the request path
// so officers can audit what the engine reported and when.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)
)

// schema for the scoring history store. Version is tracked in the
// schema_versions table.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS prediction_events (
    id           TEXT PRIMARY KEY,
    likelihood   REAL NOT NULL,
    anomaly      REAL NOT NULL,
    severity     INTEGER NOT NULL,
    source       TEXT NOT NULL,
    factors      TEXT NOT NULL DEFAULT '[]',
    features     TEXT NOT NULL DEFAULT '{}',
    created_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prediction_created_at ON prediction_events(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_prediction_severity   ON prediction_events(severity);

CREATE TABLE IF NOT EXISTS alert_events (
    id            TEXT PRIMARY KEY,
    prediction_id TEXT NOT NULL REFERENCES prediction_events(id) ON DELETE CASCADE,
    severity      INTEGER NOT NULL,
    factors       TEXT NOT NULL DEFAULT '[]',
    created_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alert_created_at ON alert_events(created_at DESC);
`,
	},
}

// PredictionRecord is one served prediction.
type PredictionRecord struct {
	ID         string             `json:"id"`
	Likelihood float64            `json:"likelihood"`
	Anomaly    float64            `json:"anomaly"`
	Severity   int                `json:"severity"`
	Source     string             `json:"source"`
	Factors    []string           `json:"factors"`
	Features   map[string]float64 `json:"features"`
	CreatedAt  time.Time          `json:"created_at"`
}

// AlertRecord is one alert-eligible prediction handed to the notifier.
type AlertRecord struct {
	ID           string    `json:"id"`
	PredictionID string    `json:"prediction_id"`
	Severity     int       `json:"severity"`
	Factors      []string  `json:"factors"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists scoring history.
type Store interface {
	AppendPrediction(ctx context.Context, rec *PredictionRecord) error
	ListPredictions(ctx context.Context, limit, offset int) ([]*PredictionRecord, error)
	AppendAlert(ctx context.Context, rec *AlertRecord) error
	ListAlerts(ctx context.Context, limit int) ([]*AlertRecord, error)
	Close() error
	Ping(ctx context.Context) error
}

// sqliteStore is the SQLite-backed implementation of Store.
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// runs all pending schema migrations. Pass ":memory:" for an in-memory store.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// WAL mode for better concurrency.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &sqliteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate applies any unapplied migrations in order.
func (s *sqliteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_versions (
        version    INTEGER PRIMARY KEY,
        applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    )`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_versions WHERE version = ?`, m.version).Scan(&count); err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if count > 0 {
			continue // already applied
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_versions(version) VALUES(?)`, m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

func (s *sqliteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *sqliteStore) AppendPrediction(ctx context.Context, rec *PredictionRecord) error {
	factors, err := json.Marshal(rec.Factors)
	if err != nil {
		return fmt.Errorf("encode factors: %w", err)
	}
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO prediction_events (id, likelihood, anomaly, severity, source, factors, features, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Likelihood, rec.Anomaly, rec.Severity, rec.Source,
		string(factors), string(features), rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert prediction %s: %w", rec.ID, err)
	}
	return nil
}

func (s *sqliteStore) ListPredictions(ctx context.Context, limit, offset int) ([]*PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, likelihood, anomaly, severity, source, factors, features, created_at
        FROM prediction_events ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	var out []*PredictionRecord
	for rows.Next() {
		rec := &PredictionRecord{}
		var factors, features, createdAt string
		if err := rows.Scan(&rec.ID, &rec.Likelihood, &rec.Anomaly, &rec.Severity,
			&rec.Source, &factors, &features, &createdAt); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if err := json.Unmarshal([]byte(factors), &rec.Factors); err != nil {
			return nil, fmt.Errorf("decode factors: %w", err)
		}
		if err := json.Unmarshal([]byte(features), &rec.Features); err != nil {
			return nil, fmt.Errorf("decode features: %w", err)
		}
		if rec.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *sqliteStore) AppendAlert(ctx context.Context, rec *AlertRecord) error {
	factors, err := json.Marshal(rec.Factors)
	if err != nil {
		return fmt.Errorf("encode factors: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO alert_events (id, prediction_id, severity, factors, created_at)
        VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.PredictionID, rec.Severity, string(factors),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert alert %s: %w", rec.ID, err)
	}
	return nil
}

func (s *sqliteStore) ListAlerts(ctx context.Context, limit int) ([]*AlertRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, prediction_id, severity, factors, created_at
        FROM alert_events ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var out []*AlertRecord
	for rows.Next() {
		rec := &AlertRecord{}
		var factors, createdAt string
		if err := rows.Scan(&rec.ID, &rec.PredictionID, &rec.Severity, &factors, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if err := json.Unmarshal([]byte(factors), &rec.Factors); err != nil {
			return nil, fmt.Errorf("decode factors: %w", err)
		}
		if rec.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
