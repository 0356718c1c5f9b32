// Package sqlite persists prediction history to a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/air-quality-classifier/internal/domain"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS predictions (
    id           TEXT PRIMARY KEY,
    model        TEXT NOT NULL,
    zone         TEXT NOT NULL,
    readings     TEXT NOT NULL,
    features     TEXT NOT NULL,
    label        INTEGER NOT NULL,
    category     TEXT NOT NULL,
    predicted_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS predictions_predicted_at ON predictions (predicted_at);
`

// timeLayout is fixed-width so predicted_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a prediction history backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save records one prediction. Saving the same ID twice is a no-op.
func (s *Store) Save(ctx context.Context, p domain.Prediction) error {
	readings, err := json.Marshal(p.Readings)
	if err != nil {
		return fmt.Errorf("encode readings: %w", err)
	}
	features, err := json.Marshal(p.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO predictions (id, model, zone, readings, features, label, category, predicted_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Model, p.Zone, string(readings), string(features), p.Label, string(p.Category),
		p.PredictedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert prediction %s: %w", p.ID, err)
	}
	return nil
}

// Recent returns up to limit predictions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.Prediction, error) {
	if limit <= 0 {
		return []domain.Prediction{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, model, zone, readings, features, label, category, predicted_at
        FROM predictions
        ORDER BY predicted_at DESC, rowid DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err checked below

	out := []domain.Prediction{}
	for rows.Next() {
		var (
			p                   domain.Prediction
			readings, features  string
			category, predicted string
		)
		if err := rows.Scan(&p.ID, &p.Model, &p.Zone, &readings, &features, &p.Label, &category, &predicted); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if err := json.Unmarshal([]byte(readings), &p.Readings); err != nil {
			return nil, fmt.Errorf("decode readings of %s: %w", p.ID, err)
		}
		if err := json.Unmarshal([]byte(features), &p.Features); err != nil {
			return nil, fmt.Errorf("decode features of %s: %w", p.ID, err)
		}
		p.Category = domain.Category(category)
		p.PredictedAt, err = time.Parse(timeLayout, predicted)
		if err != nil {
			return nil, fmt.Errorf("decode predicted_at of %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("history db: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
