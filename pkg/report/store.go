// Package report persists and plots scored predictions.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"survival/pkg/model"
)

// Prediction is one scored row.
type Prediction struct {
	Row         int
	Probability float64
	Label       int
}

// Store keeps scoring runs and their predictions in SQLite.
type Store struct {
	db        *sql.DB
	closeOnce sync.Once
	closeErr  error
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	threshold     REAL NOT NULL,
	row_count     INTEGER NOT NULL,
	accuracy      REAL,
	log_loss      REAL,
	scored_at_ms  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS predictions (
	run_id       TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
	row_index    INTEGER NOT NULL,
	probability  REAL NOT NULL,
	label        INTEGER NOT NULL,
	PRIMARY KEY (run_id, row_index)
);
`

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// modernc.org/sqlite uses _pragma=name(value) syntax
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// Run describes one scoring pass. Score is nil for unlabelled data.
type Run struct {
	ID        string
	Source    string
	Threshold float64
	Score     *model.Report
}

// SaveRun stores run and its predictions in one transaction, replacing a
// previous run with the same id.
func (s *Store) SaveRun(ctx context.Context, run Run, preds []Prediction) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var accuracy, logLoss sql.NullFloat64
	if run.Score != nil {
		accuracy = sql.NullFloat64{Float64: run.Score.Accuracy, Valid: true}
		logLoss = sql.NullFloat64{Float64: run.Score.LogLoss, Valid: true}
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("replacing run %s: %w", run.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, source, threshold, row_count, accuracy, log_loss, scored_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, run.Threshold, len(preds), accuracy, logLoss, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO predictions (run_id, row_index, probability, label) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()
	for _, p := range preds {
		if _, err = stmt.ExecContext(ctx, run.ID, p.Row, p.Probability, p.Label); err != nil {
			return fmt.Errorf("inserting row %d: %w", p.Row, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Predictions returns the stored predictions of a run ordered by row.
func (s *Store) Predictions(ctx context.Context, runID string) ([]Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT row_index, probability, label FROM predictions
		WHERE run_id = ? ORDER BY row_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying predictions: %w", err)
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		var p Prediction
		if err := rows.Scan(&p.Row, &p.Probability, &p.Label); err != nil {
			return nil, fmt.Errorf("scanning prediction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Accuracy returns the stored accuracy of a run and whether it was scored
// against labels.
func (s *Store) Accuracy(ctx context.Context, runID string) (float64, bool, error) {
	var acc sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `SELECT accuracy FROM runs WHERE run_id = ?`, runID).Scan(&acc)
	if err != nil {
		return 0, false, fmt.Errorf("querying run %s: %w", runID, err)
	}
	return acc.Float64, acc.Valid, nil
}

// NewPredictions pairs probabilities with thresholded labels.
func NewPredictions(proba []float64, threshold float64) []Prediction {
	labels := model.BinaryPredFromProba(proba, threshold)
	out := make([]Prediction, len(proba))
	for i, p := range proba {
		out[i] = Prediction{Row: i, Probability: p, Label: int(labels[i])}
	}
	return out
}
