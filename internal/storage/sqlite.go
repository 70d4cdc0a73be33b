// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/proteomica/comap/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not
// exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		linkage_path TEXT,
		items_path TEXT,
		complexes_path TEXT,
		input_digest TEXT,
		num_items INTEGER NOT NULL,
		num_complexes INTEGER NOT NULL,
		num_captured INTEGER NOT NULL,
		num_skipped INTEGER NOT NULL,
		num_uncaptured INTEGER NOT NULL,
		max_distance REAL NOT NULL,
		highest_threshold REAL NOT NULL,
		fallback_threshold REAL NOT NULL,
		fallback_clusters INTEGER NOT NULL,
		mean_jaccard REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS run_labels (
		run_id TEXT NOT NULL,
		item_index INTEGER NOT NULL,
		item TEXT NOT NULL,
		label INTEGER NOT NULL,
		PRIMARY KEY (run_id, item_index),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_run_labels_run_id ON run_labels(run_id);

	CREATE TABLE IF NOT EXISTS run_captures (
		run_id TEXT NOT NULL,
		label INTEGER NOT NULL,
		complex_name TEXT NOT NULL,
		jaccard REAL NOT NULL,
		threshold REAL NOT NULL,
		cluster_size INTEGER NOT NULL,
		PRIMARY KEY (run_id, label),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_run_captures_run_id ON run_captures(run_id);
	`
	_, err := db.Exec(schema)
	return err
}

// SaveRun stores a run with its labels and captured complexes in one
// transaction.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *models.Run) error {
	if run.Assignment == nil {
		return fmt.Errorf("run %s has no assignment", run.ID)
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, linkage_path, items_path, complexes_path, input_digest,
			num_items, num_complexes, num_captured, num_skipped, num_uncaptured,
			max_distance, highest_threshold, fallback_threshold, fallback_clusters, mean_jaccard)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.LinkagePath, run.ItemsPath, run.ComplexesPath, run.InputDigest,
		run.NumItems, run.NumComplexes, run.NumCaptured, run.NumSkipped, run.NumUncaptured,
		run.MaxDistance, run.HighestThreshold, run.FallbackThreshold, run.FallbackClusters, run.MeanJaccard,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	labelStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_labels (run_id, item_index, item, label) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer labelStmt.Close()

	asn := run.Assignment
	for i, item := range asn.Items {
		if _, err := labelStmt.ExecContext(ctx, run.ID, i, item, asn.Labels[i]); err != nil {
			return fmt.Errorf("failed to insert label for %s: %w", item, err)
		}
	}

	captureStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_captures (run_id, label, complex_name, jaccard, threshold, cluster_size)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer captureStmt.Close()

	for _, c := range asn.Captured {
		if _, err := captureStmt.ExecContext(ctx, run.ID, c.Label, c.Name, c.Jaccard, c.Threshold, c.ClusterSize); err != nil {
			return fmt.Errorf("failed to insert capture %s: %w", c.Name, err)
		}
	}

	return tx.Commit()
}

// GetRun returns a run by ID with its labels and captures loaded.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*models.Run, error) {
	run, err := s.scanRun(s.db.QueryRowContext(ctx,
		`SELECT id, created_at, linkage_path, items_path, complexes_path, input_digest,
			num_items, num_complexes, num_captured, num_skipped, num_uncaptured,
			max_distance, highest_threshold, fallback_threshold, fallback_clusters, mean_jaccard
		 FROM runs WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	asn := &models.Assignment{
		MaxDistance:       run.MaxDistance,
		HighestThreshold:  run.HighestThreshold,
		FallbackThreshold: run.FallbackThreshold,
		FallbackClusters:  run.FallbackClusters,
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT item, label FROM run_labels WHERE run_id = ? ORDER BY item_index`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item string
		var label int
		if err := rows.Scan(&item, &label); err != nil {
			return nil, err
		}
		asn.Items = append(asn.Items, item)
		asn.Labels = append(asn.Labels, label)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	capRows, err := s.db.QueryContext(ctx,
		`SELECT label, complex_name, jaccard, threshold, cluster_size FROM run_captures
		 WHERE run_id = ? ORDER BY label`, id,
	)
	if err != nil {
		return nil, err
	}
	defer capRows.Close()
	for capRows.Next() {
		var c models.CapturedComplex
		if err := capRows.Scan(&c.Label, &c.Name, &c.Jaccard, &c.Threshold, &c.ClusterSize); err != nil {
			return nil, err
		}
		asn.Captured = append(asn.Captured, &c)
	}
	if err := capRows.Err(); err != nil {
		return nil, err
	}

	run.Assignment = asn
	return run, nil
}

// ListRuns returns runs ordered newest first, without assignments.
func (s *SQLiteStorage) ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, linkage_path, items_path, complexes_path, input_digest,
			num_items, num_complexes, num_captured, num_skipped, num_uncaptured,
			max_distance, highest_threshold, fallback_threshold, fallback_clusters, mean_jaccard
		 FROM runs ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := s.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its labels and captures.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_labels WHERE run_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM run_captures WHERE run_id = ?`, id); err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return tx.Commit()
}

// CountRuns returns the number of stored runs.
func (s *SQLiteStorage) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *SQLiteStorage) scanRun(row scanner) (*models.Run, error) {
	var run models.Run
	err := row.Scan(
		&run.ID, &run.CreatedAt, &run.LinkagePath, &run.ItemsPath, &run.ComplexesPath, &run.InputDigest,
		&run.NumItems, &run.NumComplexes, &run.NumCaptured, &run.NumSkipped, &run.NumUncaptured,
		&run.MaxDistance, &run.HighestThreshold, &run.FallbackThreshold, &run.FallbackClusters, &run.MeanJaccard,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
