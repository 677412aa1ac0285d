// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package history provides SQLite persistence for evaluation and size-check
// records, so regressions can be traced across builds.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuGH/buildcfg/internal/snapshot"
	_ "modernc.org/sqlite" // SQLite driver (pure Go, no CGO)
)

// Store provides SQLite persistence for build history.
type Store struct {
	db *sql.DB
}

// Evaluation is one recorded evaluation pass.
type Evaluation struct {
	SnapshotID        string            `json:"snapshot_id"`
	CreatedAt         time.Time         `json:"created_at"`
	Tool              string            `json:"tool_version"`
	TargetEnvironment string            `json:"target_environment"`
	TargetCPU         string            `json:"target_cpu"`
	IsCronetBuild     bool              `json:"is_cronet_build"`
	Args              map[string]string `json:"args"`
}

// SizeDiff is one recorded binary size comparison.
type SizeDiff struct {
	ID                 int64     `json:"id"`
	CheckedAt          time.Time `json:"checked_at"`
	SnapshotID         string    `json:"snapshot_id,omitempty"`
	Status             string    `json:"status"`
	Packages           int       `json:"packages"`
	ThresholdBytes     int64     `json:"threshold_bytes"`
	LargestGrowthBytes int64     `json:"largest_growth_bytes"`
}

// NewStore initializes a new SQLite store and runs migrations.
// Sets WAL mode + busy_timeout for read-heavy workload.
func NewStore(dbPath string) (*Store, error) {
	// busy_timeout avoids "database locked" errors
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs database schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluations (
		snapshot_id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		tool_version TEXT NOT NULL,
		target_environment TEXT NOT NULL,
		target_cpu TEXT NOT NULL DEFAULT '',
		is_cronet_build INTEGER NOT NULL DEFAULT 0,
		args_json TEXT NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_created ON evaluations(created_at);

	CREATE TABLE IF NOT EXISTS size_diffs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		checked_at TEXT NOT NULL,
		snapshot_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK(status IN ('pass', 'fail')),
		packages INTEGER NOT NULL DEFAULT 0,
		threshold_bytes INTEGER NOT NULL,
		largest_growth_bytes INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_size_diffs_checked ON size_diffs(checked_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// RecordEvaluation stores one evaluation pass. Recording the same snapshot
// ID again replaces the previous row.
func (s *Store) RecordEvaluation(ctx context.Context, snap *snapshot.Snapshot) error {
	argValues := make(map[string]string, len(snap.Args))
	for name, value := range snap.Args {
		argValues[name] = value.Raw
	}
	argsJSON, err := json.Marshal(argValues)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}

	query := `
	INSERT INTO evaluations (snapshot_id, created_at, tool_version, target_environment, target_cpu, is_cronet_build, args_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(snapshot_id) DO UPDATE SET
		created_at = excluded.created_at,
		tool_version = excluded.tool_version,
		target_environment = excluded.target_environment,
		target_cpu = excluded.target_cpu,
		is_cronet_build = excluded.is_cronet_build,
		args_json = excluded.args_json
	`
	cronet := 0
	if snap.IsCronetBuild {
		cronet = 1
	}
	_, err = s.db.ExecContext(ctx, query,
		snap.ID,
		snap.CreatedAt.Format(time.RFC3339Nano),
		snap.Tool,
		string(snap.TargetEnvironment),
		string(snap.TargetCPU),
		cronet,
		string(argsJSON),
	)
	return err
}

// RecentEvaluations retrieves the newest evaluations, most recent first.
func (s *Store) RecentEvaluations(ctx context.Context, limit int) ([]Evaluation, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT snapshot_id, created_at, tool_version, target_environment, target_cpu, is_cronet_build, args_json
	FROM evaluations
	ORDER BY created_at DESC
	LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var evals []Evaluation
	for rows.Next() {
		var e Evaluation
		var createdAtStr, argsJSON string
		var cronet int

		if err := rows.Scan(&e.SnapshotID, &createdAtStr, &e.Tool, &e.TargetEnvironment, &e.TargetCPU, &cronet, &argsJSON); err != nil {
			return nil, err
		}

		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
		e.IsCronetBuild = cronet != 0
		if err := json.Unmarshal([]byte(argsJSON), &e.Args); err != nil {
			e.Args = map[string]string{}
		}

		evals = append(evals, e)
	}

	return evals, rows.Err()
}

// RecordSizeDiff stores one size comparison and returns its row ID.
func (s *Store) RecordSizeDiff(ctx context.Context, rec SizeDiff) (int64, error) {
	query := `
	INSERT INTO size_diffs (checked_at, snapshot_id, status, packages, threshold_bytes, largest_growth_bytes)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	checkedAt := rec.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, query,
		checkedAt.Format(time.RFC3339Nano),
		rec.SnapshotID,
		rec.Status,
		rec.Packages,
		rec.ThresholdBytes,
		rec.LargestGrowthBytes,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LatestSizeDiff returns the most recent size comparison, or (nil, nil) when
// none has been recorded.
func (s *Store) LatestSizeDiff(ctx context.Context) (*SizeDiff, error) {
	query := `
	SELECT id, checked_at, snapshot_id, status, packages, threshold_bytes, largest_growth_bytes
	FROM size_diffs
	ORDER BY checked_at DESC, id DESC
	LIMIT 1
	`

	var rec SizeDiff
	var checkedAtStr string

	err := s.db.QueryRowContext(ctx, query).Scan(
		&rec.ID, &checkedAtStr, &rec.SnapshotID, &rec.Status, &rec.Packages, &rec.ThresholdBytes, &rec.LargestGrowthBytes,
	)
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, err
	}

	rec.CheckedAt, _ = time.Parse(time.RFC3339Nano, checkedAtStr)
	return &rec, nil
}

// RecentSizeDiffs retrieves the newest size comparisons, most recent first.
func (s *Store) RecentSizeDiffs(ctx context.Context, limit int) ([]SizeDiff, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT id, checked_at, snapshot_id, status, packages, threshold_bytes, largest_growth_bytes
	FROM size_diffs
	ORDER BY checked_at DESC, id DESC
	LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var recs []SizeDiff
	for rows.Next() {
		var rec SizeDiff
		var checkedAtStr string

		if err := rows.Scan(&rec.ID, &checkedAtStr, &rec.SnapshotID, &rec.Status, &rec.Packages, &rec.ThresholdBytes, &rec.LargestGrowthBytes); err != nil {
			return nil, err
		}

		rec.CheckedAt, _ = time.Parse(time.RFC3339Nano, checkedAtStr)
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}
