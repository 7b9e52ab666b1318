package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitediff/internal/model"
)

// HistoryDB provides SQLite-based storage for run history.
//
// Design decision: We use a single database file for all hosts rather
// than one per host because:
//  1. Cross-host listings become a single query
//  2. Backup/restore is one file
//  3. A run touches exactly one writer, so contention is not a concern
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an
// error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "sitediff.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// modernc.org/sqlite: mode=rw prevents creating new files,
	// mode=rwc allows creation.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports a single writer; keep the pool at one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- One row per saved baseline
	CREATE TABLE IF NOT EXISTS baselines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		baseline_id TEXT NOT NULL UNIQUE,
		hostname TEXT NOT NULL,
		start_url TEXT NOT NULL,
		pages INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_baselines_hostname ON baselines(hostname);
	CREATE INDEX IF NOT EXISTS idx_baselines_created ON baselines(created_at);

	-- One row per comparison pass, with the full summary as JSON
	CREATE TABLE IF NOT EXISTS comparisons (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		baseline_id TEXT NOT NULL,
		hostname TEXT NOT NULL,
		matched INTEGER NOT NULL,
		changed INTEGER NOT NULL,
		errored INTEGER NOT NULL,
		diff_ratio REAL NOT NULL,
		results_dir TEXT,
		summary_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_comparisons_hostname ON comparisons(hostname);
	CREATE INDEX IF NOT EXISTS idx_comparisons_baseline ON comparisons(baseline_id);
	CREATE INDEX IF NOT EXISTS idx_comparisons_created ON comparisons(created_at);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// RecordBaseline inserts a history row for a freshly saved baseline.
func (hdb *HistoryDB) RecordBaseline(ctx context.Context, baselineID string, m *model.Manifest) error {
	succeeded, failed, _ := m.CountByStatus()

	query := `
	INSERT INTO baselines (baseline_id, hostname, start_url, pages, succeeded, failed, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := hdb.db.ExecContext(ctx, query,
		baselineID,
		m.Hostname,
		m.StartURL,
		len(m.Pages),
		succeeded,
		failed,
		m.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert baseline record: %w", err)
	}
	return nil
}

// RecordComparison inserts a history row for a completed comparison.
func (hdb *HistoryDB) RecordComparison(ctx context.Context, s *model.ComparisonSummary, resultsDir string) error {
	summaryJSON, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("serialize summary: %w", err)
	}

	query := `
	INSERT INTO comparisons (baseline_id, hostname, matched, changed, errored, diff_ratio, results_dir, summary_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = hdb.db.ExecContext(ctx, query,
		s.BaselineID,
		s.Hostname,
		s.Matched,
		s.Changed,
		s.Errored,
		s.GlobalDiffRatio(),
		resultsDir,
		string(summaryJSON),
		s.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert comparison record: %w", err)
	}
	return nil
}

// BaselineRecord is one row of baseline history.
type BaselineRecord struct {
	ID         int64
	BaselineID string
	Hostname   string
	StartURL   string
	Pages      int
	Succeeded  int
	Failed     int
	CreatedAt  time.Time
}

// BaselineHistory returns the saved baselines for a host, newest first.
// An empty hostname returns all hosts.
func (hdb *HistoryDB) BaselineHistory(ctx context.Context, hostname string) ([]BaselineRecord, error) {
	query := `
	SELECT id, baseline_id, hostname, start_url, pages, succeeded, failed, created_at
	FROM baselines
	`
	args := make([]any, 0, 1)
	if hostname != "" {
		query += " WHERE hostname = ?"
		args = append(args, hostname)
	}
	query += " ORDER BY created_at DESC"

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query baseline history: %w", err)
	}
	defer rows.Close()

	var records []BaselineRecord
	for rows.Next() {
		var r BaselineRecord
		var createdAt string
		if err := rows.Scan(&r.ID, &r.BaselineID, &r.Hostname, &r.StartURL,
			&r.Pages, &r.Succeeded, &r.Failed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan baseline record: %w", err)
		}
		r.CreatedAt = parseTimestamp(createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// ComparisonRecord summarizes one stored comparison without the full
// per-page results.
type ComparisonRecord struct {
	ID         int64
	BaselineID string
	Hostname   string
	Matched    int
	Changed    int
	Errored    int
	DiffRatio  float64
	ResultsDir string
	CreatedAt  time.Time
}

// ComparisonHistory returns comparison runs for a host, newest first.
// An empty hostname returns all hosts.
func (hdb *HistoryDB) ComparisonHistory(ctx context.Context, hostname string) ([]ComparisonRecord, error) {
	query := `
	SELECT id, baseline_id, hostname, matched, changed, errored, diff_ratio, results_dir, created_at
	FROM comparisons
	`
	args := make([]any, 0, 1)
	if hostname != "" {
		query += " WHERE hostname = ?"
		args = append(args, hostname)
	}
	query += " ORDER BY created_at DESC"

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comparison history: %w", err)
	}
	defer rows.Close()

	var records []ComparisonRecord
	for rows.Next() {
		var r ComparisonRecord
		var createdAt string
		var resultsDir sql.NullString
		if err := rows.Scan(&r.ID, &r.BaselineID, &r.Hostname, &r.Matched,
			&r.Changed, &r.Errored, &r.DiffRatio, &resultsDir, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comparison record: %w", err)
		}
		r.ResultsDir = resultsDir.String
		r.CreatedAt = parseTimestamp(createdAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

// ComparisonSummary loads the full stored summary for a comparison row.
func (hdb *HistoryDB) ComparisonSummary(ctx context.Context, id int64) (*model.ComparisonSummary, error) {
	var summaryJSON string
	err := hdb.db.QueryRowContext(ctx,
		`SELECT summary_json FROM comparisons WHERE id = ?`, id).Scan(&summaryJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get comparison summary: %w", err)
	}

	var s model.ComparisonSummary
	if err := json.Unmarshal([]byte(summaryJSON), &s); err != nil {
		return nil, fmt.Errorf("parse comparison summary: %w", err)
	}
	return &s, nil
}

// ListHosts returns every hostname with at least one recorded run.
func (hdb *HistoryDB) ListHosts(ctx context.Context) ([]string, error) {
	query := `
	SELECT hostname FROM baselines
	UNION
	SELECT hostname FROM comparisons
	ORDER BY hostname
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list hosts: %w", err)
	}
	defer rows.Close()

	var hosts []string
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return nil, fmt.Errorf("scan host: %w", err)
		}
		hosts = append(hosts, host)
	}
	return hosts, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may
// return. The order matters: more specific formats come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending
// on configuration. Returns zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
