package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/core"
)

// SQLiteStore is a SQLite implementation of the core.Store interface
type SQLiteStore struct {
	db          *sql.DB
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// One writer keeps INSERT OR IGNORE dedup race free.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS scan_markers (
			user_id TEXT NOT NULL,
			day TEXT NOT NULL,
			marker_key TEXT NOT NULL,
			created_at TIMESTAMP,
			PRIMARY KEY (user_id, day, marker_key)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_counters (
			user_id TEXT NOT NULL,
			day TEXT NOT NULL,
			counter TEXT NOT NULL,
			value INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, day, counter)
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			name TEXT PRIMARY KEY,
			value TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_markers_day ON scan_markers(day)`,
		`CREATE INDEX IF NOT EXISTS idx_counters_day ON daily_counters(day)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	s := &SQLiteStore{
		db:          db,
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	if cleanupFreq > 0 {
		go s.startCleanupTask()
	}

	return s, nil
}

// MarkOnce sets a dedup marker and reports whether it was newly set
func (s *SQLiteStore) MarkOnce(ctx context.Context, user, day, key string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO scan_markers (user_id, day, marker_key, created_at)
		VALUES (?, ?, ?, ?)
	`, user, day, key, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("failed to insert marker: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return rows == 1, nil
}

// IsMarked reports whether a dedup marker exists
func (s *SQLiteStore) IsMarked(ctx context.Context, user, day, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM scan_markers
		WHERE user_id = ? AND day = ? AND marker_key = ?
	`, user, day, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query marker: %w", err)
	}
	return true, nil
}

// Increment adds one to a named counter
func (s *SQLiteStore) Increment(ctx context.Context, user, day, counter string) (int64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO daily_counters (user_id, day, counter, value)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (user_id, day, counter) DO UPDATE SET value = value + 1
		RETURNING value
	`, user, day, counter).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}
	return value, nil
}

// Stats returns the counters of one day
func (s *SQLiteStore) Stats(ctx context.Context, user, day string) (*core.DailyStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT counter, value FROM daily_counters
		WHERE user_id = ? AND day = ?
	`, user, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query counters: %w", err)
	}
	defer rows.Close()

	return scanStats(rows, user, day)
}

// Active reports whether scanning is enabled; true until set otherwise
func (s *SQLiteStore) Active(ctx context.Context) (bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE name = ?`, settingActive).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("failed to query setting: %w", err)
	}
	return strconv.ParseBool(value)
}

// SetActive persists the toggle
func (s *SQLiteStore) SetActive(ctx context.Context, active bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO settings (name, value) VALUES (?, ?)
	`, settingActive, strconv.FormatBool(active))
	if err != nil {
		return fmt.Errorf("failed to store setting: %w", err)
	}
	return nil
}

// Cleanup removes days older than the retention window
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}
	cutoff := core.Day(time.Now().Add(-s.retention))

	var total int64
	for _, stmt := range []string{
		`DELETE FROM scan_markers WHERE day < ?`,
		`DELETE FROM daily_counters WHERE day < ?`,
	} {
		result, err := s.db.ExecContext(ctx, stmt, cutoff)
		if err != nil {
			return fmt.Errorf("failed to clean up expired rows: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil {
			total += n
		}
	}

	s.logger.Debug("Cleaned up expired rows", zap.Int64("expired_count", total), zap.String("cutoff", cutoff))
	return nil
}

// startCleanupTask starts a background task to clean up expired rows
func (s *SQLiteStore) startCleanupTask() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				s.logger.Error("Failed to clean up store", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (s *SQLiteStore) Stop() {
	close(s.stopCh)
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
