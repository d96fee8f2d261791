package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/core"
)

// MySQLStore is a MySQL implementation of the core.Store interface
type MySQLStore struct {
	db          *sql.DB
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLStore creates a new MySQL store
func NewMySQLStore(dsn string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*MySQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS scan_markers (
			user_id VARCHAR(191) NOT NULL,
			day CHAR(10) NOT NULL,
			marker_key VARCHAR(512) NOT NULL,
			created_at TIMESTAMP,
			PRIMARY KEY (user_id, day, marker_key),
			INDEX idx_markers_day (day)
		)`,
		`CREATE TABLE IF NOT EXISTS daily_counters (
			user_id VARCHAR(191) NOT NULL,
			day CHAR(10) NOT NULL,
			counter VARCHAR(32) NOT NULL,
			value BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, day, counter),
			INDEX idx_counters_day (day)
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			name VARCHAR(64) PRIMARY KEY,
			value VARCHAR(255)
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	s := &MySQLStore{
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
func (s *MySQLStore) MarkOnce(ctx context.Context, user, day, key string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO scan_markers (user_id, day, marker_key, created_at)
		VALUES (?, ?, ?, NOW())
	`, user, day, key)
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
func (s *MySQLStore) IsMarked(ctx context.Context, user, day, key string) (bool, error) {
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
func (s *MySQLStore) Increment(ctx context.Context, user, day, counter string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO daily_counters (user_id, day, counter, value)
		VALUES (?, ?, ?, 1)
		ON DUPLICATE KEY UPDATE value = value + 1
	`, user, day, counter); err != nil {
		return 0, fmt.Errorf("failed to increment counter: %w", err)
	}

	var value int64
	if err := tx.QueryRowContext(ctx, `
		SELECT value FROM daily_counters
		WHERE user_id = ? AND day = ? AND counter = ?
	`, user, day, counter).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit counter: %w", err)
	}
	return value, nil
}

// Stats returns the counters of one day
func (s *MySQLStore) Stats(ctx context.Context, user, day string) (*core.DailyStats, error) {
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
func (s *MySQLStore) Active(ctx context.Context) (bool, error) {
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
func (s *MySQLStore) SetActive(ctx context.Context, active bool) error {
	_, err := s.db.ExecContext(ctx, `
		REPLACE INTO settings (name, value) VALUES (?, ?)
	`, settingActive, strconv.FormatBool(active))
	if err != nil {
		return fmt.Errorf("failed to store setting: %w", err)
	}
	return nil
}

// Cleanup removes days older than the retention window
func (s *MySQLStore) Cleanup(ctx context.Context) error {
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
func (s *MySQLStore) startCleanupTask() {
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
func (s *MySQLStore) Stop() {
	close(s.stopCh)
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
