package store

import (
	"database/sql"
	"fmt"

	"github.com/mikey/inbox-sentry/internal/core"
)

const settingActive = "active"

// scanStats folds (counter, value) rows into DailyStats.
func scanStats(rows *sql.Rows, user, day string) (*core.DailyStats, error) {
	stats := &core.DailyStats{User: user, Day: day}
	for rows.Next() {
		var counter string
		var value int64
		if err := rows.Scan(&counter, &value); err != nil {
			return nil, fmt.Errorf("failed to scan counter: %w", err)
		}
		applyCounter(stats, counter, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read counters: %w", err)
	}
	return stats, nil
}

func applyCounter(stats *core.DailyStats, counter string, value int64) {
	switch counter {
	case core.CounterScans:
		stats.Scans = value
	case core.CounterSafe:
		stats.Safe = value
	case core.CounterMalicious:
		stats.Malicious = value
	case core.CounterPhishing:
		stats.Phishing = value
	}
}
