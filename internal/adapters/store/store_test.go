package store

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikey/inbox-sentry/internal/core"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s core.Store) {
	ctx := context.Background()
	const user, day = "alice", "2024-05-01"

	t.Run("markers are set once", func(t *testing.T) {
		fresh, err := s.MarkOnce(ctx, user, day, "k1")
		require.NoError(t, err)
		assert.True(t, fresh)

		fresh, err = s.MarkOnce(ctx, user, day, "k1")
		require.NoError(t, err)
		assert.False(t, fresh)

		marked, err := s.IsMarked(ctx, user, day, "k1")
		require.NoError(t, err)
		assert.True(t, marked)

		marked, err = s.IsMarked(ctx, user, "2024-05-02", "k1")
		require.NoError(t, err)
		assert.False(t, marked)

		marked, err = s.IsMarked(ctx, "bob", day, "k1")
		require.NoError(t, err)
		assert.False(t, marked)
	})

	t.Run("counters", func(t *testing.T) {
		v, err := s.Increment(ctx, user, day, core.CounterScans)
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)

		v, err = s.Increment(ctx, user, day, core.CounterScans)
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)

		_, err = s.Increment(ctx, user, day, core.CounterPhishing)
		require.NoError(t, err)

		stats, err := s.Stats(ctx, user, day)
		require.NoError(t, err)
		assert.Equal(t, &core.DailyStats{User: user, Day: day, Scans: 2, Phishing: 1}, stats)
		assert.Equal(t, int64(1), stats.Total())

		empty, err := s.Stats(ctx, "nobody", day)
		require.NoError(t, err)
		assert.Zero(t, empty.Scans)
	})

	t.Run("toggle defaults to active", func(t *testing.T) {
		active, err := s.Active(ctx)
		require.NoError(t, err)
		assert.True(t, active)

		require.NoError(t, s.SetActive(ctx, false))
		active, err = s.Active(ctx)
		require.NoError(t, err)
		assert.False(t, active)

		require.NoError(t, s.SetActive(ctx, true))
		active, err = s.Active(ctx)
		require.NoError(t, err)
		assert.True(t, active)
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore(nil, 0, 0)
	defer s.Stop()

	exerciseStore(t, s)
}

func TestMemoryStoreCleanup(t *testing.T) {
	s := NewMemoryStore(nil, 48*time.Hour, 0)
	defer s.Stop()
	s.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	_, err := s.MarkOnce(ctx, "u", "2024-05-01", "old")
	require.NoError(t, err)
	_, err = s.Increment(ctx, "u", "2024-05-01", core.CounterScans)
	require.NoError(t, err)
	_, err = s.MarkOnce(ctx, "u", "2024-05-09", "recent")
	require.NoError(t, err)

	require.NoError(t, s.Cleanup(ctx))

	marked, _ := s.IsMarked(ctx, "u", "2024-05-01", "old")
	assert.False(t, marked)
	marked, _ = s.IsMarked(ctx, "u", "2024-05-09", "recent")
	assert.True(t, marked)
	stats, _ := s.Stats(ctx, "u", "2024-05-01")
	assert.Zero(t, stats.Scans)
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "store.db"), nil, 0, 0)
	require.NoError(t, err)
	defer s.Stop()

	exerciseStore(t, s)
}

func TestSQLiteStoreCleanup(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "store.db"), nil, 24*time.Hour, 0)
	require.NoError(t, err)
	defer s.Stop()
	ctx := context.Background()

	_, err = s.MarkOnce(ctx, "u", "2000-01-01", "old")
	require.NoError(t, err)
	today := core.Day(time.Now())
	_, err = s.MarkOnce(ctx, "u", today, "new")
	require.NoError(t, err)

	require.NoError(t, s.Cleanup(ctx))

	marked, err := s.IsMarked(ctx, "u", "2000-01-01", "old")
	require.NoError(t, err)
	assert.False(t, marked)
	marked, err = s.IsMarked(ctx, "u", today, "new")
	require.NoError(t, err)
	assert.True(t, marked)
}

// Set INBOX_SENTRY_TEST_REDIS_ADDR to run against a live server.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("INBOX_SENTRY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("INBOX_SENTRY_TEST_REDIS_ADDR not set")
	}
	db, _ := strconv.Atoi(os.Getenv("INBOX_SENTRY_TEST_REDIS_DB"))

	s, err := NewRedisStore(addr, "", db, nil, time.Hour)
	require.NoError(t, err)
	defer s.Stop()
	require.NoError(t, s.rdb.FlushDB(context.Background()).Err())

	exerciseStore(t, s)
}

// Set INBOX_SENTRY_TEST_MYSQL_DSN to run against a live server.
func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("INBOX_SENTRY_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("INBOX_SENTRY_TEST_MYSQL_DSN not set")
	}

	s, err := NewMySQLStore(dsn, nil, 0, 0)
	require.NoError(t, err)
	defer s.Stop()
	for _, table := range []string{"scan_markers", "daily_counters", "settings"} {
		_, err := s.db.Exec("DELETE FROM " + table)
		require.NoError(t, err)
	}

	exerciseStore(t, s)
}
