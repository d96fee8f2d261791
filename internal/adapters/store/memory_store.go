package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/inbox-sentry/internal/core"
)

// ErrNotFound is returned when a setting has never been written
var ErrNotFound = errors.New("store entry not found")

type dayKey struct {
	user string
	day  string
}

// MemoryStore is an in-memory implementation of the core.Store interface
type MemoryStore struct {
	markers     map[dayKey]map[string]struct{}
	counters    map[dayKey]map[string]int64
	active      *bool
	mu          sync.RWMutex
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	now         func() time.Time
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(logger *zap.Logger, retention, cleanupFreq time.Duration) *MemoryStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MemoryStore{
		markers:     make(map[dayKey]map[string]struct{}),
		counters:    make(map[dayKey]map[string]int64),
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	if cleanupFreq > 0 {
		go s.startCleanupTask()
	}

	return s
}

// MarkOnce sets a dedup marker and reports whether it was newly set
func (s *MemoryStore) MarkOnce(ctx context.Context, user, day, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := dayKey{user: user, day: day}
	set, ok := s.markers[k]
	if !ok {
		set = make(map[string]struct{})
		s.markers[k] = set
	}
	if _, marked := set[key]; marked {
		return false, nil
	}
	set[key] = struct{}{}
	return true, nil
}

// IsMarked reports whether a dedup marker exists
func (s *MemoryStore) IsMarked(ctx context.Context, user, day, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.markers[dayKey{user: user, day: day}][key]
	return ok, nil
}

// Increment adds one to a named counter
func (s *MemoryStore) Increment(ctx context.Context, user, day, counter string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := dayKey{user: user, day: day}
	values, ok := s.counters[k]
	if !ok {
		values = make(map[string]int64)
		s.counters[k] = values
	}
	values[counter]++
	return values[counter], nil
}

// Stats returns the counters of one day
func (s *MemoryStore) Stats(ctx context.Context, user, day string) (*core.DailyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := s.counters[dayKey{user: user, day: day}]
	return &core.DailyStats{
		User:      user,
		Day:       day,
		Scans:     values[core.CounterScans],
		Safe:      values[core.CounterSafe],
		Malicious: values[core.CounterMalicious],
		Phishing:  values[core.CounterPhishing],
	}, nil
}

// Active reports whether scanning is enabled; true until set otherwise
func (s *MemoryStore) Active(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return true, nil
	}
	return *s.active, nil
}

// SetActive persists the toggle
func (s *MemoryStore) SetActive(ctx context.Context, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = &active
	return nil
}

// Cleanup removes days older than the retention window
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := core.Day(s.now().Add(-s.retention))
	expiredCount := 0

	for k := range s.markers {
		if k.day < cutoff {
			delete(s.markers, k)
			expiredCount++
		}
	}
	for k := range s.counters {
		if k.day < cutoff {
			delete(s.counters, k)
		}
	}

	s.logger.Debug("Cleaned up expired days", zap.Int("expired_count", expiredCount), zap.String("cutoff", cutoff))
	return nil
}

// startCleanupTask starts a background task to clean up expired days
func (s *MemoryStore) startCleanupTask() {
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

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}
