package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	cc, err := cfg.GetClassifier()
	require.NoError(t, err)
	assert.Equal(t, "http", cc.Provider)
	assert.Equal(t, "http://127.0.0.1:5050/api/detect", cc.Endpoint)
	assert.Equal(t, "http://127.0.0.1:5050/api/feedback", cc.FeedbackEndpoint)
	assert.Equal(t, 15*time.Second, cc.Timeout)

	tc, err := cfg.GetTrigger()
	require.NoError(t, err)
	assert.Equal(t, TriggerConfig{
		SettleDelay:    800 * time.Millisecond,
		Cooldown:       3 * time.Second,
		PollInterval:   time.Second,
		URLSettleDelay: time.Second,
		HostMarker:     "mail.google.com",
	}, tc)

	sc, err := cfg.GetStore()
	require.NoError(t, err)
	assert.Equal(t, "memory", sc.Type)
	assert.Equal(t, 720*time.Hour, sc.Retention)

	assert.True(t, cfg.GetBool("pipeline.discard_stale"))
	assert.Equal(t, 10000, cfg.GetInt("pipeline.max_chars"))
	assert.Empty(t, cfg.GetStringSlice("linkguard.trusted_domains"))
}

func TestInvalidDuration(t *testing.T) {
	v := NewEmptyViper()
	v.Set("trigger.cooldown", "soon")

	_, err := NewFromViper(v).GetTrigger()

	assert.ErrorContains(t, err, "trigger.cooldown")
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  type: sqlite\ntrigger:\n  cooldown: 10s\n"), 0o644))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	sc, err := cfg.GetStore()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", sc.Type)
	tc, err := cfg.GetTrigger()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, tc.Cooldown)
	assert.Equal(t, "mail.google.com", tc.HostMarker)

	_, err = NewFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
