package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

// TestLoadAppliesDefaults verifies a minimal file is filled with defaults.
func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "database_path: /tmp/test.db\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "/tmp/test.db", cfg.DatabasePath)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, DefaultSyncIntervalMin, cfg.Sync.IntervalMin)
	require.Equal(t, DefaultCycleTimeout, cfg.Sync.CycleTimeout)
	require.Equal(t, DefaultMaxRetries, cfg.Sync.MaxRetries)
	require.Equal(t, DefaultRetryBackoff, cfg.Sync.RetryBackoff)
}

// TestLoadFullConfig verifies all sections parse, including providers.
func TestLoadFullConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
log_level: debug
database_path: /data/alarms.db
sync:
  interval_min: 5
  cycle_timeout: 30s
  max_retries: 4
  retry_backoff: 250ms
providers:
  - name: google
    kind: google
    base_url: https://calendar.example.com
    access_token: tok-1
  - name: home-caldav
    kind: caldav
    base_url: https://dav.example.com
    username: alice
    password: secret
    timeout: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 5, cfg.Sync.IntervalMin)
	require.Equal(t, 30*time.Second, cfg.Sync.CycleTimeout)
	require.Equal(t, 4, cfg.Sync.MaxRetries)
	require.Equal(t, 250*time.Millisecond, cfg.Sync.RetryBackoff)

	require.Len(t, cfg.Providers, 2)
	require.Equal(t, "google", cfg.Providers[0].Name)
	require.Equal(t, DefaultProviderTimeout, cfg.Providers[0].Timeout)
	require.Equal(t, 3*time.Second, cfg.Providers[1].Timeout)
}

// TestLoadExplicitZeroRetries verifies that an explicit max_retries: 0
// disables retries instead of being replaced by the default.
func TestLoadExplicitZeroRetries(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
sync:
  max_retries: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Sync.MaxRetries)
}

// TestValidateRejectsBadProviders covers the provider validation rules.
func TestValidateRejectsBadProviders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contents string
	}{
		{
			name: "missing name",
			contents: `
providers:
  - kind: google
    base_url: https://example.com
`,
		},
		{
			name: "duplicate name",
			contents: `
providers:
  - name: google
    kind: google
    base_url: https://example.com
  - name: google
    kind: outlook
    base_url: https://example.org
`,
		},
		{
			name: "missing base url",
			contents: `
providers:
  - name: google
    kind: google
`,
		},
		{
			name: "unknown kind",
			contents: `
providers:
  - name: mystery
    kind: carrier-pigeon
    base_url: https://example.com
`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeConfig(t, tt.contents))
			require.Error(t, err)
		})
	}
}

// TestLoadMissingFile verifies a readable error for a missing config file.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
