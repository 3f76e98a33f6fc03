package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Notification.OffsetAmount)
	assert.Equal(t, "day", cfg.Notification.OffsetUnit)
	assert.True(t, cfg.Notification.Enabled)
	assert.Equal(t, 50, cfg.Reconciliation.BatchSize)
	assert.True(t, cfg.Payment.Default.Cancellation)
	assert.Same(t, cfg, Get())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: sqlite
  path: /tmp/subsync.db
notification:
  offset_amount: 1
  offset_unit: week
payment:
  gateways:
    manual:
      suspension: false
      reactivation: false
      cancellation: true
`), 0o600))
	t.Setenv("SUBSYNC_RECONCILIATION_BATCH_SIZE", "7")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/subsync.db", cfg.Database.GetDSN())
	assert.Equal(t, "week", cfg.Notification.OffsetUnit)
	assert.Equal(t, 7, cfg.Reconciliation.BatchSize)
	require.Contains(t, cfg.Payment.Gateways, "manual")
	assert.False(t, cfg.Payment.Gateways["manual"].Suspension)
	assert.True(t, cfg.Payment.Gateways["manual"].Cancellation)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("notification:\n  offset_unit: month\n"), 0o600))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}
