package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", c.Listen)
	assert.Equal(t, 60*time.Second, c.Transaction.Timeout)
	assert.Equal(t, 300*time.Second, c.Transaction.DeadTimeout)
	assert.Equal(t, 2*time.Second, c.Transaction.SweepInterval)
	assert.Equal(t, 64*time.Millisecond, c.Transaction.PollInterval)
	assert.Equal(t, uint64(250), c.Transaction.PollAttempts)
	assert.Equal(t, "info", c.Log.Level)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "coordinator.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
listen: 127.0.0.1:9000
transaction:
  timeout: 10s
  dead_timeout: 1m
  poll_attempts: 5
log:
  encoding: console
`), 0644))
	t.Setenv("SAGA_TRANSACTION_SWEEP_INTERVAL", "500ms")

	v := viper.New()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(v, flags))
	require.NoError(t, flags.Parse([]string{"--services", "/etc/saga/services.yml", "--log-level", "debug"}))

	c, err := Load(v, file)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", c.Listen)
	assert.Equal(t, 10*time.Second, c.Transaction.Timeout)
	assert.Equal(t, time.Minute, c.Transaction.DeadTimeout)
	assert.Equal(t, uint64(5), c.Transaction.PollAttempts)
	assert.Equal(t, 500*time.Millisecond, c.Transaction.SweepInterval)
	assert.Equal(t, "/etc/saga/services.yml", c.ServicesFile)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "console", c.Log.Encoding)
}

func TestLoadRejectsInvertedHorizons(t *testing.T) {
	v := viper.New()
	v.Set("transaction.timeout", "5m")
	v.Set("transaction.dead_timeout", "1m")
	_, err := Load(v, "")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
