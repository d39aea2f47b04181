package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/algointent/walletcore/internal/config"
)

//nolint:paralleltest // t.Setenv cannot be combined with t.Parallel
func TestApplyEnvironment(t *testing.T) {
	t.Setenv(config.EnvHome, "/tmp/wc")
	t.Setenv(config.EnvAlgodToken, "  tok  ")
	t.Setenv(config.EnvStorage, "LevelDB")
	t.Setenv(config.EnvSessionTimeout, "30")
	t.Setenv(config.EnvMaxOperations, "4")
	t.Setenv(config.EnvMaxAttempts, "5")
	t.Setenv(config.EnvServerAddr, ":9090")
	t.Setenv(config.EnvOutputFormat, "JSON")
	t.Setenv(config.EnvVerbose, "yes")
	t.Setenv(config.EnvLogLevel, "DEBUG")

	cfg := config.Defaults()
	config.ApplyEnvironment(cfg)

	assert.Equal(t, "/tmp/wc", cfg.Home)
	assert.Equal(t, "tok", cfg.Ledger.AlgodToken)
	assert.Equal(t, "leveldb", cfg.Storage.Backend)
	assert.Equal(t, 30, cfg.Security.SessionTimeoutMinutes)
	assert.Equal(t, 4, cfg.Security.MaxOperations)
	assert.Equal(t, 5, cfg.Security.MaxAttempts)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Output.DefaultFormat)
	assert.True(t, cfg.Output.Verbose)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

//nolint:paralleltest // t.Setenv cannot be combined with t.Parallel
func TestApplyEnvironment_NetworkMovesEndpoint(t *testing.T) {
	t.Setenv(config.EnvNetwork, "MainNet")

	cfg := config.Defaults()
	config.ApplyEnvironment(cfg)
	assert.Equal(t, "mainnet", cfg.Ledger.Network)
	assert.Equal(t, config.MainnetAlgodURL, cfg.Ledger.AlgodURL)

	// An explicit endpoint wins.
	t.Setenv(config.EnvAlgodURL, "http://localhost:4001")
	cfg = config.Defaults()
	config.ApplyEnvironment(cfg)
	assert.Equal(t, "http://localhost:4001", cfg.Ledger.AlgodURL)
}

//nolint:paralleltest // t.Setenv cannot be combined with t.Parallel
func TestApplyEnvironment_IgnoresBadNumbers(t *testing.T) {
	t.Setenv(config.EnvMaxAttempts, "many")
	t.Setenv(config.EnvSessionTimeout, "-5")

	cfg := config.Defaults()
	config.ApplyEnvironment(cfg)
	assert.Equal(t, 3, cfg.Security.MaxAttempts)
	assert.Equal(t, 1440, cfg.Security.SessionTimeoutMinutes)
}

//nolint:paralleltest // t.Setenv cannot be combined with t.Parallel
func TestApplyEnvironment_NoColor(t *testing.T) {
	t.Setenv(config.EnvNoColor, "")

	cfg := config.Defaults()
	config.ApplyEnvironment(cfg)
	assert.Equal(t, "never", cfg.Output.Color)
}
