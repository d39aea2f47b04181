// Package config provides configuration management for walletcore.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"gopkg.in/yaml.v3"

	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Home       string           `yaml:"home"`
	Storage    StorageConfig    `yaml:"storage"`
	Security   SecurityConfig   `yaml:"security"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Audit      AuditConfig      `yaml:"audit"`
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
	Output     OutputConfig     `yaml:"output"`
}

// StorageConfig selects the session backend.
type StorageConfig struct {
	Backend string `yaml:"backend" valid:"in(file|leveldb)"`
	// Path defaults to <home>/sessions for file and <home>/sessions.db for leveldb.
	Path string `yaml:"path"`
}

// SecurityConfig defines session and approval limits.
type SecurityConfig struct {
	SessionTimeoutMinutes int  `yaml:"session_timeout_minutes" valid:"range(1|43200)"`
	MaxOperations         int  `yaml:"max_operations" valid:"range(1|1000)"`
	WindowMinutes         int  `yaml:"window_minutes" valid:"range(1|10080)"`
	MaxAttempts           int  `yaml:"max_attempts" valid:"range(1|100)"`
	PendingTTLMinutes     int  `yaml:"pending_ttl_minutes" valid:"range(1|1440)"`
	MemoryLock            bool `yaml:"memory_lock"`
}

// EncryptionConfig selects the vault scheme for new secrets.
type EncryptionConfig struct {
	Scheme         string `yaml:"scheme" valid:"in(scrypt|argon2id)"`
	ArgonTime      uint8  `yaml:"argon_time"`
	ArgonMemoryKiB uint32 `yaml:"argon_memory_kib"`
	ArgonThreads   uint8  `yaml:"argon_threads"`
}

// LedgerConfig defines the algod endpoint.
type LedgerConfig struct {
	Network           string  `yaml:"network" valid:"in(mainnet|testnet|betanet|localnet)"`
	AlgodURL          string  `yaml:"algod_url" valid:"url,required"`
	AlgodToken        string  `yaml:"algod_token"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	TimeoutSeconds    int     `yaml:"timeout_seconds" valid:"range(1|300)"`
	RetryAttempts     int     `yaml:"retry_attempts" valid:"range(1|10)"`
	MaxRounds         int     `yaml:"max_rounds" valid:"range(1|1000)"`
}

// AuditConfig defines the security log location.
type AuditConfig struct {
	// Dir defaults to <home>/logs.
	Dir           string `yaml:"dir"`
	MaxAgeDays    int    `yaml:"max_age_days"`
	RotationHours int    `yaml:"rotation_hours"`
}

// LoggingConfig defines application logging.
type LoggingConfig struct {
	Level         string `yaml:"level" valid:"in(off|error|info|debug)"`
	File          string `yaml:"file"`
	MaxAgeDays    int    `yaml:"max_age_days"`
	RotationHours int    `yaml:"rotation_hours"`
}

// ServerConfig defines the HTTP frontend.
type ServerConfig struct {
	Addr                 string  `yaml:"addr" valid:"required"`
	ReadTimeoutSeconds   int     `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds  int     `yaml:"write_timeout_seconds"`
	ThrottleRPS          float64 `yaml:"throttle_rps"`
	ThrottleBurst        int     `yaml:"throttle_burst"`
	SweepIntervalSeconds int     `yaml:"sweep_interval_seconds"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" valid:"in(auto|text|json)"`
	Color         string `yaml:"color" valid:"in(auto|always|never)"`
	Verbose       bool   `yaml:"verbose"`
}

// Load reads configuration from the specified file on top of Defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, walleterr.WithCause(walleterr.ErrConfigInvalid, err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, falling back to Defaults when it does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	if _, err := govalidator.ValidateStruct(c); err != nil {
		return walleterr.WithDetails(walleterr.ErrConfigInvalid, map[string]string{"reason": err.Error()})
	}
	return nil
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// DefaultHome returns the default walletcore home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".walletcore"
	}
	return filepath.Join(home, ".walletcore")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}

// GetHome returns the expanded home directory.
func (c *Config) GetHome() string {
	home, err := ExpandHome(c.Home)
	if err != nil {
		return c.Home
	}
	return home
}

// SessionPath returns where the session backend keeps its data.
func (c *Config) SessionPath() string {
	if c.Storage.Path != "" {
		p, _ := ExpandHome(c.Storage.Path)
		return p
	}
	if c.Storage.Backend == "leveldb" {
		return filepath.Join(c.GetHome(), "sessions.db")
	}
	return filepath.Join(c.GetHome(), "sessions")
}

// AuditDir returns the security log directory.
func (c *Config) AuditDir() string {
	if c.Audit.Dir != "" {
		p, _ := ExpandHome(c.Audit.Dir)
		return p
	}
	return filepath.Join(c.GetHome(), "logs")
}

// SessionTimeout returns the idle session timeout.
func (c *Config) SessionTimeout() time.Duration {
	return time.Duration(c.Security.SessionTimeoutMinutes) * time.Minute
}

// RateWindow returns the operation rate-limit window.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.Security.WindowMinutes) * time.Minute
}

// PendingTTL returns how long an operation waits for its password.
func (c *Config) PendingTTL() time.Duration {
	return time.Duration(c.Security.PendingTTLMinutes) * time.Minute
}

// LedgerTimeout returns the per-request node timeout.
func (c *Config) LedgerTimeout() time.Duration {
	return time.Duration(c.Ledger.TimeoutSeconds) * time.Second
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}
