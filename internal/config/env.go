package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/mrz1836/go-sanitize"
)

// Environment variable names.
const (
	EnvHome           = "WALLETCORE_HOME"
	EnvNetwork        = "WALLETCORE_NETWORK"
	EnvAlgodURL       = "WALLETCORE_ALGOD_URL"
	EnvAlgodToken     = "WALLETCORE_ALGOD_TOKEN" // #nosec G101 -- false positive, this is a const name not a credential
	EnvStorage        = "WALLETCORE_STORAGE"
	EnvSessionTimeout = "WALLETCORE_SESSION_TIMEOUT"
	EnvMaxOperations  = "WALLETCORE_MAX_OPERATIONS"
	EnvMaxAttempts    = "WALLETCORE_MAX_ATTEMPTS"
	EnvScheme         = "WALLETCORE_ENCRYPTION"
	EnvServerAddr     = "WALLETCORE_ADDR"
	EnvOutputFormat   = "WALLETCORE_OUTPUT_FORMAT"
	EnvVerbose        = "WALLETCORE_VERBOSE"
	EnvLogLevel       = "WALLETCORE_LOG_LEVEL"
	EnvNoColor        = "NO_COLOR"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
//
//nolint:gocognit,gocyclo // Environment variable overrides require sequential checks
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	// A network switch also moves the endpoint unless one is given explicitly.
	if v := os.Getenv(EnvNetwork); v != "" {
		cfg.Ledger.Network = strings.ToLower(strings.TrimSpace(v))
		if url := AlgodURLFor(cfg.Ledger.Network); url != "" {
			cfg.Ledger.AlgodURL = url
		}
	}

	if v := os.Getenv(EnvAlgodURL); v != "" {
		cfg.Ledger.AlgodURL = SanitizeURL(v)
	}

	if v := os.Getenv(EnvAlgodToken); v != "" {
		cfg.Ledger.AlgodToken = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvStorage); v != "" {
		cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(v))
	}

	// Minutes.
	if v := os.Getenv(EnvSessionTimeout); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Security.SessionTimeoutMinutes = n
		}
	}

	if v := os.Getenv(EnvMaxOperations); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Security.MaxOperations = n
		}
	}

	if v := os.Getenv(EnvMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Security.MaxAttempts = n
		}
	}

	if v := os.Getenv(EnvScheme); v != "" {
		cfg.Encryption.Scheme = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvServerAddr); v != "" {
		cfg.Server.Addr = strings.TrimSpace(v)
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(v)
	}

	if v := os.Getenv(EnvVerbose); v != "" {
		cfg.Output.Verbose = parseBool(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}

	// NO_COLOR disables colored output
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Output.Color = "never"
	}
}

// parseBool parses a boolean string value.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "1" || s == "true" || s == "yes" || s == "on" {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}

// SanitizeURL cleans a URL string by removing invalid characters and trimming whitespace.
// This is useful for cleaning user-provided endpoints that may contain copy-paste artifacts.
func SanitizeURL(url string) string {
	return sanitize.URL(strings.TrimSpace(url))
}
