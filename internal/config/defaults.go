package config

// Public algod endpoints that need no token.
const (
	MainnetAlgodURL  = "https://mainnet-api.algonode.cloud"
	TestnetAlgodURL  = "https://testnet-api.algonode.cloud"
	BetanetAlgodURL  = "https://betanet-api.algonode.cloud"
	LocalnetAlgodURL = "http://localhost:4001"
)

// AlgodURLFor returns the public endpoint for network, or "" if unknown.
func AlgodURLFor(network string) string {
	switch network {
	case "mainnet":
		return MainnetAlgodURL
	case "testnet":
		return TestnetAlgodURL
	case "betanet":
		return BetanetAlgodURL
	case "localnet":
		return LocalnetAlgodURL
	default:
		return ""
	}
}

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.walletcore",
		Storage: StorageConfig{
			Backend: "file",
		},
		Security: SecurityConfig{
			SessionTimeoutMinutes: 24 * 60,
			MaxOperations:         10,
			WindowMinutes:         60,
			MaxAttempts:           3,
			PendingTTLMinutes:     10,
			MemoryLock:            true,
		},
		Encryption: EncryptionConfig{
			Scheme:         "scrypt",
			ArgonTime:      3,
			ArgonMemoryKiB: 64 * 1024,
			ArgonThreads:   4,
		},
		Ledger: LedgerConfig{
			Network:           "testnet",
			AlgodURL:          TestnetAlgodURL,
			RequestsPerSecond: 10,
			TimeoutSeconds:    10,
			RetryAttempts:     3,
			MaxRounds:         10,
		},
		Audit: AuditConfig{
			MaxAgeDays:    90,
			RotationHours: 24,
		},
		Logging: LoggingConfig{
			Level:         "error",
			File:          "~/.walletcore/walletcore.log",
			MaxAgeDays:    14,
			RotationHours: 24,
		},
		Server: ServerConfig{
			Addr:                 "127.0.0.1:8080",
			ReadTimeoutSeconds:   15,
			WriteTimeoutSeconds:  90,
			ThrottleRPS:          1,
			ThrottleBurst:        5,
			SweepIntervalSeconds: 60,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
		},
	}
}
