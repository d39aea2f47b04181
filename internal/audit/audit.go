// Package audit records security-relevant events as an append-only log.
// One JSON line is written per event: timestamp, user, event type, detail.
// Nothing in the core reads these entries back to make decisions.
package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/mrz1836/go-sanitize"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EventType names a security event.
type EventType string

// Event types.
const (
	WalletCreationInitiated EventType = "WALLET_CREATION_INITIATED"
	WalletCreated           EventType = "WALLET_CREATED"
	WalletConnected         EventType = "WALLET_CONNECTED"
	WalletConnectionFailed  EventType = "WALLET_CONNECTION_FAILED"
	WalletDisconnected      EventType = "WALLET_DISCONNECTED"
	SessionExpired          EventType = "SESSION_EXPIRED"
	SessionCorrupted        EventType = "SESSION_CORRUPTED"
	RateLimitExceeded       EventType = "RATE_LIMIT_EXCEEDED"
	MaxAttemptsExceeded     EventType = "MAX_ATTEMPTS_EXCEEDED"
	LockoutReset            EventType = "LOCKOUT_RESET"
	PasswordError           EventType = "PASSWORD_ERROR"
	TransactionPending      EventType = "TRANSACTION_PENDING"
	TransactionCancelled    EventType = "TRANSACTION_CANCELLED"
	TransactionSigned       EventType = "TRANSACTION_SIGNED"
	TransactionFailed       EventType = "TRANSACTION_FAILED"
	MultiSendCompleted      EventType = "MULTI_SEND_COMPLETED"
	NFTCreated              EventType = "NFT_CREATED"
	AssetOptIn              EventType = "ASSET_OPT_IN"
	AssetOptOut             EventType = "ASSET_OPT_OUT"
	BalanceChecked          EventType = "BALANCE_CHECKED"
)

// ErrNoDir is returned by Open when no directory is configured.
var ErrNoDir = errors.New("audit log directory is empty")

// Recorder accepts security events.
type Recorder interface {
	Record(ctx context.Context, userID string, typ EventType, detail string)
}

// Nop discards events.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, string, EventType, string) {}

// Config configures a file-backed Log.
type Config struct {
	// Dir receives security.<date>.log files and a security.log link.
	Dir          string
	MaxAge       time.Duration
	RotationTime time.Duration
}

// Log writes events through zap to a rotating file.
type Log struct {
	logger *zap.Logger
	closer io.Closer
}

// encoderConfig keeps only the four event columns.
func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		MessageKey:     "event",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

// Open creates a Log writing to rotating files under cfg.Dir.
func Open(cfg Config) (*Log, error) {
	if cfg.Dir == "" {
		return nil, ErrNoDir
	}
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}

	opts := []rotatelogs.Option{
		rotatelogs.WithLinkName(filepath.Join(cfg.Dir, "security.log")),
	}
	if cfg.MaxAge > 0 {
		opts = append(opts, rotatelogs.WithMaxAge(cfg.MaxAge))
	}
	if cfg.RotationTime > 0 {
		opts = append(opts, rotatelogs.WithRotationTime(cfg.RotationTime))
	}

	rotator, err := rotatelogs.New(filepath.Join(cfg.Dir, "security.%Y%m%d.log"), opts...)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	l := NewLog(zapcore.AddSync(rotator))
	l.closer = rotator
	return l, nil
}

// NewLog creates a Log writing JSON lines to w.
func NewLog(w zapcore.WriteSyncer) *Log {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), w, zap.InfoLevel)
	return &Log{logger: zap.New(core)}
}

// FromLogger wraps an existing zap logger. Tests pass an observer core.
func FromLogger(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

// Record writes one event. Detail is flattened to a single line.
func (l *Log) Record(_ context.Context, userID string, typ EventType, detail string) {
	l.logger.Info(string(typ),
		zap.String("user_id", userID),
		zap.String("detail", cleanDetail(detail)),
	)
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	_ = l.logger.Sync()
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func cleanDetail(detail string) string {
	return strings.TrimSpace(sanitize.SingleLine(detail))
}
