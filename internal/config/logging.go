package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents logging verbosity levels.
type LogLevel int

// Log level constants.
const (
	LogLevelOff LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelDebug
)

// ParseLogLevel parses a log level string.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return LogLevelOff
	case "error":
		return LogLevelError
	case "info":
		return LogLevelInfo
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelError
	}
}

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelOff:
		return "off"
	case LogLevelError:
		return "error"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "error"
	}
}

// zapLevel maps l onto zap. Off has no zap equivalent and is handled by callers.
func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zap.DebugLevel
	case LogLevelInfo:
		return zap.InfoLevel
	default:
		return zap.ErrorLevel
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the application logger: JSON lines to a rotating file
// when one is configured, plus a console copy on stderr when debug is set.
// The returned closer releases the file.
func NewLogger(cfg LoggingConfig, debug bool) (*zap.Logger, io.Closer, error) {
	level := ParseLogLevel(cfg.Level)
	if debug {
		level = LogLevelDebug
	}
	if level == LogLevelOff {
		return zap.NewNop(), nopCloser{}, nil
	}

	var (
		cores  []zapcore.Core
		closer io.Closer = nopCloser{}
	)
	if cfg.File != "" {
		path, err := ExpandHome(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, nil, err
		}

		ext := filepath.Ext(path)
		pattern := strings.TrimSuffix(path, ext) + ".%Y%m%d" + ext
		opts := []rotatelogs.Option{rotatelogs.WithLinkName(path)}
		if cfg.MaxAgeDays > 0 {
			opts = append(opts, rotatelogs.WithMaxAge(time.Duration(cfg.MaxAgeDays)*24*time.Hour))
		}
		if cfg.RotationHours > 0 {
			opts = append(opts, rotatelogs.WithRotationTime(time.Duration(cfg.RotationHours)*time.Hour))
		}
		rotator, err := rotatelogs.New(pattern, opts...)
		if err != nil {
			return nil, nil, err
		}
		closer = rotator
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(rotator), level.zapLevel()))
	}
	if debug {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.Lock(os.Stderr), zap.DebugLevel))
	}
	if len(cores) == 0 {
		return zap.NewNop(), closer, nil
	}
	return zap.New(zapcore.NewTee(cores...)), closer, nil
}
