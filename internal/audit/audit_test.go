package audit_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/algointent/walletcore/internal/audit"
)

func TestLog_RecordObserved(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.InfoLevel)
	log := audit.FromLogger(zap.New(core))

	log.Record(context.Background(), "42", audit.PasswordError, "2 attempts remaining")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(audit.PasswordError), entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "42", fields["user_id"])
	assert.Equal(t, "2 attempts remaining", fields["detail"])
}

func TestLog_OneLinePerEvent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := audit.NewLog(zapcore.AddSync(&buf))

	log.Record(context.Background(), "alice", audit.WalletCreated, "address ABC")
	log.Record(context.Background(), "bob", audit.TransactionSigned, "line one\nline two\r\n")
	require.NoError(t, log.Close())

	scanner := bufio.NewScanner(&buf)
	var lines []map[string]any
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)

	assert.Equal(t, "WALLET_CREATED", lines[0]["event"])
	assert.Equal(t, "alice", lines[0]["user_id"])
	assert.NotEmpty(t, lines[0]["ts"])

	assert.Equal(t, "TRANSACTION_SIGNED", lines[1]["event"])
	assert.NotContains(t, lines[1]["detail"], "\n")
}

func TestOpen_WritesRotatingFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "logs")
	log, err := audit.Open(audit.Config{Dir: dir})
	require.NoError(t, err)

	log.Record(context.Background(), "carol", audit.WalletDisconnected, "")
	require.NoError(t, log.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "security.*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0]) //nolint:gosec // G304: Test path from t.TempDir()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event":"WALLET_DISCONNECTED"`)
	assert.Contains(t, string(data), `"user_id":"carol"`)
}

func TestOpen_RequiresDir(t *testing.T) {
	t.Parallel()

	_, err := audit.Open(audit.Config{})
	require.ErrorIs(t, err, audit.ErrNoDir)
}

func TestNop(t *testing.T) {
	t.Parallel()

	var r audit.Recorder = audit.Nop{}
	r.Record(context.Background(), "x", audit.BalanceChecked, "")
}
