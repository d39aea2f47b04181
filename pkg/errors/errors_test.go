package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/algointent/walletcore/pkg/errors"
)

var (
	errInner = errors.New("inner")
	errPlain = errors.New("plain error")
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"success", nil, walleterr.ExitSuccess},
		{"general", walleterr.ErrGeneral, walleterr.ExitGeneral},
		{"validation", walleterr.ErrValidation, walleterr.ExitInput},
		{"invalid address", walleterr.ErrInvalidAddress, walleterr.ExitInput},
		{"auth", walleterr.ErrAuthentication, walleterr.ExitAuth},
		{"locked out", walleterr.ErrLockedOut, walleterr.ExitAuth},
		{"not connected", walleterr.ErrNotConnected, walleterr.ExitNotFound},
		{"no pending", walleterr.ErrNoPendingOperation, walleterr.ExitNotFound},
		{"rate limited", walleterr.ErrRateLimited, walleterr.ExitPermission},
		{"rejected", walleterr.ErrOperationRejected, walleterr.ExitPermission},
		{"not confirmed", walleterr.ErrNotConfirmedInTime, walleterr.ExitPending},
		{"plain", errPlain, walleterr.ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, walleterr.ExitCode(tt.err))
		})
	}
}

func TestWrapPreservesIdentity(t *testing.T) {
	t.Parallel()
	sentinels := []*walleterr.WalletError{
		walleterr.ErrValidation,
		walleterr.ErrNotConnected,
		walleterr.ErrAuthentication,
		walleterr.ErrLockedOut,
		walleterr.ErrOperationRejected,
	}
	for _, s := range sentinels {
		wrapped := walleterr.Wrap(s, "context %d", 1)
		require.ErrorIs(t, wrapped, s)
		assert.Contains(t, wrapped.Error(), "context 1")
		assert.Equal(t, s.ExitCode, walleterr.ExitCode(wrapped))
	}
}

func TestWithDetailsAndSuggestion(t *testing.T) {
	t.Parallel()
	details := map[string]string{"retry_after": "5m0s"}

	err := walleterr.WithDetails(walleterr.ErrRateLimited, details)
	err = walleterr.WithSuggestion(err, "slow down")

	var we *walleterr.WalletError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, details, we.Details)
	assert.Equal(t, "slow down", we.Suggestion)
	assert.Equal(t, "5m0s", walleterr.Detail(err, "retry_after"))
	assert.Empty(t, walleterr.Detail(err, "missing"))
	require.ErrorIs(t, err, walleterr.ErrRateLimited)
}

func TestWithCause(t *testing.T) {
	t.Parallel()
	err := walleterr.WithCause(walleterr.ErrNetwork, errInner)

	require.ErrorIs(t, err, walleterr.ErrNetwork)
	require.ErrorIs(t, err, errInner)
	assert.Equal(t, "network communication failed: inner", err.Error())
}

func TestWalletError_Error(t *testing.T) {
	t.Parallel()

	t.Run("message only", func(t *testing.T) {
		t.Parallel()
		err := &walleterr.WalletError{Code: "TEST", Message: "something failed"}
		assert.Equal(t, "something failed", err.Error())
	})

	t.Run("with details sorted", func(t *testing.T) {
		t.Parallel()
		err := &walleterr.WalletError{
			Code:    "TEST",
			Message: "failed",
			Details: map[string]string{"beta": "2", "alpha": "1"},
		}
		assert.Equal(t, "failed (alpha: 1) (beta: 2)", err.Error())
	})

	t.Run("with details and cause", func(t *testing.T) {
		t.Parallel()
		err := &walleterr.WalletError{
			Code:    "TEST",
			Message: "outer",
			Details: map[string]string{"key": "val"},
			Cause:   errInner,
		}
		assert.Equal(t, "outer (key: val): inner", err.Error())
	})
}

func TestWalletError_Is(t *testing.T) {
	t.Parallel()

	a := &walleterr.WalletError{Code: "SAME", Message: "a"}
	b := &walleterr.WalletError{Code: "SAME", Message: "b"}
	c := &walleterr.WalletError{Code: "OTHER", Message: "c"}

	assert.True(t, a.Is(b))
	assert.False(t, a.Is(c))
	assert.False(t, a.Is(errPlain))
}

func TestHelpers_nonWalletError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, walleterr.Wrap(nil, "context"))
	assert.NoError(t, walleterr.WithDetails(nil, nil))
	assert.NoError(t, walleterr.WithSuggestion(nil, "x"))

	wrapped := walleterr.Wrap(errPlain, "context")
	var we *walleterr.WalletError
	require.ErrorAs(t, wrapped, &we)
	assert.Equal(t, "GENERAL_ERROR", we.Code)
	assert.Equal(t, errPlain, we.Cause)

	assert.Equal(t, "GENERAL_ERROR", walleterr.Code(errPlain))
	assert.Equal(t, "LOCKED_OUT", walleterr.Code(walleterr.ErrLockedOut))
}
