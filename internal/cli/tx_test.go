package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algointent/walletcore/internal/ledger"
	"github.com/algointent/walletcore/internal/service/approval"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

func TestSend_Interactive(t *testing.T) {
	env := newCLIEnv(t)
	env.connect(t)
	to := newAddress(t)

	out, err := env.run(t, "", "send", "--to", to, "--amount", "1.5")
	require.NoError(t, err)
	assert.Contains(t, env.stderr, "Send 1.5 ALGO", "the summary is shown before the password")
	assert.Contains(t, out, "round 1005")

	groups := env.ledger.Submitted()
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 1)
	assert.Equal(t, to, groups[0][0].Txn.Receiver.String())
	assert.EqualValues(t, 1_500_000, groups[0][0].Txn.Amount)
}

func TestSend_Declined(t *testing.T) {
	env := newCLIEnv(t)
	env.connect(t)
	promptConfirmFn = func(string) bool { return false }

	_, err := env.run(t, "", "send", "--to", newAddress(t), "--amount", "1")
	require.ErrorIs(t, err, walleterr.ErrOperationRejected)
	assert.Equal(t, "declined", walleterr.Detail(err, "reason"))
	assert.Empty(t, env.ledger.Submitted())
}

func TestSend_YesSkipsConfirmation(t *testing.T) {
	env := newCLIEnv(t)
	env.connect(t)
	promptConfirmFn = func(string) bool {
		t.Fatal("confirmation must not be asked")
		return false
	}

	_, err := env.run(t, "", "send", "--to", newAddress(t), "--amount", "1", "--yes")
	require.NoError(t, err)
	assert.Len(t, env.ledger.Submitted(), 1)
}

func TestSend_DryRun(t *testing.T) {
	env := newCLIEnv(t)
	env.connect(t)

	out, err := env.run(t, "", "send", "--to", newAddress(t), "--amount", "1", "--dry-run", "-o", "json")
	require.NoError(t, err)
	assert.Empty(t, env.ledger.Submitted())

	var view struct {
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, string(approval.StateStaged), view.State)
}

func TestSend_WrongPassword(t *testing.T) {
	env := newCLIEnv(t)
	env.connect(t)

	out, err := env.run(t, "not-my-password-1\n", "send", "--to", newAddress(t), "--amount", "1", "--password-stdin")
	require.ErrorIs(t, err, walleterr.ErrAuthentication)
	assert.Equal(t, walleterr.ExitAuth, walleterr.ExitCode(err))
	assert.Contains(t, out, "2 attempt(s) left.")
	assert.Empty(t, env.ledger.Submitted())
}

func TestSend_EmptyPasswordStdin(t *testing.T) {
	env := newCLIEnv(t)
	env.connect(t)

	_, err := env.run(t, "", "send", "--to", newAddress(t), "--amount", "1", "--password-stdin")
	require.ErrorIs(t, err, walleterr.ErrValidation)
}

func TestSend_Validation(t *testing.T) {
	env := newCLIEnv(t)
	env.connect(t)

	_, err := env.run(t, "", "send", "--to", "not-an-address", "--amount", "1")
	require.ErrorIs(t, err, walleterr.ErrInvalidAddress)

	_, err = env.run(t, "", "send", "--to", newAddress(t), "--amount", "-3")
	require.ErrorIs(t, err, walleterr.ErrInvalidAmount)

	_, err = env.run(t, "", "send", "--amount", "1")
	require.Error(t, err, "--to is required")
}

func TestSend_InsufficientFunds(t *testing.T) {
	env := newCLIEnv(t)
	env.connect(t)

	out, err := env.run(t, "", "send", "--to", newAddress(t), "--amount", "500")
	require.ErrorIs(t, err, walleterr.ErrOperationRejected)
	assert.Equal(t, string(approval.ReasonInsufficientFunds), walleterr.Detail(err, "reason"))
	assert.Contains(t, out, "Rejected:")
}

func TestSendMulti(t *testing.T) {
	env := newCLIEnv(t)
	env.connect(t)
	a, b := newAddress(t), newAddress(t)

	_, err := env.run(t, "", "send-multi", "--to", a+"=1", "--to", b+"=2.5")
	require.NoError(t, err)

	groups := env.ledger.Submitted()
	require.Len(t, groups, 1)
	require.Len(t, groups[0], 2)
	assert.EqualValues(t, 1_000_000, groups[0][0].Txn.Amount)
	assert.EqualValues(t, 2_500_000, groups[0][1].Txn.Amount)
}

func TestAssetOptIn(t *testing.T) {
	env := newCLIEnv(t)
	gen := env.connect(t)
	env.ledger.AddAsset(ledger.Asset{ID: 31566704, Name: "Cat", UnitName: "CAT", Total: 1})

	out, err := env.run(t, "", "asset", "optin", "--asset", "31566704")
	require.NoError(t, err)
	assert.Contains(t, out, "round 1005")

	groups := env.ledger.Submitted()
	require.Len(t, groups, 1)
	assert.Equal(t, gen.Address, groups[0][0].Txn.AssetReceiver.String())
	assert.EqualValues(t, 31566704, groups[0][0].Txn.XferAsset)

	_, err = env.run(t, "", "asset", "optin")
	require.Error(t, err, "--asset is required")
}

func TestParseRecipients(t *testing.T) {
	t.Parallel()

	got := parseRecipients([]string{"AAA", " BBB = 2.5 ", "CCC="})
	assert.Equal(t, []approval.Recipient{
		{Address: "AAA"},
		{Address: "BBB", Amount: "2.5"},
		{Address: "CCC"},
	}, got)
	assert.Empty(t, parseRecipients(nil))
}

func TestResultErr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		res    approval.Result
		want   error
		reason string
	}{
		{"signed", approval.Signed{}, nil, ""},
		{"staged", approval.Staged{}, nil, ""},
		{"locked", approval.Rejected{Reason: approval.ReasonLockedOut}, walleterr.ErrLockedOut, ""},
		{"password", approval.Rejected{Reason: approval.ReasonIncorrectPassword}, walleterr.ErrAuthentication, ""},
		{"unconfirmed", approval.Rejected{Reason: approval.ReasonNotConfirmed, TxID: "TX"}, walleterr.ErrNotConfirmedInTime, ""},
		{"funds", approval.Rejected{Reason: approval.ReasonInsufficientFunds}, walleterr.ErrOperationRejected, "insufficient_funds"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := resultErr(tc.res)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.want)
			if tc.reason != "" {
				assert.Equal(t, tc.reason, walleterr.Detail(err, "reason"))
			}
		})
	}
}

func TestInteractiveApproval(t *testing.T) {
	withMockPrompts(t, testPassword, true)

	var buf bytes.Buffer
	pw, err := interactiveApproval(&buf)(context.Background(), approval.Summary{Kind: approval.KindOptIn, AssetID: 7})
	require.NoError(t, err)
	assert.Equal(t, testPassword, pw)
	assert.NotEmpty(t, buf.String())
}
