package algod

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algointent/walletcore/internal/ledger"
	"github.com/algointent/walletcore/internal/metrics"
	"github.com/algointent/walletcore/internal/retry"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

type fakeNode struct {
	mu sync.Mutex

	accountErrs []error // returned in order before succeeding
	account     account
	asset       *ledger.Asset
	sendErr     error
	sent        [][]byte
	pendings    []pending // returned in order, last one repeats
	lastRound   uint64
	waited      []uint64
}

func (f *fakeNode) SuggestedParams(context.Context) (types.SuggestedParams, error) {
	return types.SuggestedParams{Fee: 0, MinFee: 1000, FirstRoundValid: 100, LastRoundValid: 1100, GenesisID: "testnet-v1.0"}, nil
}

func (f *fakeNode) Account(context.Context, string) (account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.accountErrs) > 0 {
		err := f.accountErrs[0]
		f.accountErrs = f.accountErrs[1:]
		return account{}, err
	}
	return f.account, nil
}

func (f *fakeNode) Asset(context.Context, uint64) (*ledger.Asset, error) {
	if f.asset == nil {
		return nil, ledger.ErrAssetNotFound
	}
	return f.asset, nil
}

func (f *fakeNode) SendRaw(_ context.Context, raw []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, raw)
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return "TXID1", nil
}

func (f *fakeNode) Pending(context.Context, string) (pending, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.pendings[0]
	if len(f.pendings) > 1 {
		f.pendings = f.pendings[1:]
	}
	return p, nil
}

func (f *fakeNode) LastRound(context.Context) (uint64, error) {
	return f.lastRound, nil
}

func (f *fakeNode) WaitForRound(_ context.Context, round uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.waited = append(f.waited, round)
	return nil
}

func testClient(n node) *Client {
	return newClient(n, Config{
		RequestsPerSecond: 1000,
		Retry:             retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})
}

func TestNew_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.ErrorIs(t, err, walleterr.ErrConfigInvalid)

	c, err := New(Config{URL: "http://localhost:4001", Token: "aaaa"})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestClient_ReadsRetryTransientErrors(t *testing.T) {
	t.Parallel()

	n := &fakeNode{
		accountErrs: []error{errors.New("dial tcp: connection refused")},
		account:     account{Amount: 5_000_000, Holdings: []ledger.Holding{{AssetID: 7, Amount: 1}}},
	}
	c := testClient(n)

	bal, err := c.AccountBalance(context.Background(), "ADDR")
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), bal)

	holdings, err := c.AccountHoldings(context.Background(), "ADDR")
	require.NoError(t, err)
	assert.Equal(t, []ledger.Holding{{AssetID: 7, Amount: 1}}, holdings)
}

func TestClient_ReadsGiveUpAfterBound(t *testing.T) {
	t.Parallel()

	n := &fakeNode{accountErrs: []error{
		errors.New("timeout"), errors.New("timeout"), errors.New("timeout"), errors.New("timeout"),
	}}
	_, err := testClient(n).AccountBalance(context.Background(), "ADDR")
	require.ErrorIs(t, err, walleterr.ErrNetwork)
	assert.Len(t, n.accountErrs, 1, "exactly three attempts")
}

func TestClient_AssetInfo(t *testing.T) {
	t.Parallel()

	_, err := testClient(&fakeNode{}).AssetInfo(context.Background(), 9)
	require.ErrorIs(t, err, walleterr.ErrOperationRejected)
	assert.Equal(t, ledger.ReasonAssetNotFound, ledger.RejectReason(err))

	a, err := testClient(&fakeNode{asset: &ledger.Asset{ID: 9, Creator: "C"}}).AssetInfo(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "C", a.Creator)
}

func TestClient_SubmitConcatenatesGroupOnce(t *testing.T) {
	t.Parallel()

	n := &fakeNode{}
	txID, err := testClient(n).Submit(context.Background(), [][]byte{{1, 2}, {3}})
	require.NoError(t, err)
	assert.Equal(t, "TXID1", txID)
	assert.Equal(t, [][]byte{{1, 2, 3}}, n.sent)

	_, err = testClient(n).Submit(context.Background(), nil)
	require.ErrorIs(t, err, walleterr.ErrValidation)
}

func TestClient_SubmitIsNeverRetried(t *testing.T) {
	t.Parallel()

	n := &fakeNode{sendErr: errors.New("connection reset by peer")}
	_, err := testClient(n).Submit(context.Background(), [][]byte{{1}})
	require.ErrorIs(t, err, walleterr.ErrNetwork)
	assert.Len(t, n.sent, 1)
}

func TestClient_SubmitClassifiesLedgerErrors(t *testing.T) {
	t.Parallel()

	n := &fakeNode{sendErr: errors.New("TransactionPool.Remember: transaction already in ledger: ABC")}
	_, err := testClient(n).Submit(context.Background(), [][]byte{{1}})
	require.ErrorIs(t, err, walleterr.ErrAlreadyRecorded)

	n = &fakeNode{sendErr: errors.New("TransactionPool.Remember: overspend (account X, data {...})")}
	_, err = testClient(n).Submit(context.Background(), [][]byte{{1}})
	assert.Equal(t, ledger.ReasonInsufficientFunds, ledger.RejectReason(err))
}

func TestClient_AwaitConfirmation(t *testing.T) {
	t.Parallel()

	n := &fakeNode{
		lastRound: 50,
		pendings:  []pending{{}, {}, {ConfirmedRound: 52, AssetIndex: 77}},
	}
	conf, err := testClient(n).AwaitConfirmation(context.Background(), "TXID1", 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(52), conf.Round)
	assert.Equal(t, uint64(77), conf.AssetID)
	assert.Equal(t, []uint64{51, 52}, n.waited)
}

func TestClient_AwaitConfirmationTimesOut(t *testing.T) {
	t.Parallel()

	n := &fakeNode{lastRound: 10, pendings: []pending{{}}}
	_, err := testClient(n).AwaitConfirmation(context.Background(), "TXID1", 3)
	require.ErrorIs(t, err, walleterr.ErrNotConfirmedInTime)
	assert.Equal(t, "TXID1", walleterr.Detail(err, "tx_id"))
	assert.Len(t, n.waited, 3)
}

func TestClient_AwaitConfirmationPoolError(t *testing.T) {
	t.Parallel()

	n := &fakeNode{pendings: []pending{{PoolError: "receiver error: must optin, asset 5 missing from X"}}}
	_, err := testClient(n).AwaitConfirmation(context.Background(), "TXID1", 3)
	assert.Equal(t, ledger.ReasonRecipientNotOptedIn, ledger.RejectReason(err))
}

func TestClient_LookupAssetCreationResult(t *testing.T) {
	t.Parallel()

	id, err := testClient(&fakeNode{pendings: []pending{{ConfirmedRound: 3, AssetIndex: 42}}}).
		LookupAssetCreationResult(context.Background(), "TXID1")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	_, err = testClient(&fakeNode{pendings: []pending{{ConfirmedRound: 3}}}).
		LookupAssetCreationResult(context.Background(), "TXID1")
	require.Error(t, err)
}

func TestClient_RecordsMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	n := &fakeNode{accountErrs: []error{errors.New("timeout")}, account: account{Amount: 1}}
	c := newClient(n, Config{
		RequestsPerSecond: 1000,
		Retry:             retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	}, WithMetrics(m))

	_, err := c.AccountBalance(context.Background(), "ADDR")
	require.NoError(t, err)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.LedgerCallsTotal)
	assert.Equal(t, int64(1), snap.LedgerErrorsTotal)
}
