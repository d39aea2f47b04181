// Package ledgertest provides an in-memory ledger.Client for tests.
package ledgertest

import (
	"context"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/algointent/walletcore/internal/ledger"
)

// Fee is the flat per-transaction fee the Fake suggests.
const Fee = 1000

// Fake is a scriptable ledger.Client. Exported fields may be set before use;
// use the methods once the Fake is shared between goroutines.
type Fake struct {
	mu sync.Mutex

	Params   types.SuggestedParams
	Balances map[string]uint64
	Holdings map[string][]ledger.Holding
	Assets   map[uint64]*ledger.Asset

	// FeeErr, BalanceErr, SubmitErr and ConfirmErr force failures.
	FeeErr     error
	BalanceErr error
	SubmitErr  error
	ConfirmErr error

	// ConfirmRound is reported for every confirmation. CreatedAssetID is
	// reported for asset creations.
	ConfirmRound   uint64
	CreatedAssetID uint64

	holdingsQueue map[string][][]ledger.Holding
	submitted     [][]types.SignedTxn
	awaited       []string
}

var _ ledger.Client = (*Fake)(nil)

// New returns a Fake with testnet-like parameters and no accounts.
func New() *Fake {
	return &Fake{
		Params: types.SuggestedParams{
			Fee:             Fee,
			FlatFee:         true,
			MinFee:          Fee,
			FirstRoundValid: 1000,
			LastRoundValid:  2000,
			GenesisID:       "testnet-v1.0",
			GenesisHash:     make([]byte, 32),
		},
		Balances:       make(map[string]uint64),
		Holdings:       make(map[string][]ledger.Holding),
		Assets:         make(map[uint64]*ledger.Asset),
		ConfirmRound:   1005,
		CreatedAssetID: 0,
		holdingsQueue:  make(map[string][][]ledger.Holding),
	}
}

// SetBalance sets an account's microAlgo balance.
func (f *Fake) SetBalance(address string, micro uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Balances[address] = micro
}

// SetHoldings replaces an account's asset holdings.
func (f *Fake) SetHoldings(address string, holdings ...ledger.Holding) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Holdings[address] = holdings
}

// QueueHoldings makes the next reads of address return these snapshots in
// order before falling back to Holdings.
func (f *Fake) QueueHoldings(address string, snapshots ...[]ledger.Holding) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holdingsQueue[address] = append(f.holdingsQueue[address], snapshots...)
}

// AddAsset registers an asset.
func (f *Fake) AddAsset(a ledger.Asset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Assets[a.ID] = &a
}

// Submitted returns every submitted group, decoded.
func (f *Fake) Submitted() [][]types.SignedTxn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]types.SignedTxn(nil), f.submitted...)
}

// Awaited returns the transaction ids passed to AwaitConfirmation.
func (f *Fake) Awaited() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.awaited...)
}

// FeeParameters implements ledger.Client.
func (f *Fake) FeeParameters(context.Context) (types.SuggestedParams, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Params, f.FeeErr
}

// AccountBalance implements ledger.Client.
func (f *Fake) AccountBalance(_ context.Context, address string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Balances[address], f.BalanceErr
}

// AccountHoldings implements ledger.Client.
func (f *Fake) AccountHoldings(_ context.Context, address string) ([]ledger.Holding, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q := f.holdingsQueue[address]; len(q) > 0 {
		f.holdingsQueue[address] = q[1:]
		return q[0], nil
	}
	return append([]ledger.Holding(nil), f.Holdings[address]...), nil
}

// AssetInfo implements ledger.Client.
func (f *Fake) AssetInfo(_ context.Context, assetID uint64) (*ledger.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.Assets[assetID]
	if !ok {
		return nil, ledger.ErrAssetNotFound
	}
	cp := *a
	return &cp, nil
}

// Submit implements ledger.Client. The group is recorded even when
// SubmitErr is set, mirroring a node that received it.
func (f *Fake) Submit(_ context.Context, signed [][]byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	group := make([]types.SignedTxn, 0, len(signed))
	for _, raw := range signed {
		var stx types.SignedTxn
		if err := msgpack.Decode(raw, &stx); err != nil {
			return "", err
		}
		group = append(group, stx)
	}
	f.submitted = append(f.submitted, group)
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	return crypto.GetTxID(group[0].Txn), nil
}

// AwaitConfirmation implements ledger.Client.
func (f *Fake) AwaitConfirmation(_ context.Context, txID string, _ uint64) (*ledger.Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.awaited = append(f.awaited, txID)
	if f.ConfirmErr != nil {
		return nil, f.ConfirmErr
	}
	return &ledger.Confirmation{TxID: txID, Round: f.ConfirmRound, AssetID: f.CreatedAssetID}, nil
}

// LookupAssetCreationResult implements ledger.Client.
func (f *Fake) LookupAssetCreationResult(context.Context, string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CreatedAssetID, nil
}
