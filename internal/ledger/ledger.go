// Package ledger defines what the wallet needs from an Algorand node and
// maps node failures to typed errors.
package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/types"

	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// Holding is one asset balance of an account.
type Holding struct {
	AssetID uint64 `json:"asset_id"`
	Amount  uint64 `json:"amount"`
}

// Asset describes an asset's parameters.
type Asset struct {
	ID       uint64 `json:"id"`
	Creator  string `json:"creator"`
	Name     string `json:"name"`
	UnitName string `json:"unit_name"`
	Decimals uint32 `json:"decimals"`
	Total    uint64 `json:"total"`
}

// Confirmation is the outcome of a confirmed transaction.
type Confirmation struct {
	TxID    string `json:"tx_id"`
	Round   uint64 `json:"round"`
	AssetID uint64 `json:"asset_id,omitempty"`
}

// Client is the node surface used by the approval flow. Implementations
// must not retry Submit.
type Client interface {
	FeeParameters(ctx context.Context) (types.SuggestedParams, error)
	AccountBalance(ctx context.Context, address string) (uint64, error)
	AccountHoldings(ctx context.Context, address string) ([]Holding, error)
	AssetInfo(ctx context.Context, assetID uint64) (*Asset, error)
	Submit(ctx context.Context, signed [][]byte) (string, error)
	AwaitConfirmation(ctx context.Context, txID string, maxRounds uint64) (*Confirmation, error)
	LookupAssetCreationResult(ctx context.Context, txID string) (uint64, error)
}

// Rejection reasons carried in the "reason" detail of ErrOperationRejected.
const (
	ReasonRecipientNotOptedIn = "recipient_not_opted_in"
	ReasonNotOptedIn          = "not_opted_in"
	ReasonInsufficientFunds   = "insufficient_funds"
	ReasonAssetNotFound       = "asset_not_found"
	ReasonNonZeroHolding      = "nonzero_holding"
	ReasonRejectedByLedger    = "rejected_by_ledger"
)

// ErrAssetNotFound is returned by AssetInfo for unknown assets.
var ErrAssetNotFound = Reject(ReasonAssetNotFound, "asset does not exist")

// Reject builds an ErrOperationRejected carrying reason and message.
func Reject(reason, message string) error {
	return walleterr.WithDetails(walleterr.ErrOperationRejected, map[string]string{
		"reason":  reason,
		"message": message,
	})
}

// RejectReason returns the reason detail of a rejection, or "".
func RejectReason(err error) string {
	if !errors.Is(err, walleterr.ErrOperationRejected) {
		return ""
	}
	return walleterr.Detail(err, "reason")
}

// NotConfirmed reports a submitted transaction that did not confirm in time.
func NotConfirmed(txID string) error {
	return walleterr.WithDetails(walleterr.ErrNotConfirmedInTime, map[string]string{"tx_id": txID})
}

type rule struct {
	needles []string
	build   func(msg string) error
}

//nolint:gochecknoglobals // Immutable classification table
var rules = []rule{
	{[]string{"already in ledger", "transaction already in the pool"}, func(msg string) error {
		return walleterr.WithCause(walleterr.ErrAlreadyRecorded, errors.New(msg))
	}},
	{[]string{"receiver error: must optin", "receiver not opted in"}, func(string) error {
		return Reject(ReasonRecipientNotOptedIn, "the recipient has not opted in to this asset")
	}},
	{[]string{"must optin", "asset not opted in", "missing from"}, func(string) error {
		return Reject(ReasonNotOptedIn, "this account has not opted in to the asset")
	}},
	{[]string{"overspend", "below min", "insufficient"}, func(string) error {
		return Reject(ReasonInsufficientFunds, "insufficient balance for this operation")
	}},
	{[]string{"asset does not exist", "asset not found", "no asset"}, func(string) error {
		return Reject(ReasonAssetNotFound, "asset does not exist")
	}},
	{[]string{"cannot close asset", "nonzero balance", "non-zero balance"}, func(string) error {
		return Reject(ReasonNonZeroHolding, "cannot opt out while holding a balance of the asset")
	}},
	{[]string{"timeout", "deadline exceeded", "connection refused", "connection reset", "no such host", "eof", "503", "502"}, func(msg string) error {
		return walleterr.WithCause(walleterr.ErrNetwork, errors.New(msg))
	}},
}

// Classify maps a node error to the typed error the approval flow acts on.
// Errors already classified pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var we *walleterr.WalletError
	if errors.As(err, &we) {
		return err
	}

	msg := strings.ToLower(err.Error())
	for _, r := range rules {
		for _, needle := range r.needles {
			if strings.Contains(msg, needle) {
				return r.build(err.Error())
			}
		}
	}
	if strings.Contains(msg, "transactionpool.remember") || strings.Contains(msg, "rejected") {
		return Reject(ReasonRejectedByLedger, err.Error())
	}
	return walleterr.WithCause(walleterr.ErrNetwork, err)
}
