package algod

import (
	"context"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/algointent/walletcore/internal/ledger"
)

// sdkNode adapts *algod.Client to node.
type sdkNode struct {
	c *algod.Client
}

func (n sdkNode) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	return n.c.SuggestedParams().Do(ctx)
}

func (n sdkNode) Account(ctx context.Context, address string) (account, error) {
	info, err := n.c.AccountInformation(address).Do(ctx)
	if err != nil {
		return account{}, err
	}
	out := account{Amount: info.Amount}
	for _, h := range info.Assets {
		out.Holdings = append(out.Holdings, ledger.Holding{AssetID: h.AssetId, Amount: h.Amount})
	}
	return out, nil
}

func (n sdkNode) Asset(ctx context.Context, id uint64) (*ledger.Asset, error) {
	a, err := n.c.GetAssetByID(id).Do(ctx)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, ledger.ErrAssetNotFound
		}
		return nil, err
	}
	return &ledger.Asset{
		ID:       a.Index,
		Creator:  a.Params.Creator,
		Name:     a.Params.Name,
		UnitName: a.Params.UnitName,
		Decimals: uint32(a.Params.Decimals), //nolint:gosec // G115: ledger caps decimals at 19
		Total:    a.Params.Total,
	}, nil
}

func (n sdkNode) SendRaw(ctx context.Context, raw []byte) (string, error) {
	return n.c.SendRawTransaction(raw).Do(ctx)
}

func (n sdkNode) Pending(ctx context.Context, txID string) (pending, error) {
	info, _, err := n.c.PendingTransactionInformation(txID).Do(ctx)
	if err != nil {
		return pending{}, err
	}
	return pending{
		ConfirmedRound: info.ConfirmedRound,
		AssetIndex:     info.AssetIndex,
		PoolError:      info.PoolError,
	}, nil
}

func (n sdkNode) LastRound(ctx context.Context) (uint64, error) {
	status, err := n.c.Status().Do(ctx)
	if err != nil {
		return 0, err
	}
	return status.LastRound, nil
}

func (n sdkNode) WaitForRound(ctx context.Context, round uint64) error {
	_, err := n.c.StatusAfterBlock(round).Do(ctx)
	return err
}
