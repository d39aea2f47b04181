package approval

import (
	"context"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/algointent/walletcore/internal/amount"
	"github.com/algointent/walletcore/internal/ledger"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// prepare runs the up-front ledger checks and builds the unsigned group.
// A non-nil Rejected means a precondition failed before any password.
func (m *Machine) prepare(ctx context.Context, from string, v *validated) (*PendingOperation, *Rejected, error) {
	params, err := m.ledger.FeeParameters(ctx)
	if err != nil {
		return nil, nil, err
	}

	op := &PendingOperation{Kind: v.kind, From: from, AssetID: v.assetID}
	sum := Summary{Kind: v.kind, From: from, AssetID: v.assetID}

	var asset *ledger.Asset
	if v.assetID != 0 {
		asset, err = m.ledger.AssetInfo(ctx, v.assetID)
		if rej, ok := rejectFromLedger(err); ok {
			return nil, &rej, nil
		}
		if err != nil {
			return nil, nil, err
		}
		sum.AssetName = asset.Name
		sum.UnitName = asset.UnitName
		sum.Decimals = asset.Decimals
	}

	if rej, err := m.checkAssets(ctx, from, v, asset); rej != nil || err != nil {
		return nil, rej, err
	}

	txns, err := build(from, v, asset, params)
	if err != nil {
		return nil, nil, err
	}
	if len(txns) > 1 {
		gid, err := crypto.ComputeGroupID(txns)
		if err != nil {
			return nil, nil, walleterr.Wrap(err, "computing group id")
		}
		for i := range txns {
			txns[i].Group = gid
		}
	}
	op.Txns = txns

	for _, tx := range txns {
		sum.Fee += uint64(tx.Fee)
	}
	sum.GroupSize = len(txns)
	for _, r := range v.recipients {
		sum.Total += r.units
		display := amount.FormatAlgo(r.units) + " ALGO"
		if asset != nil {
			display = amount.Format(r.units, asset.Decimals) + unitSuffix(asset)
		}
		sum.Transfers = append(sum.Transfers, Transfer{To: r.to.String(), Amount: r.units, Display: display})
	}
	if v.kind == KindCreateNFT {
		sum.AssetName = v.name
		sum.UnitName = v.unitName
		sum.Supply = v.supply
		sum.URL = v.url
	}
	op.Summary = sum

	// ALGO transfers spend the total plus fees; everything else only fees.
	need := sum.Fee
	if v.kind == KindSendAlgo || v.kind == KindSendAlgoMulti {
		need += sum.Total
	}
	balance, err := m.ledger.AccountBalance(ctx, from)
	if err != nil {
		return nil, nil, err
	}
	if balance < need {
		rej := reject(ReasonInsufficientFunds)
		rej.Message += ": need " + amount.FormatAlgo(need) + " ALGO, have " + amount.FormatAlgo(balance) + " ALGO"
		return nil, &rej, nil
	}
	return op, nil, nil
}

func unitSuffix(a *ledger.Asset) string {
	if a.UnitName == "" {
		return " units"
	}
	return " " + a.UnitName
}

// checkAssets verifies holdings and opt-ins for asset kinds and resolves
// asset amounts now that decimals are known.
func (m *Machine) checkAssets(ctx context.Context, from string, v *validated, asset *ledger.Asset) (*Rejected, error) {
	if asset == nil {
		return nil, nil
	}

	holdings, err := m.ledger.AccountHoldings(ctx, from)
	if err != nil {
		return nil, err
	}
	held, optedIn := findHolding(holdings, v.assetID)

	switch v.kind {
	case KindOptIn:
		if optedIn {
			rej := reject(ReasonAlreadyOptedIn)
			return &rej, nil
		}
		return nil, nil
	case KindOptOut:
		switch {
		case asset.Creator == from:
			rej := reject(ReasonCreatorCannotOptOut)
			return &rej, nil
		case !optedIn:
			rej := reject(ReasonNotOptedIn)
			return &rej, nil
		case held != 0:
			rej := reject(ReasonNonZeroHolding)
			rej.Message += ": transfer or close out the remaining " + amount.Format(held, asset.Decimals) + unitSuffix(asset) + " first"
			return &rej, nil
		}
		return nil, nil
	}

	// Asset transfers.
	if err := v.parseUnits(asset.Decimals); err != nil {
		return nil, err
	}
	if !optedIn {
		rej := reject(ReasonNotOptedIn)
		return &rej, nil
	}
	total, err := v.sum()
	if err != nil {
		return nil, err
	}
	if held < total {
		rej := reject(ReasonInsufficientFunds)
		rej.Message = "insufficient asset balance: need " + amount.Format(total, asset.Decimals) +
			", have " + amount.Format(held, asset.Decimals)
		return &rej, nil
	}
	for _, r := range v.recipients {
		to := r.to.String()
		if to == from {
			continue
		}
		theirs, err := m.ledger.AccountHoldings(ctx, to)
		if err != nil {
			return nil, err
		}
		if _, ok := findHolding(theirs, v.assetID); !ok {
			rej := reject(ReasonRecipientNotOptedIn)
			rej.Message += ": " + to
			return &rej, nil
		}
	}
	return nil, nil
}

func findHolding(holdings []ledger.Holding, assetID uint64) (uint64, bool) {
	for _, h := range holdings {
		if h.AssetID == assetID {
			return h.Amount, true
		}
	}
	return 0, false
}

// build creates the unsigned transactions for v.
func build(from string, v *validated, asset *ledger.Asset, params types.SuggestedParams) ([]types.Transaction, error) {
	var txns []types.Transaction
	add := func(tx types.Transaction, err error) error {
		if err != nil {
			return walleterr.WithCause(walleterr.ErrValidation, err)
		}
		txns = append(txns, tx)
		return nil
	}

	var err error
	switch v.kind {
	case KindSendAlgo, KindSendAlgoMulti:
		for _, r := range v.recipients {
			if err = add(transaction.MakePaymentTxn(from, r.to.String(), r.units, nil, "", params)); err != nil {
				return nil, err
			}
		}
	case KindSendNFT, KindSendNFTMulti:
		for _, r := range v.recipients {
			if err = add(transaction.MakeAssetTransferTxn(from, r.to.String(), r.units, nil, params, "", v.assetID)); err != nil {
				return nil, err
			}
		}
	case KindCreateNFT:
		err = add(transaction.MakeAssetCreateTxn(from, v.note, params, v.supply, 0, false,
			from, from, from, from, v.unitName, v.name, v.url, ""))
	case KindOptIn:
		err = add(transaction.MakeAssetAcceptanceTxn(from, nil, params, v.assetID))
	case KindOptOut:
		// Close the holding back to the creator.
		err = add(transaction.MakeAssetTransferTxn(from, asset.Creator, 0, nil, params, asset.Creator, v.assetID))
	}
	if err != nil {
		return nil, err
	}
	return txns, nil
}
