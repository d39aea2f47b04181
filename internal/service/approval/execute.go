package approval

import (
	"context"
	"errors"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"go.uber.org/zap"

	"github.com/algointent/walletcore/internal/account"
	"github.com/algointent/walletcore/internal/audit"
	"github.com/algointent/walletcore/internal/retry"
	"github.com/algointent/walletcore/internal/vault"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

var (
	// errHoldingNotZero makes the opt-out recheck retry while the node
	// still reports a balance.
	errHoldingNotZero = errors.New("asset holding not yet zero")
	errNotOptedIn     = errors.New("not opted in")
)

// execute signs, submits and reconciles a consumed operation.
func (m *Machine) execute(ctx context.Context, op *PendingOperation, address string, secret *vault.SecureBytes) (Result, error) {
	if op.Kind == KindOptOut {
		if rej, err := m.recheckOptOut(ctx, op); rej != nil || err != nil {
			if rej != nil {
				return *rej, nil
			}
			return nil, err
		}
	}

	key, err := account.FromMnemonic(secret.String())
	if err != nil {
		m.logger.Error("stored secret does not decode", zap.String("user_id", op.UserID), zap.String("code", walleterr.Code(err)))
		return nil, walleterr.WithCause(walleterr.ErrCorruptedState, errors.New("stored secret phrase is invalid"))
	}
	defer key.Destroy()
	if key.Address.String() != address {
		return reject(ReasonAddressMismatch), nil
	}

	signed := make([][]byte, 0, len(op.Txns))
	txIDs := make([]string, 0, len(op.Txns))
	for _, tx := range op.Txns {
		txID, stx, err := crypto.SignTransaction(key.PrivateKey(), tx)
		if err != nil {
			return nil, walleterr.Wrap(err, "signing transaction")
		}
		signed = append(signed, stx)
		txIDs = append(txIDs, txID)
	}

	alreadyRecorded := false
	txID, err := m.ledger.Submit(ctx, signed)
	switch {
	case errors.Is(err, walleterr.ErrAlreadyRecorded):
		alreadyRecorded = true
		txID = txIDs[0]
		m.logger.Info("group already in ledger, treating as submitted",
			zap.String("user_id", op.UserID), zap.String("tx_id", txID))
	case err != nil:
		if rej, ok := rejectFromLedger(err); ok {
			return rej, nil
		}
		return nil, err
	}
	if txID == "" {
		txID = txIDs[0]
	}

	conf, err := m.ledger.AwaitConfirmation(ctx, txID, m.maxRounds)
	if errors.Is(err, walleterr.ErrNotConfirmedInTime) {
		rej := reject(ReasonNotConfirmed)
		rej.TxID = txID
		rej.Message = fmt.Sprintf("%s (transaction %s)", rej.Message, txID)
		return rej, nil
	}
	if err != nil {
		if rej, ok := rejectFromLedger(err); ok {
			rej.TxID = txID
			return rej, nil
		}
		return nil, err
	}

	res := Signed{
		OperationID:     op.ID,
		Kind:            op.Kind,
		TxID:            txID,
		TxIDs:           txIDs,
		Round:           conf.Round,
		AssetID:         op.AssetID,
		AlreadyRecorded: alreadyRecorded,
		Summary:         op.Summary,
	}
	if op.Kind == KindCreateNFT {
		res.AssetID = conf.AssetID
		if res.AssetID == 0 {
			id, err := m.ledger.LookupAssetCreationResult(ctx, txID)
			if err != nil {
				m.logger.Warn("asset id lookup failed", zap.String("tx_id", txID), zap.Error(err))
			}
			res.AssetID = id
		}
	}

	m.metrics.RecordSigned(string(op.Kind))
	m.recordSigned(ctx, op, res)
	return res, nil
}

// recheckOptOut confirms the holding is still zero right before signing.
// Indexing lag can briefly report a stale balance, so the read is retried.
func (m *Machine) recheckOptOut(ctx context.Context, op *PendingOperation) (*Rejected, error) {
	cfg := m.optOutRetry
	cfg.Retryable = func(err error) bool {
		return errors.Is(err, errHoldingNotZero) || retry.IsRetryable(err)
	}
	_, err := retry.DoWithConfig(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		holdings, err := m.ledger.AccountHoldings(ctx, op.From)
		if err != nil {
			return struct{}{}, err
		}
		held, ok := findHolding(holdings, op.AssetID)
		if !ok {
			return struct{}{}, errNotOptedIn
		}
		if held != 0 {
			return struct{}{}, errHoldingNotZero
		}
		return struct{}{}, nil
	})
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, errNotOptedIn):
		rej := reject(ReasonNotOptedIn)
		return &rej, nil
	case errors.Is(err, errHoldingNotZero):
		rej := reject(ReasonNonZeroHolding)
		return &rej, nil
	case retry.IsRetryable(err):
		rej := reject(ReasonBalanceUnverified)
		return &rej, nil
	default:
		return nil, err
	}
}

func (m *Machine) recordSigned(ctx context.Context, op *PendingOperation, res Signed) {
	detail := fmt.Sprintf("%s %s tx %s round %d", op.ID, op.Kind, res.TxID, res.Round)
	m.logger.Info("operation signed and confirmed",
		zap.String("user_id", op.UserID),
		zap.String("kind", string(op.Kind)),
		zap.String("tx_id", res.TxID),
		zap.Uint64("round", res.Round),
		zap.Bool("already_recorded", res.AlreadyRecorded))

	m.audit.Record(ctx, op.UserID, audit.TransactionSigned, detail)
	switch op.Kind {
	case KindSendAlgoMulti, KindSendNFTMulti:
		m.audit.Record(ctx, op.UserID, audit.MultiSendCompleted,
			fmt.Sprintf("%s to %d recipients", detail, len(op.Summary.Transfers)))
	case KindCreateNFT:
		m.audit.Record(ctx, op.UserID, audit.NFTCreated, fmt.Sprintf("%s asset %d", detail, res.AssetID))
	case KindOptIn:
		m.audit.Record(ctx, op.UserID, audit.AssetOptIn, fmt.Sprintf("%s asset %d", detail, op.AssetID))
	case KindOptOut:
		m.audit.Record(ctx, op.UserID, audit.AssetOptOut, fmt.Sprintf("%s asset %d", detail, op.AssetID))
	}
}
