package wallet

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/algointent/walletcore/internal/account"
	"github.com/algointent/walletcore/internal/amount"
	"github.com/algointent/walletcore/internal/audit"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

const disconnectFirst = "disconnect the current wallet first"

// Create generates a new wallet for userID protected by password. A user
// with a connected wallet must disconnect first.
func (s *Service) Create(ctx context.Context, userID, password string) (res *Created, err error) {
	defer func() { s.metrics.RecordWalletOp(err) }()

	if err := account.ValidatePassword(password); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	existing, err := s.sessions.Peek(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, walleterr.WithSuggestion(walleterr.ErrAlreadyConnected, disconnectFirst)
	}

	s.audit.Record(ctx, userID, audit.WalletCreationInitiated, "")

	gen, err := account.Generate()
	if err != nil {
		return nil, err
	}
	blob, err := s.vault.Encrypt([]byte(gen.Mnemonic), password)
	if err != nil {
		return nil, err
	}
	if _, err := s.sessions.Create(ctx, userID, gen.Address, blob); err != nil {
		return nil, err
	}

	s.logger.Info("wallet created", zap.String("user_id", userID), zap.String("address", gen.Address))
	s.audit.Record(ctx, userID, audit.WalletCreated, gen.Address)
	return &Created{Address: gen.Address, Mnemonic: gen.Mnemonic}, nil
}

// Connect imports an existing wallet from its secret phrase. Connecting the
// wallet that is already connected replaces the record and clears any
// lockout. A different wallet is refused while one is connected.
func (s *Service) Connect(ctx context.Context, userID, phrase, password string) (res *Connected, err error) {
	defer func() { s.metrics.RecordWalletOp(err) }()

	if err := account.ValidatePassword(password); err != nil {
		return nil, err
	}
	normalized, err := account.ValidateMnemonic(phrase)
	if err != nil {
		s.audit.Record(ctx, userID, audit.WalletConnectionFailed, "invalid secret phrase")
		return nil, err
	}
	address, err := account.AddressFromMnemonic(normalized)
	if err != nil {
		s.audit.Record(ctx, userID, audit.WalletConnectionFailed, "invalid secret phrase")
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	existing, err := s.sessions.Peek(ctx, userID)
	if err != nil {
		return nil, err
	}
	reconnect := existing != nil
	if reconnect && existing.Address != address {
		s.audit.Record(ctx, userID, audit.WalletConnectionFailed, "another wallet is connected")
		return nil, walleterr.WithSuggestion(walleterr.ErrAlreadyConnected, disconnectFirst)
	}

	blob, err := s.vault.Encrypt([]byte(normalized), password)
	if err != nil {
		return nil, err
	}
	if reconnect {
		s.approvals.CancelLocked(ctx, userID)
	}
	if _, err := s.sessions.Create(ctx, userID, address, blob); err != nil {
		return nil, err
	}

	s.logger.Info("wallet connected",
		zap.String("user_id", userID), zap.String("address", address), zap.Bool("reconnected", reconnect))
	detail := address
	if reconnect {
		detail += " (reconnected)"
	}
	s.audit.Record(ctx, userID, audit.WalletConnected, detail)
	return &Connected{Address: address, Reconnected: reconnect}, nil
}

// Disconnect discards any pending operation and removes the session.
func (s *Service) Disconnect(ctx context.Context, userID string) (err error) {
	defer func() { s.metrics.RecordWalletOp(err) }()

	unlock := s.locks.Lock(userID)
	defer unlock()

	s.approvals.CancelLocked(ctx, userID)
	removed, err := s.sessions.Remove(ctx, userID)
	if err != nil {
		return err
	}
	if !removed {
		return walleterr.ErrNotConnected
	}
	s.logger.Info("wallet disconnected", zap.String("user_id", userID))
	s.audit.Record(ctx, userID, audit.WalletDisconnected, "")
	return nil
}

// ResetLockout clears the failed password counter. Any pending operation
// is discarded and has to be requested again.
func (s *Service) ResetLockout(ctx context.Context, userID string) (err error) {
	defer func() { s.metrics.RecordWalletOp(err) }()

	unlock := s.locks.Lock(userID)
	defer unlock()

	ws, err := s.sessions.Active(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.guard.ResetAttempts(ctx, userID); err != nil {
		return err
	}
	s.approvals.CancelLocked(ctx, userID)
	s.audit.Record(ctx, userID, audit.LockoutReset, fmt.Sprintf("cleared %d failed attempt(s)", ws.FailedAttempts))
	return nil
}

// Balance returns the connected account's balance and holdings.
func (s *Service) Balance(ctx context.Context, userID string) (res *Balance, err error) {
	defer func() { s.metrics.RecordWalletOp(err) }()

	ws, err := s.sessions.Active(ctx, userID)
	if err != nil {
		return nil, err
	}
	micro, err := s.ledger.AccountBalance(ctx, ws.Address)
	if err != nil {
		return nil, err
	}
	holdings, err := s.ledger.AccountHoldings(ctx, ws.Address)
	if err != nil {
		return nil, err
	}

	res = &Balance{
		Address:    ws.Address,
		MicroAlgos: micro,
		Algo:       amount.FormatAlgo(micro),
		Holdings:   holdings,
	}
	s.audit.Record(ctx, userID, audit.BalanceChecked,
		fmt.Sprintf("%s ALGO, %d asset(s)", res.Algo, len(holdings)))
	return res, nil
}
