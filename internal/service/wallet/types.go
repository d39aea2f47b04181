package wallet

import (
	"time"

	"github.com/algointent/walletcore/internal/ledger"
	"github.com/algointent/walletcore/internal/service/approval"
)

// Created is a new wallet. Mnemonic must be shown to the user once and is
// not kept anywhere in plaintext.
type Created struct {
	Address  string `json:"address"`
	Mnemonic string `json:"mnemonic"`
}

// Connected is the result of importing an existing wallet.
type Connected struct {
	Address string `json:"address"`
	// Reconnected is set when the same wallet was already connected. The
	// record was replaced and any lockout cleared.
	Reconnected bool `json:"reconnected,omitempty"`
}

// Balance is an account's ALGO balance and asset holdings.
type Balance struct {
	Address    string           `json:"address"`
	MicroAlgos uint64           `json:"micro_algos"`
	Algo       string           `json:"algo"`
	Holdings   []ledger.Holding `json:"holdings,omitempty"`
}

// Status describes a user's session without refreshing its activity.
type Status struct {
	Connected           bool                       `json:"connected"`
	Address             string                     `json:"address,omitempty"`
	CreatedAt           time.Time                  `json:"created_at,omitzero"`
	LastActivity        time.Time                  `json:"last_activity,omitzero"`
	ExpiresAt           time.Time                  `json:"expires_at,omitzero"`
	LockedOut           bool                       `json:"locked_out"`
	RemainingAttempts   int                        `json:"remaining_attempts"`
	RemainingOperations int                        `json:"remaining_operations"`
	Pending             *approval.AwaitingPassword `json:"pending,omitempty"`
}
