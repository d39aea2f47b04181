package approval

import (
	"time"

	"github.com/algointent/walletcore/internal/ledger"
)

// State is a position in the approval flow.
type State string

// States.
const (
	StateIdle             State = "IDLE"
	StateStaged           State = "STAGED"
	StateAwaitingPassword State = "AWAITING_PASSWORD"
	StateSigned           State = "SIGNED_AND_SUBMITTED"
	StateRejected         State = "REJECTED"
	StateLockedOut        State = "LOCKED_OUT"
)

// Reason explains a rejection.
type Reason string

// Rejection reasons.
const (
	ReasonIncorrectPassword   Reason = "incorrect_password"
	ReasonLockedOut           Reason = "locked_out"
	ReasonExpired             Reason = "expired"
	ReasonCancelled           Reason = "cancelled"
	ReasonNotConfirmed        Reason = "not_confirmed"
	ReasonAddressMismatch     Reason = "address_mismatch"
	ReasonBalanceUnverified   Reason = "balance_unverified"
	ReasonAlreadyOptedIn      Reason = "already_opted_in"
	ReasonCreatorCannotOptOut Reason = "creator_cannot_opt_out"
	ReasonInsufficientFunds   Reason = ledger.ReasonInsufficientFunds
	ReasonRecipientNotOptedIn Reason = ledger.ReasonRecipientNotOptedIn
	ReasonNotOptedIn          Reason = ledger.ReasonNotOptedIn
	ReasonAssetNotFound       Reason = ledger.ReasonAssetNotFound
	ReasonNonZeroHolding      Reason = ledger.ReasonNonZeroHolding
	ReasonRejectedByLedger    Reason = ledger.ReasonRejectedByLedger
)

// Result is one of Staged, AwaitingPassword, Signed or Rejected.
type Result interface {
	State() State
	result()
}

// Staged is returned for dry runs: the operation was built and checked
// but nothing was recorded.
type Staged struct {
	Summary Summary `json:"summary"`
}

// AwaitingPassword means the operation is parked until the password arrives.
type AwaitingPassword struct {
	OperationID string    `json:"operation_id"`
	Summary     Summary   `json:"summary"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Signed means the operation was signed, submitted and confirmed.
type Signed struct {
	OperationID     string   `json:"operation_id"`
	Kind            Kind     `json:"kind"`
	TxID            string   `json:"tx_id"`
	TxIDs           []string `json:"tx_ids"`
	Round           uint64   `json:"round"`
	AssetID         uint64   `json:"asset_id,omitempty"`
	AlreadyRecorded bool     `json:"already_recorded,omitempty"`
	Summary         Summary  `json:"summary"`
}

// Rejected is a terminal refusal with an actionable reason.
type Rejected struct {
	Reason            Reason `json:"reason"`
	Message           string `json:"message"`
	RemainingAttempts int    `json:"remaining_attempts,omitempty"`
	TxID              string `json:"tx_id,omitempty"`
}

// State implements Result.
func (Staged) State() State { return StateStaged }

// State implements Result.
func (AwaitingPassword) State() State { return StateAwaitingPassword }

// State implements Result.
func (Signed) State() State { return StateSigned }

// State implements Result.
func (r Rejected) State() State {
	if r.Reason == ReasonLockedOut {
		return StateLockedOut
	}
	return StateRejected
}

func (Staged) result()           {}
func (AwaitingPassword) result() {}
func (Signed) result()           {}
func (Rejected) result()         {}

//nolint:gochecknoglobals // Immutable message table
var reasonMessages = map[Reason]string{
	ReasonIncorrectPassword:   "incorrect password",
	ReasonLockedOut:           "too many failed password attempts; reconnect your wallet or reset the lockout",
	ReasonExpired:             "the pending operation expired; please request it again",
	ReasonCancelled:           "the operation was cancelled",
	ReasonNotConfirmed:        "the transaction was submitted but not confirmed in time; check it on an explorer before retrying",
	ReasonAddressMismatch:     "the stored secret does not match the connected address",
	ReasonBalanceUnverified:   "could not confirm a zero asset balance; please try again shortly",
	ReasonAlreadyOptedIn:      "this account is already opted in to the asset",
	ReasonCreatorCannotOptOut: "the asset creator cannot opt out of its own asset",
	ReasonInsufficientFunds:   "insufficient balance for this operation",
	ReasonRecipientNotOptedIn: "the recipient has not opted in to this asset",
	ReasonNotOptedIn:          "this account has not opted in to the asset",
	ReasonAssetNotFound:       "asset does not exist",
	ReasonNonZeroHolding:      "cannot opt out while holding a balance of the asset",
	ReasonRejectedByLedger:    "the ledger rejected the transaction",
}

func reject(reason Reason) Rejected {
	return Rejected{Reason: reason, Message: reasonMessages[reason]}
}

// rejectFromLedger converts a ledger rejection error to a Rejected result.
func rejectFromLedger(err error) (Rejected, bool) {
	reason := ledger.RejectReason(err)
	if reason == "" {
		return Rejected{}, false
	}
	r := reject(Reason(reason))
	if r.Message == "" {
		r.Message = err.Error()
	}
	return r, true
}
