package api

import (
	"github.com/algointent/walletcore/internal/service/approval"
)

// Response is the envelope of every endpoint.
type Response struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
}

// ErrorBody mirrors a WalletError.
type ErrorBody struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
}

// CreateWalletReq is the body of POST /wallet.
type CreateWalletReq struct {
	Password string `json:"password"`
}

// ConnectWalletReq is the body of POST /wallet/connect.
type ConnectWalletReq struct {
	Mnemonic string `json:"mnemonic"`
	Password string `json:"password"`
}

// OperationReq is the body of POST /operations. A password makes the
// operation synchronous; without one it waits for /operations/approve.
type OperationReq struct {
	approval.Request
	Password string `json:"password,omitempty"`
}

// ApproveReq is the body of POST /operations/approve.
type ApproveReq struct {
	Password string `json:"password"`
}

// OperationResp wraps an approval result with its state.
type OperationResp struct {
	State  approval.State  `json:"state"`
	Result approval.Result `json:"result"`
}

// CancelResp reports whether anything was discarded.
type CancelResp struct {
	Cancelled bool `json:"cancelled"`
}
