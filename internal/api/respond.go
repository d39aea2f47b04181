package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/algointent/walletcore/internal/service/approval"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

const maxBodyBytes = 64 << 10

//nolint:gochecknoglobals // Immutable status table
var statusByCode = map[string]int{
	walleterr.ErrValidation.Code:         http.StatusBadRequest,
	walleterr.ErrInvalidAddress.Code:     http.StatusBadRequest,
	walleterr.ErrInvalidAmount.Code:      http.StatusBadRequest,
	walleterr.ErrInvalidMnemonic.Code:    http.StatusBadRequest,
	walleterr.ErrWeakPassword.Code:       http.StatusBadRequest,
	walleterr.ErrPendingExpired.Code:     http.StatusGone,
	walleterr.ErrNotConnected.Code:       http.StatusNotFound,
	walleterr.ErrNoPendingOperation.Code: http.StatusNotFound,
	walleterr.ErrAlreadyConnected.Code:   http.StatusConflict,
	walleterr.ErrAuthentication.Code:     http.StatusUnauthorized,
	walleterr.ErrLockedOut.Code:          http.StatusLocked,
	walleterr.ErrRateLimited.Code:        http.StatusTooManyRequests,
	walleterr.ErrOperationRejected.Code:  http.StatusUnprocessableEntity,
	walleterr.ErrNotConfirmedInTime.Code: http.StatusAccepted,
	walleterr.ErrNetwork.Code:            http.StatusBadGateway,
	walleterr.ErrTimeout.Code:            http.StatusGatewayTimeout,
}

// StatusFor maps an error to an HTTP status by its code.
func StatusFor(err error) int {
	if status, ok := statusByCode[walleterr.Code(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func errorBody(err error) *ErrorBody {
	var we *walleterr.WalletError
	if errors.As(err, &we) {
		return &ErrorBody{Code: we.Code, Message: we.Message, Details: we.Details, Suggestion: we.Suggestion}
	}
	return &ErrorBody{Code: walleterr.ErrGeneral.Code, Message: walleterr.ErrGeneral.Message}
}

func sendResp(w http.ResponseWriter, r *http.Request, status int, data any, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	resp := Response{Success: err == nil, Data: data, RequestID: requestID(r.Context())}
	if err != nil {
		resp.Error = errorBody(err)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func sendErr(w http.ResponseWriter, r *http.Request, err error) {
	sendResp(w, r, StatusFor(err), nil, err)
}

func sendResult(w http.ResponseWriter, r *http.Request, res approval.Result) {
	status := http.StatusOK
	if res.State() == approval.StateAwaitingPassword {
		status = http.StatusAccepted
	}
	sendResp(w, r, status, OperationResp{State: res.State(), Result: res}, nil)
}

// decode reads a bounded JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return walleterr.WithDetails(walleterr.ErrValidation, map[string]string{"reason": "empty request body"})
		}
		return walleterr.WithCause(walleterr.ErrValidation, err)
	}
	return nil
}
