package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/algointent/walletcore/internal/service/approval"
	"github.com/algointent/walletcore/internal/version"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

func userID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	sendResp(w, r, http.StatusOK, map[string]string{"status": "ok", "version": version.Short()}, nil)
}

func (s *Server) metricsSnapshot(w http.ResponseWriter, r *http.Request) {
	sendResp(w, r, http.StatusOK, s.metrics.Snapshot(), nil)
}

func (s *Server) createWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletReq
	if err := decode(w, r, &req); err != nil {
		sendErr(w, r, err)
		return
	}
	created, err := s.wallets.Create(r.Context(), userID(r), req.Password)
	if err != nil {
		sendErr(w, r, err)
		return
	}
	sendResp(w, r, http.StatusCreated, created, nil)
}

func (s *Server) connectWallet(w http.ResponseWriter, r *http.Request) {
	var req ConnectWalletReq
	if err := decode(w, r, &req); err != nil {
		sendErr(w, r, err)
		return
	}
	connected, err := s.wallets.Connect(r.Context(), userID(r), req.Mnemonic, req.Password)
	if err != nil {
		sendErr(w, r, err)
		return
	}
	sendResp(w, r, http.StatusOK, connected, nil)
}

func (s *Server) disconnectWallet(w http.ResponseWriter, r *http.Request) {
	if err := s.wallets.Disconnect(r.Context(), userID(r)); err != nil {
		sendErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) walletStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.wallets.Status(r.Context(), userID(r))
	if err != nil {
		sendErr(w, r, err)
		return
	}
	sendResp(w, r, http.StatusOK, st, nil)
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	bal, err := s.wallets.Balance(r.Context(), userID(r))
	if err != nil {
		sendErr(w, r, err)
		return
	}
	sendResp(w, r, http.StatusOK, bal, nil)
}

func (s *Server) resetLockout(w http.ResponseWriter, r *http.Request) {
	if err := s.wallets.ResetLockout(r.Context(), userID(r)); err != nil {
		sendErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) stageOperation(w http.ResponseWriter, r *http.Request) {
	var req OperationReq
	if err := decode(w, r, &req); err != nil {
		sendErr(w, r, err)
		return
	}
	var pw approval.PasswordProvider = approval.Deferred{}
	if req.Password != "" {
		pw = approval.Synchronous(req.Password)
	}
	res, err := s.wallets.Approvals().Stage(r.Context(), userID(r), req.Request, pw)
	if err != nil {
		sendErr(w, r, err)
		return
	}
	sendResult(w, r, res)
}

func (s *Server) pendingOperation(w http.ResponseWriter, r *http.Request) {
	pending, ok := s.wallets.Approvals().Pending(userID(r))
	if !ok {
		sendErr(w, r, walleterr.ErrNoPendingOperation)
		return
	}
	sendResult(w, r, pending)
}

func (s *Server) approveOperation(w http.ResponseWriter, r *http.Request) {
	var req ApproveReq
	if err := decode(w, r, &req); err != nil {
		sendErr(w, r, err)
		return
	}
	res, err := s.wallets.Approvals().ResumeWithPassword(r.Context(), userID(r), req.Password)
	if err != nil {
		sendErr(w, r, err)
		return
	}
	sendResult(w, r, res)
}

func (s *Server) cancelOperation(w http.ResponseWriter, r *http.Request) {
	cancelled := s.wallets.Approvals().Cancel(r.Context(), userID(r))
	sendResp(w, r, http.StatusOK, CancelResp{Cancelled: cancelled}, nil)
}
