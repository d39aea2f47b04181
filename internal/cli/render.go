package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/algointent/walletcore/internal/output"
	"github.com/algointent/walletcore/internal/service/approval"
	"github.com/algointent/walletcore/internal/service/wallet"
)

// resultView is the JSON shape of an approval result.
type resultView struct {
	State  approval.State  `json:"state"`
	Result approval.Result `json:"result"`
}

func renderResult(f *output.Formatter, res approval.Result) error {
	return f.Render(resultView{State: res.State(), Result: res}, func(w io.Writer) error {
		switch r := res.(type) {
		case approval.Staged:
			outln(w, f.Paint(output.ColorYellow, "Dry run, nothing was signed."))
			outln(w, r.Summary.String())
		case approval.AwaitingPassword:
			outln(w, r.Summary.String())
			out(w, "\nWaiting for the wallet password until %s (operation %s).\n",
				r.ExpiresAt.Local().Format(time.Kitchen), r.OperationID)
		case approval.Signed:
			msg := "Submitted and confirmed"
			if r.AlreadyRecorded {
				msg = "Already on the ledger"
			}
			out(w, "%s in round %d.\n", f.Paint(output.ColorGreen, msg), r.Round)
			for _, id := range r.TxIDs {
				out(w, "  tx %s\n", id)
			}
			if r.AssetID != 0 {
				out(w, "  asset id %d\n", r.AssetID)
			}
		case approval.Rejected:
			outln(w, f.Paint(output.ColorRed, "Rejected: "+r.Message))
			if r.Reason == approval.ReasonIncorrectPassword {
				out(w, "%d attempt(s) left.\n", r.RemainingAttempts)
			}
			if r.TxID != "" {
				out(w, "  tx %s\n", r.TxID)
			}
		}
		return nil
	})
}

func renderCreated(f *output.Formatter, c *wallet.Created) error {
	return f.Render(c, func(w io.Writer) error {
		outln(w, f.Paint(output.ColorGreen, "Wallet created."))
		out(w, "Address: %s\n\n", c.Address)
		outln(w, "Secret phrase (shown once, write it down and keep it offline):")
		outln(w)
		outln(w, c.Mnemonic)
		return nil
	})
}

func renderStatus(f *output.Formatter, st *wallet.Status, showQR bool) error {
	return f.Render(st, func(w io.Writer) error {
		if !st.Connected {
			outln(w, "No wallet connected.")
			return nil
		}
		tbl := output.NewTable("FIELD", "VALUE")
		tbl.AddRow("address", st.Address)
		tbl.AddRow("connected", st.CreatedAt.Local().Format(time.RFC1123))
		tbl.AddRow("expires", st.ExpiresAt.Local().Format(time.RFC1123))
		tbl.AddRow("operations left", strconv.Itoa(st.RemainingOperations))
		locked := "no"
		if st.LockedOut {
			locked = "yes"
		}
		tbl.AddRow("locked out", locked)
		tbl.AddRow("password attempts left", strconv.Itoa(st.RemainingAttempts))
		if st.Pending != nil {
			tbl.AddRow("pending", fmt.Sprintf("%s (%s)", st.Pending.Summary.Kind, st.Pending.OperationID))
		}
		if err := tbl.Render(w); err != nil {
			return err
		}
		if showQR {
			outln(w)
			output.RenderAddressQR(w, st.Address)
		}
		return nil
	})
}

func renderBalance(f *output.Formatter, b *wallet.Balance) error {
	return f.Render(b, func(w io.Writer) error {
		out(w, "%s ALGO\n", b.Algo)
		out(w, "Address: %s\n", b.Address)
		if len(b.Holdings) == 0 {
			return nil
		}
		outln(w)
		tbl := output.NewTable("ASSET", "AMOUNT")
		for _, h := range b.Holdings {
			tbl.AddRow(strconv.FormatUint(h.AssetID, 10), strconv.FormatUint(h.Amount, 10))
		}
		return tbl.Render(w)
	})
}
