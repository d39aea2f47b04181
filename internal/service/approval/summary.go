package approval

import (
	"fmt"
	"strings"

	"github.com/algointent/walletcore/internal/amount"
)

// Transfer is one line of a summary.
type Transfer struct {
	To      string `json:"to"`
	Amount  uint64 `json:"amount"`
	Display string `json:"display"`
}

// Summary is the human-readable confirmation shown before the password.
type Summary struct {
	Kind      Kind       `json:"kind"`
	From      string     `json:"from"`
	Transfers []Transfer `json:"transfers,omitempty"`
	AssetID   uint64     `json:"asset_id,omitempty"`
	AssetName string     `json:"asset_name,omitempty"`
	UnitName  string     `json:"unit_name,omitempty"`
	Decimals  uint32     `json:"decimals,omitempty"`
	Supply    uint64     `json:"supply,omitempty"`
	URL       string     `json:"url,omitempty"`
	Total     uint64     `json:"total,omitempty"`
	Fee       uint64     `json:"fee"`
	GroupSize int        `json:"group_size"`
}

// FeeDisplay renders the fee in ALGO.
func (s Summary) FeeDisplay() string {
	return amount.FormatAlgo(s.Fee) + " ALGO"
}

// String renders the summary as plain text.
func (s Summary) String() string {
	var b strings.Builder
	switch s.Kind {
	case KindSendAlgo, KindSendAlgoMulti:
		fmt.Fprintf(&b, "Send %s ALGO", amount.FormatAlgo(s.Total))
	case KindSendNFT, KindSendNFTMulti:
		fmt.Fprintf(&b, "Send %s of asset %d%s", amount.Format(s.Total, s.Decimals), s.AssetID, s.assetLabel())
	case KindCreateNFT:
		fmt.Fprintf(&b, "Create NFT %q (%s), supply %d", s.AssetName, s.UnitName, s.Supply)
		if s.URL != "" {
			fmt.Fprintf(&b, ", url %s", s.URL)
		}
	case KindOptIn:
		fmt.Fprintf(&b, "Opt in to asset %d%s", s.AssetID, s.assetLabel())
	case KindOptOut:
		fmt.Fprintf(&b, "Opt out of asset %d%s", s.AssetID, s.assetLabel())
	}
	fmt.Fprintf(&b, "\nFrom: %s", s.From)
	for _, t := range s.Transfers {
		fmt.Fprintf(&b, "\n  -> %s: %s", t.To, t.Display)
	}
	if s.GroupSize > 1 {
		fmt.Fprintf(&b, "\nSubmitted as one group of %d transactions", s.GroupSize)
	}
	fmt.Fprintf(&b, "\nEstimated fee: %s", s.FeeDisplay())
	return b.String()
}

func (s Summary) assetLabel() string {
	if s.AssetName == "" {
		return ""
	}
	return " (" + s.AssetName + ")"
}
