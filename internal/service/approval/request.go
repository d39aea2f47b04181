package approval

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/asaskevich/govalidator"
	"github.com/mrz1836/go-sanitize"

	"github.com/algointent/walletcore/internal/account"
	"github.com/algointent/walletcore/internal/amount"
	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// Kind names an operation.
type Kind string

// Operation kinds.
const (
	KindSendAlgo      Kind = "send_algo"
	KindSendAlgoMulti Kind = "send_algo_multi"
	KindCreateNFT     Kind = "create_nft"
	KindSendNFT       Kind = "send_nft"
	KindSendNFTMulti  Kind = "send_nft_multi"
	KindOptIn         Kind = "opt_in"
	KindOptOut        Kind = "opt_out"
)

// Kinds lists every operation kind.
func Kinds() []Kind {
	return []Kind{KindSendAlgo, KindSendAlgoMulti, KindCreateNFT, KindSendNFT, KindSendNFTMulti, KindOptIn, KindOptOut}
}

// Request limits.
const (
	MinRecipients     = 2
	MaxRecipients     = 16 // ledger group size limit
	MaxNameLength     = 50
	MaxUnitNameLength = 8
	MaxURLLength      = 96
	MaxNoteLength     = 1024
	DefaultUnitName   = "NFT"
	DefaultSupply     = 1
)

// Recipient is one receiver of a multi-recipient operation. Amount is
// optional; see Request.
type Recipient struct {
	Address string `json:"address"`
	Amount  string `json:"amount,omitempty"`
}

// Request is a structured operation request from the intent layer.
//
// Amount is in ALGO for ALGO kinds and in asset units for asset kinds,
// where it defaults to 1. For multi-recipient kinds either every recipient
// carries an Amount, or none does and Amount is the total, split evenly
// with the remainder going to the last recipient.
type Request struct {
	Kind        Kind        `json:"kind"`
	Amount      string      `json:"amount,omitempty"`
	Recipient   string      `json:"recipient,omitempty"`
	Recipients  []Recipient `json:"recipients,omitempty"`
	AssetID     uint64      `json:"asset_id,omitempty"`
	Name        string      `json:"name,omitempty"`
	UnitName    string      `json:"unit_name,omitempty"`
	Supply      uint64      `json:"supply,omitempty"`
	Description string      `json:"description,omitempty"`
	URL         string      `json:"url,omitempty"`
	DryRun      bool        `json:"dry_run,omitempty"`
}

// recipientAmount is either a parsed amount or a raw one awaiting asset
// decimals.
type recipientAmount struct {
	to    types.Address
	raw   string
	units uint64
}

// validated is a Request after checks that need no ledger access.
type validated struct {
	kind       Kind
	recipients []recipientAmount
	total      string // raw total for split, asset kinds only
	assetID    uint64
	name       string
	unitName   string
	supply     uint64
	note       []byte
	url        string
}

func invalid(field, reason string) error {
	return walleterr.WithDetails(walleterr.ErrValidation, map[string]string{"field": field, "reason": reason})
}

// validate checks the request shape and everything that does not need the
// ledger. ALGO amounts are parsed here; asset amounts wait for decimals.
func validate(req Request) (*validated, error) {
	v := &validated{kind: req.Kind, assetID: req.AssetID}

	switch req.Kind {
	case KindSendAlgo, KindSendNFT:
		to, err := account.ValidateAddress(req.Recipient)
		if err != nil {
			return nil, err
		}
		v.recipients = []recipientAmount{{to: to, raw: req.Amount}}
	case KindSendAlgoMulti, KindSendNFTMulti:
		if err := v.multiRecipients(req); err != nil {
			return nil, err
		}
	case KindCreateNFT:
		v.assetID = 0
		return v, v.nft(req)
	case KindOptIn, KindOptOut:
	default:
		return nil, invalid("kind", "unsupported operation "+strconv.Quote(string(req.Kind)))
	}

	if req.Kind != KindSendAlgo && req.Kind != KindSendAlgoMulti {
		if req.AssetID == 0 {
			return nil, invalid("asset_id", "an asset id is required")
		}
		return v, nil
	}
	return v, v.parseAlgo()
}

func (v *validated) multiRecipients(req Request) error {
	n := len(req.Recipients)
	if n < MinRecipients || n > MaxRecipients {
		return invalid("recipients", "between "+strconv.Itoa(MinRecipients)+" and "+strconv.Itoa(MaxRecipients)+" recipients are required")
	}

	withAmount := 0
	for _, r := range req.Recipients {
		if strings.TrimSpace(r.Amount) != "" {
			withAmount++
		}
	}
	switch {
	case withAmount == n && strings.TrimSpace(req.Amount) != "":
		return invalid("amount", "give either a total or per-recipient amounts, not both")
	case withAmount != 0 && withAmount != n:
		return invalid("recipients", "either every recipient has an amount or none does")
	}

	v.total = req.Amount
	for _, r := range req.Recipients {
		to, err := account.ValidateAddress(r.Address)
		if err != nil {
			return err
		}
		v.recipients = append(v.recipients, recipientAmount{to: to, raw: r.Amount})
	}
	return nil
}

// parseAlgo resolves ALGO amounts, splitting a total when needed.
func (v *validated) parseAlgo() error {
	if v.kind == KindSendAlgoMulti && v.recipients[0].raw == "" {
		total, err := amount.ParseAlgo(v.total)
		if err != nil {
			return err
		}
		parts, err := amount.Split(total, len(v.recipients))
		if err != nil {
			return err
		}
		for i := range v.recipients {
			v.recipients[i].units = parts[i]
		}
		return nil
	}
	for i := range v.recipients {
		micro, err := amount.ParseAlgo(v.recipients[i].raw)
		if err != nil {
			return err
		}
		v.recipients[i].units = micro
	}
	_, err := v.sum()
	return err
}

// parseUnits resolves asset amounts once decimals are known.
func (v *validated) parseUnits(decimals uint32) error {
	if v.kind == KindSendNFTMulti && v.recipients[0].raw == "" {
		raw := v.total
		if strings.TrimSpace(raw) == "" {
			// One unit each by default.
			one, err := amount.ParseUnits("1", decimals)
			if err != nil {
				return err
			}
			for i := range v.recipients {
				v.recipients[i].units = one
			}
			return nil
		}
		total, err := amount.ParseUnits(raw, decimals)
		if err != nil {
			return err
		}
		parts, err := amount.Split(total, len(v.recipients))
		if err != nil {
			return err
		}
		for i := range v.recipients {
			v.recipients[i].units = parts[i]
		}
		return nil
	}
	for i := range v.recipients {
		raw := v.recipients[i].raw
		if strings.TrimSpace(raw) == "" {
			raw = "1"
		}
		units, err := amount.ParseUnits(raw, decimals)
		if err != nil {
			return err
		}
		v.recipients[i].units = units
	}
	_, err := v.sum()
	return err
}

func (v *validated) sum() (uint64, error) {
	parts := make([]uint64, len(v.recipients))
	for i, r := range v.recipients {
		parts[i] = r.units
	}
	return amount.Sum(parts)
}

func (v *validated) nft(req Request) error {
	v.name = cleanText(req.Name)
	if n := utf8.RuneCountInString(v.name); n == 0 || n > MaxNameLength {
		return invalid("name", "name must be 1 to "+strconv.Itoa(MaxNameLength)+" characters")
	}

	v.unitName = strings.ToUpper(sanitize.AlphaNumeric(req.UnitName, false))
	if v.unitName == "" {
		v.unitName = unitNameFor(v.name)
	}
	if len(v.unitName) > MaxUnitNameLength {
		return invalid("unit_name", "unit name must be at most "+strconv.Itoa(MaxUnitNameLength)+" characters")
	}

	v.supply = req.Supply
	if v.supply == 0 {
		v.supply = DefaultSupply
	}

	if u := strings.TrimSpace(req.URL); u != "" {
		if len(u) > MaxURLLength || !govalidator.IsURL(u) {
			return invalid("url", "url must be a valid link of at most "+strconv.Itoa(MaxURLLength)+" bytes")
		}
		v.url = u
	}

	if d := cleanText(req.Description); d != "" {
		if len(d) > MaxNoteLength {
			return invalid("description", "description must be at most "+strconv.Itoa(MaxNoteLength)+" bytes")
		}
		v.note = []byte(d)
	}
	return nil
}

// cleanText flattens to one line and trims.
func cleanText(s string) string {
	return strings.TrimSpace(sanitize.SingleLine(s))
}

// unitNameFor derives a unit name from the initials of name.
func unitNameFor(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		initial := sanitize.AlphaNumeric(word, false)
		if initial == "" {
			continue
		}
		b.WriteString(strings.ToUpper(initial[:1]))
		if b.Len() == MaxUnitNameLength {
			break
		}
	}
	if b.Len() == 0 {
		return DefaultUnitName
	}
	return b.String()
}
