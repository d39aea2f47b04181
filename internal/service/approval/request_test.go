package approval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/algointent/walletcore/pkg/errors"
)

func TestUnitNameFor(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Sunset Over Lake":                 "SOL",
		"cat":                              "C",
		"!!! ???":                          DefaultUnitName,
		"a b c d e f g h i j k":            "ABCDEFGH",
		"  multiple   spaces  between  ":   "MSB",
		"#1 Collectible":                   "1C",
		"Mixed-Case words_and_underscores": "MW",
	}
	for name, want := range tests {
		assert.Equal(t, want, unitNameFor(name), name)
	}
}

func TestValidate_NFTDefaults(t *testing.T) {
	t.Parallel()

	v, err := validate(Request{Kind: KindCreateNFT, Name: "Cat", AssetID: 99, UnitName: "c-a-t!"})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v.assetID, "creation never targets an existing asset")
	assert.Equal(t, "CAT", v.unitName)
	assert.Equal(t, uint64(DefaultSupply), v.supply)
	assert.Nil(t, v.note)
}

func TestValidate_NFTLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"long name", Request{Kind: KindCreateNFT, Name: strings.Repeat("n", MaxNameLength+1)}, "name"},
		{"long unit", Request{Kind: KindCreateNFT, Name: "Cat", UnitName: "ABCDEFGHI"}, "unit_name"},
		{"long url", Request{Kind: KindCreateNFT, Name: "Cat", URL: "https://example.com/" + strings.Repeat("a", MaxURLLength)}, "url"},
		{"long description", Request{Kind: KindCreateNFT, Name: "Cat", Description: strings.Repeat("d", MaxNoteLength+1)}, "description"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := validate(tc.req)
			require.ErrorIs(t, err, walleterr.ErrValidation)
			assert.Equal(t, tc.field, walleterr.Detail(err, "field"))
		})
	}
}

func TestValidate_MultiRecipientBounds(t *testing.T) {
	t.Parallel()

	addr := "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAY5HFKQ"
	recipients := func(n int) []Recipient {
		out := make([]Recipient, n)
		for i := range out {
			out[i] = Recipient{Address: addr}
		}
		return out
	}

	_, err := validate(Request{Kind: KindSendAlgoMulti, Amount: "16", Recipients: recipients(MaxRecipients)})
	require.NoError(t, err)

	_, err = validate(Request{Kind: KindSendAlgoMulti, Amount: "17", Recipients: recipients(MaxRecipients + 1)})
	require.ErrorIs(t, err, walleterr.ErrValidation)

	// A total too small to give everyone one microAlgo.
	_, err = validate(Request{Kind: KindSendAlgoMulti, Amount: "0.000001", Recipients: recipients(2)})
	require.ErrorIs(t, err, walleterr.ErrInvalidAmount)
}

func TestValidate_AssetAmountsWaitForDecimals(t *testing.T) {
	t.Parallel()

	addr := "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAY5HFKQ"
	v, err := validate(Request{Kind: KindSendNFT, Recipient: addr, AssetID: 5, Amount: "1.5"})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v.recipients[0].units)

	require.NoError(t, v.parseUnits(2))
	assert.Equal(t, uint64(150), v.recipients[0].units)

	v, err = validate(Request{Kind: KindSendNFT, Recipient: addr, AssetID: 5, Amount: "1.5"})
	require.NoError(t, err)
	require.ErrorIs(t, v.parseUnits(0), walleterr.ErrInvalidAmount)
}

func TestSummary_String(t *testing.T) {
	t.Parallel()

	s := Summary{
		Kind: KindSendAlgoMulti,
		From: "FROM",
		Transfers: []Transfer{
			{To: "A", Amount: 500_000, Display: "0.5 ALGO"},
			{To: "B", Amount: 500_000, Display: "0.5 ALGO"},
		},
		Total:     1_000_000,
		Fee:       2000,
		GroupSize: 2,
	}
	out := s.String()
	assert.Contains(t, out, "Send 1 ALGO")
	assert.Contains(t, out, "-> A: 0.5 ALGO")
	assert.Contains(t, out, "one group of 2 transactions")
	assert.Contains(t, out, "Estimated fee: 0.002 ALGO")
}

func TestRejected_State(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StateLockedOut, reject(ReasonLockedOut).State())
	assert.Equal(t, StateRejected, reject(ReasonExpired).State())
	for reason, msg := range reasonMessages {
		assert.NotEmpty(t, msg, reason)
	}
}
