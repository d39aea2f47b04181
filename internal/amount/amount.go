// Package amount converts between human decimal amounts and base units.
// ALGO has 6 decimals; assets declare their own.
package amount

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	walleterr "github.com/algointent/walletcore/pkg/errors"
)

// ALGO constants.
const (
	AlgoDecimals  = 6
	MicroPerAlgo  = 1_000_000
	MaxAlgo       = 1_000_000
	MaxMicroAlgos = MaxAlgo * MicroPerAlgo
)

// MaxAssetDecimals is the largest decimals value the ledger accepts.
const MaxAssetDecimals = 19

//nolint:gochecknoglobals // Immutable conversion constant
var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// ParseAlgo parses an ALGO amount such as "1.25" into microAlgos. The amount
// must be positive, at most MaxAlgo and carry no more than 6 decimals.
func ParseAlgo(s string) (uint64, error) {
	d, err := parse(s)
	if err != nil {
		return 0, err
	}
	return FromAlgo(d)
}

// FromAlgo converts a decimal ALGO amount into microAlgos with the same
// bounds as ParseAlgo.
func FromAlgo(d decimal.Decimal) (uint64, error) {
	micro, err := toUnits(d, AlgoDecimals)
	if err != nil {
		return 0, err
	}
	return micro, CheckAlgo(micro)
}

// CheckAlgo validates a microAlgo amount against the transfer bounds.
func CheckAlgo(micro uint64) error {
	switch {
	case micro == 0:
		return invalid("amount must be greater than zero")
	case micro > MaxMicroAlgos:
		return invalid(fmt.Sprintf("amount exceeds the maximum of %d ALGO", MaxAlgo))
	}
	return nil
}

// ParseUnits parses an asset amount with the given decimals into base units.
func ParseUnits(s string, decimals uint32) (uint64, error) {
	d, err := parse(s)
	if err != nil {
		return 0, err
	}
	units, err := toUnits(d, int32(min(decimals, MaxAssetDecimals))) //nolint:gosec // G115: bounded above
	if err != nil {
		return 0, err
	}
	if units == 0 {
		return 0, invalid("amount must be greater than zero")
	}
	return units, nil
}

// FormatAlgo renders microAlgos as ALGO without trailing zeros.
func FormatAlgo(micro uint64) string {
	return Format(micro, AlgoDecimals)
}

// Format renders base units with the given decimals without trailing zeros.
func Format(units uint64, decimals uint32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -int32(min(decimals, MaxAssetDecimals))).String() //nolint:gosec // G115: bounded above
}

// Split divides total into n parts. Every part is total/n and the remainder
// goes to the last part, so the parts always sum to total.
func Split(total uint64, n int) ([]uint64, error) {
	if n <= 0 {
		return nil, invalid("nothing to split across")
	}
	share := total / uint64(n)
	if share == 0 {
		return nil, invalid(fmt.Sprintf("%d base units cannot be split across %d recipients", total, n))
	}
	parts := make([]uint64, n)
	for i := range parts {
		parts[i] = share
	}
	parts[n-1] += total % uint64(n)
	return parts, nil
}

// Sum adds amounts and reports overflow as an invalid amount.
func Sum(amounts []uint64) (uint64, error) {
	var total uint64
	for _, a := range amounts {
		if total+a < total {
			return 0, invalid("total amount overflows")
		}
		total += a
	}
	return total, nil
}

func parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, invalid("amount is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, walleterr.WithCause(walleterr.ErrInvalidAmount, err)
	}
	return d, nil
}

// toUnits scales d by 10^decimals, rejecting negatives and excess precision.
func toUnits(d decimal.Decimal, decimals int32) (uint64, error) {
	if d.IsNegative() {
		return 0, invalid("amount must not be negative")
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, invalid(fmt.Sprintf("amount has more than %d decimal places", decimals))
	}
	if scaled.GreaterThan(maxUint64) {
		return 0, invalid("amount is too large")
	}
	return scaled.BigInt().Uint64(), nil
}

func invalid(reason string) error {
	return walleterr.WithDetails(walleterr.ErrInvalidAmount, map[string]string{"reason": reason})
}
