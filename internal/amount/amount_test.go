package amount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walleterr "github.com/algointent/walletcore/pkg/errors"
)

func TestParseAlgo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"1", 1_000_000, false},
		{"0.000001", 1, false},
		{"1.5", 1_500_000, false},
		{" 2.25 ", 2_250_000, false},
		{"1.500000000", 1_500_000, false},
		{"1000000", MaxMicroAlgos, false},
		{"1000000.000001", 0, true},
		{"0", 0, true},
		{"0.0000001", 0, true},
		{"-1", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"1.2.3", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseAlgo(tc.in)
			if tc.wantErr {
				require.ErrorIs(t, err, walleterr.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFromAlgo(t *testing.T) {
	t.Parallel()

	got, err := FromAlgo(decimal.RequireFromString("10"))
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000_000), got)

	_, err = FromAlgo(decimal.RequireFromString("0.1234567"))
	require.ErrorIs(t, err, walleterr.ErrInvalidAmount)
	assert.Contains(t, walleterr.Detail(err, "reason"), "6 decimal places")
}

func TestParseUnits(t *testing.T) {
	t.Parallel()

	got, err := ParseUnits("1", 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got)

	got, err = ParseUnits("2.5", 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(250), got)

	_, err = ParseUnits("0.5", 0)
	require.ErrorIs(t, err, walleterr.ErrInvalidAmount)

	_, err = ParseUnits("0", 3)
	require.ErrorIs(t, err, walleterr.ErrInvalidAmount)

	_, err = ParseUnits("99999999999999999999999", 0)
	require.ErrorIs(t, err, walleterr.ErrInvalidAmount)
}

func TestFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.5", FormatAlgo(1_500_000))
	assert.Equal(t, "0.000001", FormatAlgo(1))
	assert.Equal(t, "0", FormatAlgo(0))
	assert.Equal(t, "1000000", FormatAlgo(MaxMicroAlgos))
	assert.Equal(t, "42", Format(42, 0))
	assert.Equal(t, "0.42", Format(42, 2))
	assert.Equal(t, "18446744073709551615", Format(^uint64(0), 0))
}

func TestSplit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		total uint64
		n     int
		want  []uint64
	}{
		{"ten algo over three", 10_000_000, 3, []uint64{3_333_333, 3_333_333, 3_333_334}},
		{"even", 9, 3, []uint64{3, 3, 3}},
		{"single", 5, 1, []uint64{5}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			parts, err := Split(tc.total, tc.n)
			require.NoError(t, err)
			assert.Equal(t, tc.want, parts)

			sum, err := Sum(parts)
			require.NoError(t, err)
			assert.Equal(t, tc.total, sum)
		})
	}

	_, err := Split(2, 3)
	require.ErrorIs(t, err, walleterr.ErrInvalidAmount)
	_, err = Split(10, 0)
	require.ErrorIs(t, err, walleterr.ErrInvalidAmount)
}

func TestSum_Overflow(t *testing.T) {
	t.Parallel()

	_, err := Sum([]uint64{^uint64(0), 1})
	require.ErrorIs(t, err, walleterr.ErrInvalidAmount)
}

func TestCheckAlgo(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckAlgo(1))
	require.NoError(t, CheckAlgo(MaxMicroAlgos))
	require.ErrorIs(t, CheckAlgo(0), walleterr.ErrInvalidAmount)
	require.ErrorIs(t, CheckAlgo(MaxMicroAlgos+1), walleterr.ErrInvalidAmount)
}
