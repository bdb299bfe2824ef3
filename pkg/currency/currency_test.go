package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUSD(t *testing.T) {
	cents, err := ParseUSD(decimal.RequireFromString("60.00"))
	require.NoError(t, err)
	assert.Equal(t, int64(6000), cents)

	cents, err = ParseUSD(decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), cents)

	_, err = ParseUSD(decimal.RequireFromString("10.001"))
	assert.Error(t, err, "sub-cent precision must be rejected")

	_, err = ParseUSD(decimal.RequireFromString("0"))
	assert.Error(t, err)

	_, err = ParseUSD(decimal.RequireFromString("-5"))
	assert.Error(t, err)
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$60.00", FormatUSD(6000))
	assert.Equal(t, "$0.01", FormatUSD(1))
	assert.Equal(t, "$1234.56", FormatUSD(123456))
}

func TestUSDCentsToVND(t *testing.T) {
	// $60 at 24,000 VND/USD
	assert.Equal(t, int64(1_440_000), USDCentsToVND(6000, 24000))
	// $0.50 converts exactly
	assert.Equal(t, int64(12_000), USDCentsToVND(50, 24000))
}
