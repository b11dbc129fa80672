package decimalx

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPrice(t *testing.T) {
	testCases := []struct {
		name string
		d    decimal.Decimal
		want string
	}{
		{name: "integer", d: decimal.NewFromInt(10), want: "$10.0000"},
		{name: "round half up", d: MustFromString("0.123456"), want: "$0.1235"},
		{name: "big num", d: MustFromString("67321.5"), want: "$67321.5000"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatPrice(tc.d))
		})
	}
}

func TestParsePositive(t *testing.T) {
	d, err := ParsePositive(" 0.26 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(MustFromString("0.26")))

	_, err = ParsePositive("0")
	assert.Error(t, err)
	_, err = ParsePositive("-1")
	assert.Error(t, err)
	_, err = ParsePositive("abc")
	assert.Error(t, err)
}
