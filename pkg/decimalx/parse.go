package decimalx

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func MustFromString(s string) decimal.Decimal {
	res, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return res
}

// ParsePositive parses s and rejects zero and negative values.
func ParsePositive(s string) (decimal.Decimal, error) {
	res, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	if !res.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s is not positive", res.String())
	}
	return res, nil
}
