package domain

import "github.com/shopspring/decimal"

// SumAmounts adds stored amounts as they come back from the driver. Values that
// do not parse as numbers count as zero; fractional parts are dropped from the
// final sum.
func SumAmounts(raw []string) int64 {
	total := decimal.Zero
	for _, value := range raw {
		total = total.Add(ParseAmount(value))
	}
	return total.IntPart()
}

func ParseAmount(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
