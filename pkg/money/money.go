// Package money holds integer minor-unit arithmetic. Every binary split keeps
// the complement as a remainder so both parts always add back to the input.
package money

import (
	"math"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount Split can multiply by a whole percentage
// without overflowing int64.
const MaxAmount int64 = math.MaxInt64 / 100

// Amount is the wire form of money: minor units plus an explicit currency code.
type Amount struct {
	Value        int64  `json:"amount"`
	CurrencyCode string `json:"currency_code"`
}

func New(value int64, currency string) Amount {
	return Amount{Value: value, CurrencyCode: currency}
}

// Split returns floor(amount * pct / 100).
func Split(amount, pct int64) int64 {
	if amount <= 0 || pct <= 0 {
		return 0
	}
	return amount * pct / 100
}

// SplitWithRemainder returns the pct share and amount minus that share.
func SplitWithRemainder(amount, pct int64) (part, rest int64) {
	part = Split(amount, pct)
	return part, amount - part
}

// Ratio returns num/den clamped to [0, 1]. Display only.
func Ratio(num, den int64) decimal.Decimal {
	if den <= 0 || num <= 0 {
		return decimal.Zero
	}
	r := decimal.NewFromInt(num).Div(decimal.NewFromInt(den))
	if r.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return r
}

// Distribute splits total proportionally to weights, flooring each share.
// The leftover minor units go to the first recipient so the parts sum to total.
func Distribute(total int64, weights []int64) []int64 {
	parts := make([]int64, len(weights))
	if total <= 0 || len(weights) == 0 {
		return parts
	}

	var sum int64
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	if sum == 0 {
		parts[0] = total
		return parts
	}

	t := decimal.NewFromInt(total)
	s := decimal.NewFromInt(sum)

	var allocated int64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		q, _ := t.Mul(decimal.NewFromInt(w)).QuoRem(s, 0)
		parts[i] = q.IntPart()
		allocated += parts[i]
	}
	parts[0] += total - allocated

	return parts
}
