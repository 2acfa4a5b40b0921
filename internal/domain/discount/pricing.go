package discount

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Price computes the evaluation of applying d to a product price.
//
// The raw discount (percentage of price, or the fixed amount) is capped by
// MaxDiscountAmount when set, then clamped to [0, price] so the final price
// never goes negative and never exceeds the original. Amounts are rounded to
// two decimal places at this boundary; final price is derived from the
// rounded savings so the two always sum back to the original price.
func Price(d Discount, price decimal.Decimal) Evaluation {
	var raw decimal.Decimal
	switch d.Type {
	case TypePercentage:
		raw = price.Mul(d.Value).Div(hundred)
	default:
		raw = d.Value
	}

	if d.MaxDiscountAmount != nil {
		raw = decimal.Min(raw, *d.MaxDiscountAmount)
	}

	savings := clamp(raw, decimal.Zero, price).Round(2)

	return Evaluation{
		DiscountID:   d.ID,
		DiscountName: d.Name,
		Type:         d.Type,
		Value:        d.Value,
		FinalPrice:   price.Sub(savings),
		Savings:      savings,
	}
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
