package discount

import (
	"time"

	"github.com/vinoteca/promo-engine/internal/domain/product"
)

// Applicable reports whether d is structurally applicable to p at asOf.
//
// The date window is re-checked here even when candidates come from a
// prefiltered repository query, since callers may also supply candidates
// directly. All times are compared in UTC; the window is inclusive on both
// ends.
func Applicable(d Discount, p product.Product, asOf time.Time) bool {
	if !d.Active {
		return false
	}

	at := asOf.UTC()
	if at.Before(d.StartDate) || at.After(d.EndDate) {
		return false
	}

	if !d.Scope.Matches(p) {
		return false
	}

	return d.DaysOfWeek.Contains(at.Weekday())
}

// FilterApplicable returns the subset of candidates applicable to p at asOf,
// preserving input order.
func FilterApplicable(candidates []Discount, p product.Product, asOf time.Time) []Discount {
	var applicable []Discount
	for _, d := range candidates {
		if Applicable(d, p, asOf) {
			applicable = append(applicable, d)
		}
	}
	return applicable
}
