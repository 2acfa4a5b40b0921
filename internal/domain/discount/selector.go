package discount

import (
	"time"

	"github.com/vinoteca/promo-engine/internal/domain/product"
)

// Best prices every candidate against p and returns the evaluation with the
// maximum absolute savings, or nil when candidates is empty. Absolute savings
// decide, not the nominal percentage: a fixed amount can beat a larger
// percentage on a cheap item.
//
// Ties on savings resolve to the earliest-created discount, so repeated
// evaluations of the same inputs always pick the same winner. Candidates tied
// on both savings and creation time resolve to the earlier one in input order
// (the reduction never replaces the incumbent on a full tie).
func Best(p product.Product, candidates []Discount) *Evaluation {
	var (
		best        *Evaluation
		bestCreated time.Time
	)

	for i := range candidates {
		d := candidates[i]
		ev := Price(d, p.Price)

		if best == nil || beats(ev, d.CreatedAt, best, bestCreated) {
			best = &ev
			bestCreated = d.CreatedAt
		}
	}
	return best
}

func beats(ev Evaluation, created time.Time, best *Evaluation, bestCreated time.Time) bool {
	if ev.Savings.GreaterThan(best.Savings) {
		return true
	}
	return ev.Savings.Equal(best.Savings) && created.Before(bestCreated)
}
