package discount

import (
	"time"

	"github.com/vinoteca/promo-engine/internal/domain/product"
)

// Annotation pairs a product with its best discount evaluation, if any.
// Stored prices are never mutated; annotations are listing-time previews.
type Annotation struct {
	Product    product.Product
	Evaluation *Evaluation
}

// Annotate runs the resolve-price-select pipeline across an ordered product
// sequence against one shared discount set, returning a parallel sequence of
// annotations.
//
// The discount set is pre-indexed by scope (global, per category, per product
// id) to avoid rescanning every discount per product; the result is identical
// to evaluating each product independently against the full set.
func Annotate(products []product.Product, discounts []Discount, asOf time.Time) []Annotation {
	idx := indexByScope(discounts)

	out := make([]Annotation, len(products))
	for i, p := range products {
		candidates := idx.candidatesFor(p)
		applicable := FilterApplicable(candidates, p, asOf)
		out[i] = Annotation{
			Product:    p,
			Evaluation: Best(p, applicable),
		}
	}
	return out
}

// scopeIndex groups discounts by their scope target. Discounts with a zero
// (unparseable) scope match nothing and are dropped at index time, which is
// exactly what the per-product filter would do with them.
type scopeIndex struct {
	global     []Discount
	byCategory map[string][]Discount
	byProduct  map[string][]Discount
}

func indexByScope(discounts []Discount) scopeIndex {
	idx := scopeIndex{
		byCategory: make(map[string][]Discount),
		byProduct:  make(map[string][]Discount),
	}
	for _, d := range discounts {
		switch d.Scope.Kind() {
		case AppliesAllProducts:
			idx.global = append(idx.global, d)
		case AppliesCategory:
			c := d.Scope.Category()
			idx.byCategory[c] = append(idx.byCategory[c], d)
		case AppliesSpecificProducts:
			for _, id := range d.Scope.ProductIDs() {
				idx.byProduct[id] = append(idx.byProduct[id], d)
			}
		}
	}
	return idx
}

func (idx scopeIndex) candidatesFor(p product.Product) []Discount {
	n := len(idx.global) + len(idx.byCategory[p.Category]) + len(idx.byProduct[p.ID])
	if n == 0 {
		return nil
	}
	candidates := make([]Discount, 0, n)
	candidates = append(candidates, idx.global...)
	candidates = append(candidates, idx.byCategory[p.Category]...)
	candidates = append(candidates, idx.byProduct[p.ID]...)
	return candidates
}
