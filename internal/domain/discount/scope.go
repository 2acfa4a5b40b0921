package discount

import (
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/vinoteca/promo-engine/internal/domain/product"
)

// AppliesTo discriminates the stored scope representation.
type AppliesTo string

const (
	// AppliesAllProducts targets every product in the catalog.
	AppliesAllProducts AppliesTo = "all_products"
	// AppliesCategory targets products whose category exactly equals the
	// stored target value.
	AppliesCategory AppliesTo = "category"
	// AppliesSpecificProducts targets an explicit product id list, stored as
	// a JSON array.
	AppliesSpecificProducts AppliesTo = "specific_products"
)

// Valid reports whether a is a known scope discriminator.
func (a AppliesTo) Valid() bool {
	switch a {
	case AppliesAllProducts, AppliesCategory, AppliesSpecificProducts:
		return true
	}
	return false
}

// Scope is the tagged variant behind the (applies_to, target_value) pair.
// It is constructed once when a discount is loaded so the read path never
// re-parses target values. The zero value matches nothing, which is the
// fail-safe stand-in for rules whose stored target could not be parsed.
type Scope struct {
	kind     AppliesTo
	category string
	products map[string]struct{}
}

// ScopeAll returns a scope matching every product.
func ScopeAll() Scope {
	return Scope{kind: AppliesAllProducts}
}

// ScopeCategory returns a scope matching products in the named category.
func ScopeCategory(name string) Scope {
	return Scope{kind: AppliesCategory, category: name}
}

// ScopeProducts returns a scope matching the given product ids.
func ScopeProducts(ids []string) Scope {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return Scope{kind: AppliesSpecificProducts, products: set}
}

// ParseScope builds a Scope from the stored discriminator and target value.
// For AppliesSpecificProducts the target must be a JSON array of id strings.
func ParseScope(appliesTo AppliesTo, targetValue string) (Scope, error) {
	switch appliesTo {
	case AppliesAllProducts:
		return ScopeAll(), nil
	case AppliesCategory:
		if targetValue == "" {
			return Scope{}, errors.New("empty category target")
		}
		return ScopeCategory(targetValue), nil
	case AppliesSpecificProducts:
		ids, err := parseIDArray(targetValue)
		if err != nil {
			return Scope{}, errors.Wrap(err, "parse product id array")
		}
		return ScopeProducts(ids), nil
	default:
		return Scope{}, errors.Errorf("unknown applies_to %q", appliesTo)
	}
}

// Matches reports whether p falls inside the scope. A zero (unparsed) scope
// matches nothing.
func (s Scope) Matches(p product.Product) bool {
	switch s.kind {
	case AppliesAllProducts:
		return true
	case AppliesCategory:
		// Exact match against the catalog's canonical category names.
		// Mismatches are silently excluded, no normalization.
		return s.category == p.Category
	case AppliesSpecificProducts:
		_, ok := s.products[p.ID]
		return ok
	}
	return false
}

// Kind returns the scope discriminator, or the empty string for a zero scope.
func (s Scope) Kind() AppliesTo {
	return s.kind
}

// Category returns the category name for an AppliesCategory scope.
func (s Scope) Category() string {
	return s.category
}

// ProductIDs returns the targeted product ids, sorted, for an
// AppliesSpecificProducts scope.
func (s Scope) ProductIDs() []string {
	ids := make([]string, 0, len(s.products))
	for id := range s.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TargetValue renders the scope back to its stored string form.
func (s Scope) TargetValue() string {
	switch s.kind {
	case AppliesCategory:
		return s.category
	case AppliesSpecificProducts:
		e := &jx.Encoder{}
		e.ArrStart()
		for _, id := range s.ProductIDs() {
			e.Str(id)
		}
		e.ArrEnd()
		return e.String()
	}
	return ""
}

func parseIDArray(raw string) ([]string, error) {
	d := jx.DecodeStr(strings.TrimSpace(raw))
	var ids []string
	if err := d.Arr(func(d *jx.Decoder) error {
		id, err := d.Str()
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	}); err != nil {
		return nil, err
	}
	return ids, nil
}
