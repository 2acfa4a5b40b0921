package discount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vinoteca/promo-engine/internal/domain/product"
)

func TestApplicable(t *testing.T) {
	// 2024-01-15 is a Monday; the window covers all of January 2024.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	monday := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	tinto := product.Product{ID: "P1", Category: "Tinto", Price: dec("20")}
	blanco := product.Product{ID: "P2", Category: "Blanco", Price: dec("15")}

	base := Discount{
		ID:        "d1",
		Active:    true,
		StartDate: start,
		EndDate:   end,
		Scope:     ScopeAll(),
	}

	tests := []struct {
		name    string
		mutate  func(*Discount)
		product product.Product
		asOf    time.Time
		want    bool
	}{
		{
			name:    "active all-products discount inside window",
			mutate:  func(*Discount) {},
			product: tinto,
			asOf:    monday,
			want:    true,
		},
		{
			name:    "inactive discount excluded regardless of dates",
			mutate:  func(d *Discount) { d.Active = false },
			product: tinto,
			asOf:    monday,
			want:    false,
		},
		{
			name:    "before start date",
			mutate:  func(*Discount) {},
			product: tinto,
			asOf:    start.Add(-time.Second),
			want:    false,
		},
		{
			name:    "after end date",
			mutate:  func(*Discount) {},
			product: tinto,
			asOf:    end.Add(time.Second),
			want:    false,
		},
		{
			name:    "exactly at start date",
			mutate:  func(*Discount) {},
			product: tinto,
			asOf:    start,
			want:    true,
		},
		{
			name:    "exactly at end date",
			mutate:  func(*Discount) {},
			product: tinto,
			asOf:    end,
			want:    true,
		},
		{
			name:    "category scope matches",
			mutate:  func(d *Discount) { d.Scope = ScopeCategory("Tinto") },
			product: tinto,
			asOf:    monday,
			want:    true,
		},
		{
			name:    "category scope mismatch silently excluded",
			mutate:  func(d *Discount) { d.Scope = ScopeCategory("Tinto") },
			product: blanco,
			asOf:    monday,
			want:    false,
		},
		{
			name:    "specific products scope matches member",
			mutate:  func(d *Discount) { d.Scope = ScopeProducts([]string{"P1"}) },
			product: tinto,
			asOf:    monday,
			want:    true,
		},
		{
			name:    "specific products scope excludes non-member",
			mutate:  func(d *Discount) { d.Scope = ScopeProducts([]string{"P1"}) },
			product: blanco,
			asOf:    monday,
			want:    false,
		},
		{
			name:    "zero scope matches nothing",
			mutate:  func(d *Discount) { d.Scope = Scope{} },
			product: tinto,
			asOf:    monday,
			want:    false,
		},
		{
			name:    "weekday restriction includes Wednesday",
			mutate:  func(d *Discount) { d.DaysOfWeek = mustWeekdays(t, 1, 3, 5) },
			product: tinto,
			asOf:    time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC), // Wednesday
			want:    true,
		},
		{
			name:    "weekday restriction excludes Tuesday",
			mutate:  func(d *Discount) { d.DaysOfWeek = mustWeekdays(t, 1, 3, 5) },
			product: tinto,
			asOf:    time.Date(2024, 1, 16, 12, 0, 0, 0, time.UTC), // Tuesday
			want:    false,
		},
		{
			name:    "empty weekday set applies every day",
			mutate:  func(d *Discount) { d.DaysOfWeek = EveryDay },
			product: tinto,
			asOf:    time.Date(2024, 1, 21, 12, 0, 0, 0, time.UTC), // Sunday
			want:    true,
		},
		{
			name:   "weekday computed in UTC",
			mutate: func(d *Discount) { d.DaysOfWeek = mustWeekdays(t, 3) },
			// 23:30 Tuesday in UTC-3 is 02:30 Wednesday UTC.
			product: tinto,
			asOf:    time.Date(2024, 1, 16, 23, 30, 0, 0, time.FixedZone("ART", -3*3600)),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.mutate(&d)
			assert.Equal(t, tt.want, Applicable(d, tt.product, tt.asOf))
		})
	}
}

func TestFilterApplicable(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	p := product.Product{ID: "P1", Category: "Tinto", Price: dec("20")}

	candidates := []Discount{
		{ID: "match-all", Active: true, StartDate: start, EndDate: end, Scope: ScopeAll()},
		{ID: "wrong-category", Active: true, StartDate: start, EndDate: end, Scope: ScopeCategory("Blanco")},
		{ID: "inactive", Active: false, StartDate: start, EndDate: end, Scope: ScopeAll()},
		{ID: "match-id", Active: true, StartDate: start, EndDate: end, Scope: ScopeProducts([]string{"P1"})},
	}

	got := FilterApplicable(candidates, p, asOf)

	ids := make([]string, len(got))
	for i, d := range got {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"match-all", "match-id"}, ids)
}

func mustWeekdays(t *testing.T, days ...int) Weekdays {
	t.Helper()
	w, err := WeekdaysOf(days)
	if err != nil {
		t.Fatalf("weekdays %v: %v", days, err)
	}
	return w
}
