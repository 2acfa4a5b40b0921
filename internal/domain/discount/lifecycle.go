package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vinoteca/promo-engine/internal/domain/auth"
)

// ErrPermissionDenied is returned when the caller is not an administrator.
// It is deliberately distinct from validation failures.
var ErrPermissionDenied = errors.New("permission denied")

// ValidationError identifies the first field that failed write-time
// validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// CategoryLister exposes the catalog's canonical category vocabulary, used to
// validate category-scoped discounts at write time.
type CategoryLister interface {
	ListCategories(ctx context.Context) ([]string, error)
}

// Fields carries the writable attributes of a discount for create and update
// operations, in their raw stored representation. Scope and weekday parsing
// happen during validation, unlike the fail-safe read path.
type Fields struct {
	Name              string
	Description       string
	Type              Type
	Value             decimal.Decimal
	MinPurchaseAmount decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	StartDate         time.Time
	EndDate           time.Time
	Active            bool
	UsageLimit        int
	AppliesTo         AppliesTo
	TargetValue       string
	DaysOfWeek        []int
}

// Lifecycle validates and persists discount mutations. It is the only
// component that writes discount state; every operation is gated on the
// authorizer.
type Lifecycle struct {
	discounts Repository
	catalog   CategoryLister
	auth      auth.Authorizer
	now       func() time.Time
}

// NewLifecycle creates a Lifecycle service.
func NewLifecycle(discounts Repository, catalog CategoryLister, authorizer auth.Authorizer) *Lifecycle {
	return &Lifecycle{
		discounts: discounts,
		catalog:   catalog,
		auth:      authorizer,
		now:       time.Now,
	}
}

// Create validates fields and persists a new discount record.
func (l *Lifecycle) Create(ctx context.Context, f Fields) (*Discount, error) {
	if !l.auth.IsAdmin(ctx) {
		return nil, ErrPermissionDenied
	}

	scope, days, err := l.validate(ctx, f)
	if err != nil {
		return nil, err
	}

	d := &Discount{
		ID:                uuid.New().String(),
		Name:              f.Name,
		Description:       f.Description,
		Type:              f.Type,
		Value:             f.Value,
		MinPurchaseAmount: f.MinPurchaseAmount,
		MaxDiscountAmount: f.MaxDiscountAmount,
		StartDate:         f.StartDate.UTC(),
		EndDate:           f.EndDate.UTC(),
		Active:            f.Active,
		UsageLimit:        f.UsageLimit,
		Scope:             scope,
		DaysOfWeek:        days,
		CreatedAt:         l.now().UTC(),
	}
	if err := l.discounts.Create(ctx, d); err != nil {
		return nil, errors.Wrap(err, "create discount")
	}
	return d, nil
}

// Update validates fields and overwrites the stored record. Creation time and
// usage counters are preserved.
func (l *Lifecycle) Update(ctx context.Context, id string, f Fields) (*Discount, error) {
	if !l.auth.IsAdmin(ctx) {
		return nil, ErrPermissionDenied
	}

	existing, err := l.discounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	scope, days, err := l.validate(ctx, f)
	if err != nil {
		return nil, err
	}

	d := &Discount{
		ID:                existing.ID,
		Name:              f.Name,
		Description:       f.Description,
		Type:              f.Type,
		Value:             f.Value,
		MinPurchaseAmount: f.MinPurchaseAmount,
		MaxDiscountAmount: f.MaxDiscountAmount,
		StartDate:         f.StartDate.UTC(),
		EndDate:           f.EndDate.UTC(),
		Active:            f.Active,
		UsageLimit:        f.UsageLimit,
		UsedCount:         existing.UsedCount,
		Scope:             scope,
		DaysOfWeek:        days,
		CreatedAt:         existing.CreatedAt,
	}
	if err := l.discounts.Update(ctx, d); err != nil {
		return nil, errors.Wrap(err, "update discount")
	}
	return d, nil
}

// Delete removes a discount by id.
func (l *Lifecycle) Delete(ctx context.Context, id string) error {
	if !l.auth.IsAdmin(ctx) {
		return ErrPermissionDenied
	}
	return l.discounts.Delete(ctx, id)
}

// SetActive flips the active flag only. The date window is not re-validated:
// an expired discount stays excluded by the resolver either way.
func (l *Lifecycle) SetActive(ctx context.Context, id string, active bool) error {
	if !l.auth.IsAdmin(ctx) {
		return ErrPermissionDenied
	}
	return l.discounts.SetActive(ctx, id, active)
}

// validate applies the write-time contract and rejects on the first failing
// field.
func (l *Lifecycle) validate(ctx context.Context, f Fields) (Scope, Weekdays, error) {
	if f.Name == "" {
		return Scope{}, 0, invalid("name", "must not be empty")
	}
	if !f.Type.Valid() {
		return Scope{}, 0, invalid("discount_type", fmt.Sprintf("unknown type %q", f.Type))
	}
	if f.Value.IsNegative() {
		return Scope{}, 0, invalid("discount_value", "must not be negative")
	}
	if f.Type == TypePercentage && f.Value.GreaterThan(hundred) {
		return Scope{}, 0, invalid("discount_value", "percentage must not exceed 100")
	}
	if f.MinPurchaseAmount.IsNegative() {
		return Scope{}, 0, invalid("min_purchase_amount", "must not be negative")
	}
	if f.MaxDiscountAmount != nil && f.MaxDiscountAmount.IsNegative() {
		return Scope{}, 0, invalid("max_discount_amount", "must not be negative")
	}
	if f.UsageLimit < 0 {
		return Scope{}, 0, invalid("usage_limit", "must not be negative")
	}
	if !f.StartDate.Before(f.EndDate) {
		return Scope{}, 0, invalid("end_date", "must be strictly after start_date")
	}
	if !f.AppliesTo.Valid() {
		return Scope{}, 0, invalid("applies_to", fmt.Sprintf("unknown scope %q", f.AppliesTo))
	}

	scope, err := ParseScope(f.AppliesTo, f.TargetValue)
	if err != nil {
		return Scope{}, 0, invalid("target_value", err.Error())
	}
	if f.AppliesTo == AppliesCategory {
		known, err := l.categoryExists(ctx, scope.Category())
		if err != nil {
			return Scope{}, 0, errors.Wrap(err, "list categories")
		}
		if !known {
			return Scope{}, 0, invalid("target_value", fmt.Sprintf("unknown category %q", scope.Category()))
		}
	}

	days, err := WeekdaysOf(f.DaysOfWeek)
	if err != nil {
		return Scope{}, 0, invalid("days_of_week", err.Error())
	}

	return scope, days, nil
}

func (l *Lifecycle) categoryExists(ctx context.Context, name string) (bool, error) {
	categories, err := l.catalog.ListCategories(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range categories {
		if c == name {
			return true, nil
		}
	}
	return false, nil
}
