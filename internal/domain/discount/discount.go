// Package discount implements promotional discount resolution: deciding which
// discount rules apply to a product at a point in time, pricing each candidate,
// and selecting the single most advantageous one.
//
// The read path (Applicable, Price, Best, Annotate) is pure and fail-safe:
// malformed rule data excludes a rule from consideration instead of surfacing
// an error, so a broken promotion can never break catalog browsing. The write
// path (Lifecycle) is fail-fast and rejects invalid records before they reach
// storage.
package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage reduces the price by a percentage of itself.
	TypePercentage Type = "percentage"
	// TypeFixedAmount reduces the price by a fixed monetary amount.
	TypeFixedAmount Type = "fixed_amount"
)

// Valid reports whether t is a known discount type.
func (t Type) Valid() bool {
	return t == TypePercentage || t == TypeFixedAmount
}

var (
	// ErrNotFound is returned when a requested discount does not exist.
	ErrNotFound = errors.New("discount not found")
	// ErrUsageLimitReached is returned by Repository.Consume when the
	// discount has exhausted its allowed uses.
	ErrUsageLimitReached = errors.New("discount usage limit reached")
)

// Discount is a time-bounded promotional rule that reduces a product's price
// under specified conditions.
type Discount struct {
	ID          string
	Name        string
	Description string

	Type Type
	// Value is a percentage in [0,100] for TypePercentage and a monetary
	// amount for TypeFixedAmount. Non-negative.
	Value decimal.Decimal

	// MinPurchaseAmount is an informational order-level threshold. It is not
	// enforced during single-product evaluation; cart totals are out of this
	// engine's scope.
	MinPurchaseAmount decimal.Decimal
	// MaxDiscountAmount caps the absolute discount when non-nil.
	MaxDiscountAmount *decimal.Decimal

	// StartDate and EndDate bound the validity window (UTC, inclusive on
	// both ends). StartDate < EndDate.
	StartDate time.Time
	EndDate   time.Time

	// Active is independent of the date window: an inactive discount is
	// excluded regardless of dates.
	Active bool

	// UsageLimit bounds total consumptions; zero means unlimited.
	UsageLimit int
	UsedCount  int

	// Scope determines which products the discount may affect. Built once
	// when the record is loaded; see ParseScope.
	Scope Scope

	// DaysOfWeek restricts the discount to specific UTC weekdays. Empty
	// means every day.
	DaysOfWeek Weekdays

	// CreatedAt breaks ties between discounts yielding equal savings: the
	// earliest-created one wins, keeping repeated evaluations reproducible.
	CreatedAt time.Time
}

// Evaluation is the computed outcome of applying one discount to one product
// at one instant. It is derived on demand and never persisted.
type Evaluation struct {
	DiscountID   string
	DiscountName string
	Type         Type
	Value        decimal.Decimal
	FinalPrice   decimal.Decimal
	Savings      decimal.Decimal
}

// Repository provides persistence for discount rules.
type Repository interface {
	// ListActive returns active discounts whose validity window contains
	// asOf. Callers must not rely on the prefilter alone; the resolver
	// re-checks both conditions.
	ListActive(ctx context.Context, asOf time.Time) ([]Discount, error)
	List(ctx context.Context) ([]Discount, error)
	GetByID(ctx context.Context, id string) (*Discount, error)
	Create(ctx context.Context, d *Discount) error
	Update(ctx context.Context, d *Discount) error
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
	// Consume atomically increments the usage counter, failing with
	// ErrUsageLimitReached once the limit is exhausted. Implementations must
	// express the bounded increment as a single conditional update so that
	// concurrent consumptions cannot overshoot the limit.
	Consume(ctx context.Context, id string) error
}
