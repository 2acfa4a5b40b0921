package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vinoteca/promo-engine/internal/domain/discount"
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

const discountColumns = `id, name, description, discount_type, discount_value,
	min_purchase_amount, max_discount_amount, start_date, end_date, is_active,
	usage_limit, used_count, applies_to, target_value, days_of_week, created_at`

// ListActive returns active discounts whose validity window contains asOf.
func (r *DiscountRepository) ListActive(ctx context.Context, asOf time.Time) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+discountColumns+`
		FROM discounts
		WHERE is_active AND start_date <= $1 AND end_date >= $1
		ORDER BY created_at, id`, asOf.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "list active discounts")
	}
	defer rows.Close()

	return r.collect(ctx, rows)
}

// List returns every discount, newest first.
func (r *DiscountRepository) List(ctx context.Context) ([]discount.Discount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+discountColumns+`
		FROM discounts
		ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	defer rows.Close()

	return r.collect(ctx, rows)
}

// GetByID returns a single discount. Returns discount.ErrNotFound when no
// matching record exists.
func (r *DiscountRepository) GetByID(ctx context.Context, id string) (*discount.Discount, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+discountColumns+`
		FROM discounts
		WHERE id = $1`, id)

	d, err := scanDiscount(ctx, row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get discount %q", id)
	}
	return d, nil
}

// Create persists a new discount record.
func (r *DiscountRepository) Create(ctx context.Context, d *discount.Discount) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO discounts (`+discountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		d.ID, d.Name, d.Description, string(d.Type), d.Value,
		d.MinPurchaseAmount, d.MaxDiscountAmount, d.StartDate.UTC(), d.EndDate.UTC(), d.Active,
		usageLimit(d), d.UsedCount, string(d.Scope.Kind()), d.Scope.TargetValue(),
		d.DaysOfWeek.Days(), d.CreatedAt.UTC())
	if err != nil {
		return errors.Wrapf(err, "create discount %q", d.ID)
	}
	return nil
}

// Update overwrites the stored record. Returns discount.ErrNotFound when no
// matching record exists.
func (r *DiscountRepository) Update(ctx context.Context, d *discount.Discount) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE discounts SET
			name = $2, description = $3, discount_type = $4, discount_value = $5,
			min_purchase_amount = $6, max_discount_amount = $7,
			start_date = $8, end_date = $9, is_active = $10,
			usage_limit = $11, applies_to = $12, target_value = $13,
			days_of_week = $14
		WHERE id = $1`,
		d.ID, d.Name, d.Description, string(d.Type), d.Value,
		d.MinPurchaseAmount, d.MaxDiscountAmount, d.StartDate.UTC(), d.EndDate.UTC(), d.Active,
		usageLimit(d), string(d.Scope.Kind()), d.Scope.TargetValue(), d.DaysOfWeek.Days())
	if err != nil {
		return errors.Wrapf(err, "update discount %q", d.ID)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// Delete removes a discount. Returns discount.ErrNotFound when no matching
// record exists.
func (r *DiscountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return errors.Wrapf(err, "delete discount %q", id)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// SetActive updates the active flag only.
func (r *DiscountRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE discounts SET is_active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return errors.Wrapf(err, "toggle discount %q", id)
	}
	if tag.RowsAffected() == 0 {
		return discount.ErrNotFound
	}
	return nil
}

// Consume atomically increments used_count, bounded by usage_limit. The guard
// lives inside the single UPDATE so concurrent consumptions cannot overshoot
// the limit.
func (r *DiscountRepository) Consume(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE discounts
		SET used_count = used_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`, id)
	if err != nil {
		return errors.Wrapf(err, "consume discount %q", id)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing record from an exhausted one.
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM discounts WHERE id = $1)`, id).Scan(&exists); err != nil {
			return errors.Wrapf(err, "check discount %q", id)
		}
		if !exists {
			return discount.ErrNotFound
		}
		return discount.ErrUsageLimitReached
	}
	return nil
}

func (r *DiscountRepository) collect(ctx context.Context, rows pgx.Rows) ([]discount.Discount, error) {
	var out []discount.Discount
	for rows.Next() {
		d, err := scanDiscount(ctx, rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan discount row")
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "read discount rows")
	}
	return out, nil
}

func scanDiscount(ctx context.Context, row pgx.Row) (*discount.Discount, error) {
	var (
		d           discount.Discount
		typ         string
		maxDiscount *decimal.Decimal
		limit       *int32
		appliesTo   string
		targetValue string
		days        []int32
	)
	if err := row.Scan(
		&d.ID, &d.Name, &d.Description, &typ, &d.Value,
		&d.MinPurchaseAmount, &maxDiscount, &d.StartDate, &d.EndDate, &d.Active,
		&limit, &d.UsedCount, &appliesTo, &targetValue, &days, &d.CreatedAt,
	); err != nil {
		return nil, err
	}

	d.Type = discount.Type(typ)
	d.MaxDiscountAmount = maxDiscount
	if limit != nil {
		d.UsageLimit = int(*limit)
	}

	// Scope parsing is fail-safe on the read path: a rule whose stored target
	// cannot be parsed is loaded with a match-nothing scope rather than
	// failing the whole listing.
	scope, err := discount.ParseScope(discount.AppliesTo(appliesTo), targetValue)
	if err != nil {
		zctx.From(ctx).Warn("Discount has unparsable scope, excluding from matching",
			zap.String("discount_id", d.ID),
			zap.String("applies_to", appliesTo),
			zap.Error(err))
	}
	d.Scope = scope

	dayInts := make([]int, len(days))
	for i, v := range days {
		dayInts[i] = int(v)
	}
	weekdays, err := discount.WeekdaysOf(dayInts)
	if err != nil {
		return nil, errors.Wrap(err, "stored days_of_week")
	}
	d.DaysOfWeek = weekdays

	d.StartDate = d.StartDate.UTC()
	d.EndDate = d.EndDate.UTC()
	d.CreatedAt = d.CreatedAt.UTC()

	return &d, nil
}

func usageLimit(d *discount.Discount) *int32 {
	if d.UsageLimit <= 0 {
		return nil
	}
	v := int32(d.UsageLimit)
	return &v
}
