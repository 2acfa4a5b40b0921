package discount

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo keeps discounts in a map, enough to drive lifecycle tests.
type memRepo struct {
	stubRepo
	byID map[string]*Discount
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[string]*Discount)}
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Discount, error) {
	d, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memRepo) Create(_ context.Context, d *Discount) error {
	cp := *d
	m.byID[d.ID] = &cp
	return nil
}

func (m *memRepo) Update(_ context.Context, d *Discount) error {
	if _, ok := m.byID[d.ID]; !ok {
		return ErrNotFound
	}
	cp := *d
	m.byID[d.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memRepo) SetActive(_ context.Context, id string, active bool) error {
	d, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	d.Active = active
	return nil
}

type stubCategories struct{ categories []string }

func (s stubCategories) ListCategories(context.Context) ([]string, error) {
	return s.categories, nil
}

type stubAuthorizer struct{ admin bool }

func (s stubAuthorizer) IsAdmin(context.Context) bool { return s.admin }

func validFields() Fields {
	return Fields{
		Name:      "Verano",
		Type:      TypePercentage,
		Value:     dec("20"),
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Active:    true,
		AppliesTo: AppliesAllProducts,
	}
}

func newTestLifecycle(repo Repository, admin bool) *Lifecycle {
	l := NewLifecycle(repo, stubCategories{categories: []string{"Tinto", "Blanco"}}, stubAuthorizer{admin: admin})
	l.now = func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC) }
	return l
}

func TestLifecycle_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("valid fields persist", func(t *testing.T) {
		repo := newMemRepo()
		l := newTestLifecycle(repo, true)

		d, err := l.Create(ctx, validFields())
		require.NoError(t, err)
		assert.NotEmpty(t, d.ID)
		assert.Equal(t, "Verano", d.Name)
		assert.Equal(t, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), d.CreatedAt)

		stored, err := repo.GetByID(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.Name, stored.Name)
	})

	t.Run("non-admin denied before validation", func(t *testing.T) {
		repo := newMemRepo()
		l := newTestLifecycle(repo, false)

		// Even invalid fields must surface permission denial, not validation.
		f := validFields()
		f.Name = ""
		_, err := l.Create(ctx, f)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.Empty(t, repo.byID)
	})
}

func TestLifecycle_Validation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		mutate    func(*Fields)
		wantField string
	}{
		{
			name:      "empty name",
			mutate:    func(f *Fields) { f.Name = "" },
			wantField: "name",
		},
		{
			name:      "unknown type",
			mutate:    func(f *Fields) { f.Type = "bogo" },
			wantField: "discount_type",
		},
		{
			name:      "negative value",
			mutate:    func(f *Fields) { f.Value = dec("-5") },
			wantField: "discount_value",
		},
		{
			name:      "percentage above 100",
			mutate:    func(f *Fields) { f.Value = dec("150") },
			wantField: "discount_value",
		},
		{
			name:      "negative min purchase",
			mutate:    func(f *Fields) { f.MinPurchaseAmount = dec("-1") },
			wantField: "min_purchase_amount",
		},
		{
			name:      "negative max discount",
			mutate:    func(f *Fields) { f.MaxDiscountAmount = decPtr("-1") },
			wantField: "max_discount_amount",
		},
		{
			name:      "negative usage limit",
			mutate:    func(f *Fields) { f.UsageLimit = -1 },
			wantField: "usage_limit",
		},
		{
			name:      "end date equals start date",
			mutate:    func(f *Fields) { f.EndDate = f.StartDate },
			wantField: "end_date",
		},
		{
			name:      "end date before start date",
			mutate:    func(f *Fields) { f.EndDate = f.StartDate.AddDate(0, 0, -1) },
			wantField: "end_date",
		},
		{
			name:      "unknown applies_to",
			mutate:    func(f *Fields) { f.AppliesTo = "brand" },
			wantField: "applies_to",
		},
		{
			name: "malformed product id array",
			mutate: func(f *Fields) {
				f.AppliesTo = AppliesSpecificProducts
				f.TargetValue = `["P1",`
			},
			wantField: "target_value",
		},
		{
			name: "empty category",
			mutate: func(f *Fields) {
				f.AppliesTo = AppliesCategory
				f.TargetValue = ""
			},
			wantField: "target_value",
		},
		{
			name: "unknown category",
			mutate: func(f *Fields) {
				f.AppliesTo = AppliesCategory
				f.TargetValue = "Naranja"
			},
			wantField: "target_value",
		},
		{
			name:      "day of week out of range",
			mutate:    func(f *Fields) { f.DaysOfWeek = []int{7} },
			wantField: "days_of_week",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			l := newTestLifecycle(repo, true)

			f := validFields()
			tt.mutate(&f)

			_, err := l.Create(ctx, f)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantField, verr.Field)
			assert.Empty(t, repo.byID, "invalid record must not persist")
		})
	}
}

func TestLifecycle_CreateAcceptsBoundaryValues(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	l := newTestLifecycle(repo, true)

	f := validFields()
	f.Value = dec("100") // boundary percentage
	f.AppliesTo = AppliesCategory
	f.TargetValue = "Tinto"
	f.DaysOfWeek = []int{2, 2, 4} // duplicates tolerated

	d, err := l.Create(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, d.DaysOfWeek.Days())
	assert.Equal(t, "Tinto", d.Scope.Category())
}

func TestLifecycle_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("preserves created_at and used_count", func(t *testing.T) {
		repo := newMemRepo()
		l := newTestLifecycle(repo, true)

		created, err := l.Create(ctx, validFields())
		require.NoError(t, err)
		repo.byID[created.ID].UsedCount = 7

		f := validFields()
		f.Name = "Verano Extendido"
		f.Value = decimal.NewFromInt(25)

		updated, err := l.Update(ctx, created.ID, f)
		require.NoError(t, err)
		assert.Equal(t, "Verano Extendido", updated.Name)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.Equal(t, 7, updated.UsedCount)
	})

	t.Run("unknown id", func(t *testing.T) {
		l := newTestLifecycle(newMemRepo(), true)

		_, err := l.Update(ctx, "missing", validFields())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("invalid fields rejected before write", func(t *testing.T) {
		repo := newMemRepo()
		l := newTestLifecycle(repo, true)

		created, err := l.Create(ctx, validFields())
		require.NoError(t, err)

		f := validFields()
		f.Value = dec("-1")
		_, err = l.Update(ctx, created.ID, f)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		stored, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, dec("20").Equal(stored.Value), "stored record unchanged")
	})
}

func TestLifecycle_Delete(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	l := newTestLifecycle(repo, true)

	created, err := l.Create(ctx, validFields())
	require.NoError(t, err)

	require.NoError(t, l.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, l.Delete(ctx, created.ID), ErrNotFound)
}

func TestLifecycle_SetActive(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	l := newTestLifecycle(repo, true)

	// Window entirely in the past; toggling must still succeed, the read path
	// excludes expired discounts on its own.
	f := validFields()
	f.StartDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	f.EndDate = time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)
	created, err := l.Create(ctx, f)
	require.NoError(t, err)

	require.NoError(t, l.SetActive(ctx, created.ID, false))
	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	require.NoError(t, l.SetActive(ctx, created.ID, true))
	stored, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)

	assert.ErrorIs(t, l.SetActive(ctx, "missing", true), ErrNotFound)
}

func TestLifecycle_NonAdminDeniedEverywhere(t *testing.T) {
	ctx := context.Background()
	l := newTestLifecycle(newMemRepo(), false)

	_, err := l.Create(ctx, validFields())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = l.Update(ctx, "id", validFields())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	assert.ErrorIs(t, l.Delete(ctx, "id"), ErrPermissionDenied)
	assert.ErrorIs(t, l.SetActive(ctx, "id", true), ErrPermissionDenied)
}
