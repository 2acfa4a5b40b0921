package discount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinoteca/promo-engine/internal/domain/product"
)

func TestBest(t *testing.T) {
	p := product.Product{ID: "P1", Category: "Tinto", Price: dec("100")}

	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	t.Run("empty candidates yields nil", func(t *testing.T) {
		assert.Nil(t, Best(p, nil))
	})

	t.Run("single candidate wins", func(t *testing.T) {
		got := Best(p, []Discount{
			{ID: "a", Type: TypePercentage, Value: dec("10")},
		})
		require.NotNil(t, got)
		assert.Equal(t, "a", got.DiscountID)
		assert.True(t, dec("10").Equal(got.Savings))
	})

	t.Run("absolute savings beats nominal percentage", func(t *testing.T) {
		// On price=100, $20 fixed saves more than 15%.
		got := Best(p, []Discount{
			{ID: "pct15", Type: TypePercentage, Value: dec("15"), CreatedAt: earlier},
			{ID: "fix20", Type: TypeFixedAmount, Value: dec("20"), CreatedAt: later},
		})
		require.NotNil(t, got)
		assert.Equal(t, "fix20", got.DiscountID)
		assert.True(t, dec("20").Equal(got.Savings))
		assert.True(t, dec("80").Equal(got.FinalPrice))
	})

	t.Run("capped discount compared by effective savings", func(t *testing.T) {
		// 50% capped at 5 is worth less than a flat 10.
		got := Best(p, []Discount{
			{ID: "capped", Type: TypePercentage, Value: dec("50"), MaxDiscountAmount: decPtr("5")},
			{ID: "flat", Type: TypeFixedAmount, Value: dec("10")},
		})
		require.NotNil(t, got)
		assert.Equal(t, "flat", got.DiscountID)
	})

	t.Run("tie resolves to earliest created", func(t *testing.T) {
		candidates := []Discount{
			{ID: "newer", Type: TypeFixedAmount, Value: dec("20"), CreatedAt: later},
			{ID: "older", Type: TypePercentage, Value: dec("20"), CreatedAt: earlier},
		}

		got := Best(p, candidates)
		require.NotNil(t, got)
		assert.Equal(t, "older", got.DiscountID)

		// Same winner regardless of candidate order.
		reversed := []Discount{candidates[1], candidates[0]}
		again := Best(p, reversed)
		require.NotNil(t, again)
		assert.Equal(t, "older", again.DiscountID)
	})

	t.Run("full tie keeps first candidate", func(t *testing.T) {
		candidates := []Discount{
			{ID: "first", Type: TypeFixedAmount, Value: dec("20"), CreatedAt: earlier},
			{ID: "second", Type: TypeFixedAmount, Value: dec("20"), CreatedAt: earlier},
		}

		got := Best(p, candidates)
		require.NotNil(t, got)
		assert.Equal(t, "first", got.DiscountID)
	})
}
