package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item. The engine only reads products; the
// catalog owns them and their prices.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	// ListCategories returns the catalog's canonical category vocabulary.
	ListCategories(ctx context.Context) ([]string, error)
}
