// Package catalog is the product-lookup collaborator. The storefront owns
// product CRUD; this service only reads products to denormalize name and
// price into order items and to resolve replacement candidates.
package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound means no product exists with the given id.
var ErrNotFound = errors.New("product not found")

// Product is the slice of the storefront's product document this service
// cares about.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	ImageURL string          `json:"imageUrl,omitempty"`
	Price    decimal.Decimal `json:"price"`
}

// Catalog is the lookup port.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
}
