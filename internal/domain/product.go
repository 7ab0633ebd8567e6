package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product belongs to exactly one category. Options preserve insertion order
// for display. Images is the ordered list of store-relative paths owned by
// the product; every entry must exist in the BlobStore at the moment the
// record is persisted.
type Product struct {
	ID          int64
	CategoryID  int64
	Brand       string
	Name        string
	Description string
	Options     []string
	Price       decimal.Decimal
	Discount    *decimal.Decimal
	Images      []string
	Variants    []Variant
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Variant is a purchasable variation of a product. ID 0 means the variant
// has not been persisted yet. Image, if set, is a store-relative path owned
// exclusively by this variant.
type Variant struct {
	ID        int64
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Image     string
}

// VariantPlan is the record-level outcome of reconciling a product's stored
// variants against an incoming descriptor list. It is applied together with
// the product update in a single transaction.
type VariantPlan struct {
	Deletes []Variant
	Updates []Variant
	Inserts []Variant
}

// ProductRepository defines persistence operations for products and their
// variant rows.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	// GetByID returns the product with its variants hydrated.
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	ListByCategory(ctx context.Context, categoryID int64) ([]Product, error)
	Update(ctx context.Context, product *Product) error
	// UpdateWithVariants persists the product fields, its image list, and the
	// variant plan as one transaction.
	UpdateWithVariants(ctx context.Context, product *Product, plan VariantPlan) error
	Delete(ctx context.Context, id int64) error
}
