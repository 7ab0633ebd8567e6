package domain

import (
	"context"
	"time"
)

// Category groups products and owns the top level of the media folder tree.
// Image, when set, is a store-relative path into the BlobStore.
type Category struct {
	ID          int64
	Name        string
	Description string
	Image       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CategoryRepository defines persistence operations for categories.
// Deleting a category cascades to its products and their variants.
type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	GetByID(ctx context.Context, id int64) (*Category, error)
	List(ctx context.Context) ([]Category, error)
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id int64) error
}
