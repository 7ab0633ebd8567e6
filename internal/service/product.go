package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/martiv/eshop-api/internal/domain"
)

// ProductFields are the plain scalar fields shared by create and update.
type ProductFields struct {
	Brand       string
	Name        string
	Description string
	Options     []string
	Price       decimal.Decimal
	Discount    *decimal.Decimal
}

// CreateProductInput carries a full product submission including uploads.
type CreateProductInput struct {
	ProductFields
	CategoryID     int64
	Images         []ImageUpload
	Variants       []VariantInput
	VariantUploads VariantUploads
}

// UpdateProductInput carries a product update. KeptImages lists the stored
// images the client wants to retain (relative or absolute form); everything
// else currently stored is deleted. NewImages are appended after the kept
// ones.
type UpdateProductInput struct {
	ProductFields
	KeptImages     []string
	NewImages      []ImageUpload
	Variants       []VariantInput
	VariantUploads VariantUploads
}

// ProductService orchestrates product CRUD against the record store and the
// blob store, keeping both sides consistent: a record is never persisted
// referencing a file that was not written first, and no file is deleted
// before the commit that drops its reference.
type ProductService struct {
	products   domain.ProductRepository
	categories domain.CategoryRepository
	files      domain.BlobStore
	baseURL    string
	locks      *keyedMutex
}

// NewProductService creates a new ProductService. baseURL is the public
// prefix under which media paths are served; image references arriving in
// that absolute form are normalized back to store-relative paths.
func NewProductService(products domain.ProductRepository, categories domain.CategoryRepository, files domain.BlobStore, baseURL string) *ProductService {
	return &ProductService{
		products:   products,
		categories: categories,
		files:      files,
		baseURL:    baseURL,
		locks:      newKeyedMutex(),
	}
}

// GetByID returns a product with its variants.
func (s *ProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.GetByID(ctx, id)
}

// List returns all products.
func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

// ListByCategory returns all products belonging to a category.
func (s *ProductService) ListByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	return s.products.ListByCategory(ctx, categoryID)
}

// Create validates and persists a new product, writes its uploaded images
// into the derived folder, and links them. The row is created first because
// the folder name embeds the assigned ID.
func (s *ProductService) Create(ctx context.Context, in CreateProductInput) (*domain.Product, error) {
	if err := validateProductFields(in.ProductFields); err != nil {
		return nil, err
	}

	category, err := s.categories.GetByID(ctx, in.CategoryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("category %d: %w", in.CategoryID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}

	product := &domain.Product{
		CategoryID:  in.CategoryID,
		Brand:       in.Brand,
		Name:        in.Name,
		Description: in.Description,
		Options:     in.Options,
		Price:       in.Price,
		Discount:    in.Discount,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	folder := ProductFolder(category.Name, category.ID, in.Name, product.ID)
	imagePlan := PlanImages(nil, nil, in.Images, folder, s.baseURL)
	variantPlan, err := PlanVariants(nil, in.Variants, in.VariantUploads, folder, s.baseURL)
	if err != nil {
		s.rollbackCreate(ctx, product.ID, nil)
		return nil, err
	}

	writes := append(append([]ImageWrite{}, imagePlan.Writes...), variantPlan.FileWrites...)
	if err := writeBlobs(ctx, s.files, writes); err != nil {
		s.rollbackCreate(ctx, product.ID, nil)
		return nil, err
	}

	product.Images = imagePlan.Final
	if err := s.products.UpdateWithVariants(ctx, product, variantPlan.VariantPlan); err != nil {
		s.rollbackCreate(ctx, product.ID, writes)
		return nil, fmt.Errorf("persist product: %w", err)
	}

	return s.products.GetByID(ctx, product.ID)
}

// rollbackCreate undoes a partially applied Create: the bare row and any
// files written for it. Both are best effort; leftovers are unlinked.
func (s *ProductService) rollbackCreate(ctx context.Context, productID int64, written []ImageWrite) {
	cleanupBlobs(ctx, s.files, written)
	if err := s.products.Delete(ctx, productID); err != nil {
		slog.Error("rollback created product", "id", productID, "error", err)
	}
}

// Update reconciles a product's stored state with the submitted one.
//
// The target folder is derived from the incoming name fields, so renaming
// the product (or its category having been renamed) moves where new files
// land for this call while previously stored files keep their old paths.
func (s *ProductService) Update(ctx context.Context, id int64, in UpdateProductInput) (*domain.Product, error) {
	if err := validateProductFields(in.ProductFields); err != nil {
		return nil, err
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	category, err := s.categories.GetByID(ctx, product.CategoryID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// A product without a resolvable category is a broken record,
			// not a client mistake; keep it visible in the log.
			slog.Error("product references missing category", "product", id, "category", product.CategoryID)
			return nil, fmt.Errorf("category %d: %w", product.CategoryID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}

	folder := ProductFolder(category.Name, category.ID, in.Name, product.ID)

	imagePlan := PlanImages(product.Images, in.KeptImages, in.NewImages, folder, s.baseURL)
	variantPlan, err := PlanVariants(product.Variants, in.Variants, in.VariantUploads, folder, s.baseURL)
	if err != nil {
		return nil, err
	}

	writes := append(append([]ImageWrite{}, imagePlan.Writes...), variantPlan.FileWrites...)
	if err := writeBlobs(ctx, s.files, writes); err != nil {
		return nil, err
	}

	product.Brand = in.Brand
	product.Name = in.Name
	product.Description = in.Description
	product.Options = in.Options
	product.Price = in.Price
	product.Discount = in.Discount
	product.Images = imagePlan.Final

	if err := s.products.UpdateWithVariants(ctx, product, variantPlan.VariantPlan); err != nil {
		cleanupBlobs(ctx, s.files, writes)
		return nil, fmt.Errorf("persist product: %w", err)
	}

	// Only now that the commit no longer references them.
	deleteBlobs(ctx, s.files, append(imagePlan.Deletions, variantPlan.FileDeletes...))

	return s.products.GetByID(ctx, id)
}

// Delete removes a product row (variants cascade) and then its entire
// media folder. The record goes first so no still-referenced file is ever
// deleted; a failed folder removal leaves only unlinked garbage.
func (s *ProductService) Delete(ctx context.Context, id int64) (*domain.Product, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	category, err := s.categories.GetByID(ctx, product.CategoryID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get category: %w", err)
	}

	if err := s.products.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete product: %w", err)
	}

	if category != nil {
		folder := ProductFolder(category.Name, category.ID, product.Name, product.ID)
		if err := s.files.DeleteTree(ctx, folder); err != nil {
			slog.Error("delete product folder", "folder", folder, "error", err)
		}
	}

	return product, nil
}

func validateProductFields(f ProductFields) error {
	if f.Name == "" {
		return fmt.Errorf("%w: product name is required", domain.ErrInvalidInput)
	}
	if f.Description == "" {
		return fmt.Errorf("%w: product description is required", domain.ErrInvalidInput)
	}
	if f.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	}
	if f.Discount != nil && f.Discount.IsNegative() {
		return fmt.Errorf("%w: discount must not be negative", domain.ErrInvalidInput)
	}
	return nil
}
