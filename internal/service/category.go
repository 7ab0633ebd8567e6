package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/martiv/eshop-api/internal/domain"
)

// CreateCategoryInput carries a category submission with an optional image.
type CreateCategoryInput struct {
	Name        string
	Description string
	Image       *ImageUpload
}

// UpdateCategoryInput carries a category update. Image replaces the stored
// image; RemoveImage drops it without a replacement. Image wins when both
// are set.
type UpdateCategoryInput struct {
	Name        string
	Description string
	Image       *ImageUpload
	RemoveImage bool
}

// CategoryService orchestrates category CRUD against the record store and
// the blob store, under the same ordering rules as products: write before
// link, unlink before delete.
type CategoryService struct {
	categories domain.CategoryRepository
	files      domain.BlobStore
	baseURL    string
	locks      *keyedMutex
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(categories domain.CategoryRepository, files domain.BlobStore, baseURL string) *CategoryService {
	return &CategoryService{
		categories: categories,
		files:      files,
		baseURL:    baseURL,
		locks:      newKeyedMutex(),
	}
}

// GetByID returns a category by ID.
func (s *CategoryService) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	return s.categories.GetByID(ctx, id)
}

// List returns all categories.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

// Create validates and persists a new category and writes its image, if
// any, into the derived folder. The row is created first because the
// folder name embeds the assigned ID.
func (s *CategoryService) Create(ctx context.Context, in CreateCategoryInput) (*domain.Category, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: category name is required", domain.ErrInvalidInput)
	}

	category := &domain.Category{Name: in.Name, Description: in.Description}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	if in.Image != nil {
		path := CategoryFolder(in.Name, category.ID) + "/" + GenerateFileName(in.Image.Filename)
		if err := s.files.Save(ctx, path, in.Image.Data); err != nil {
			s.rollbackCreate(ctx, category.ID)
			return nil, fmt.Errorf("write category image: %w", err)
		}
		category.Image = path
		if err := s.categories.Update(ctx, category); err != nil {
			deleteBlobs(ctx, s.files, []string{path})
			s.rollbackCreate(ctx, category.ID)
			return nil, fmt.Errorf("persist category: %w", err)
		}
	}

	return category, nil
}

func (s *CategoryService) rollbackCreate(ctx context.Context, id int64) {
	if err := s.categories.Delete(ctx, id); err != nil {
		slog.Error("rollback created category", "id", id, "error", err)
	}
}

// Update renames a category and replaces or removes its image. A new image
// lands in the folder derived from the incoming name; like products, a
// rename leaves previously stored files at their old paths.
func (s *CategoryService) Update(ctx context.Context, id int64, in UpdateCategoryInput) (*domain.Category, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: category name is required", domain.ErrInvalidInput)
	}

	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldImage := NormalizeRef(category.Image, s.baseURL)
	category.Name = in.Name
	category.Description = in.Description

	var written string
	switch {
	case in.Image != nil:
		written = CategoryFolder(in.Name, id) + "/" + GenerateFileName(in.Image.Filename)
		if err := s.files.Save(ctx, written, in.Image.Data); err != nil {
			return nil, fmt.Errorf("write category image: %w", err)
		}
		category.Image = written
	case in.RemoveImage:
		category.Image = ""
	}

	if err := s.categories.Update(ctx, category); err != nil {
		if written != "" {
			deleteBlobs(ctx, s.files, []string{written})
		}
		return nil, fmt.Errorf("persist category: %w", err)
	}

	if oldImage != "" && category.Image != oldImage {
		deleteBlobs(ctx, s.files, []string{oldImage})
	}

	return category, nil
}

// Delete removes a category row (its products and their variants cascade)
// and then the whole category folder, including every product folder
// beneath it.
func (s *CategoryService) Delete(ctx context.Context, id int64) (*domain.Category, error) {
	s.locks.Lock(id)
	defer s.locks.Unlock(id)

	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.categories.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("delete category: %w", err)
	}

	folder := CategoryFolder(category.Name, category.ID)
	if err := s.files.DeleteTree(ctx, folder); err != nil {
		slog.Error("delete category folder", "folder", folder, "error", err)
	}

	return category, nil
}
