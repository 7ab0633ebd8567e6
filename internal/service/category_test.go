package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/martiv/eshop-api/internal/domain"
	"github.com/martiv/eshop-api/internal/service"
)

func TestCategoryService_CreateWithImage(t *testing.T) {
	env := newTestEnv(t)

	category, err := env.categories.Create(context.Background(), service.CreateCategoryInput{
		Name:        "Kitchen Ware",
		Description: "Mugs and such",
		Image:       &service.ImageUpload{Filename: "banner.png", Data: []byte("png")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if category.ID == 0 {
		t.Fatal("expected category ID to be set")
	}

	folder := service.CategoryFolder("Kitchen Ware", category.ID)
	if !strings.HasPrefix(category.Image, folder+"/") {
		t.Fatalf("expected image under %s, got %s", folder, category.Image)
	}
	mustExist(t, env, category.Image)
}

func TestCategoryService_Create_RequiresName(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.categories.Create(context.Background(), service.CreateCategoryInput{Name: ""})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCategoryService_Update_ReplacesImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	category, err := env.categories.Create(ctx, service.CreateCategoryInput{
		Name:  "Cat",
		Image: &service.ImageUpload{Filename: "old.png", Data: []byte("old")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	old := category.Image

	updated, err := env.categories.Update(ctx, category.ID, service.UpdateCategoryInput{
		Name:  "Cat",
		Image: &service.ImageUpload{Filename: "new.png", Data: []byte("new")},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.Image == old {
		t.Fatal("expected a new image path")
	}
	mustExist(t, env, updated.Image)
	mustNotExist(t, env, old)
}

func TestCategoryService_Update_RemoveImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	category, err := env.categories.Create(ctx, service.CreateCategoryInput{
		Name:  "Cat",
		Image: &service.ImageUpload{Filename: "old.png", Data: []byte("old")},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	old := category.Image

	updated, err := env.categories.Update(ctx, category.ID, service.UpdateCategoryInput{
		Name:        "Cat",
		RemoveImage: true,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if updated.Image != "" {
		t.Fatalf("expected empty image, got %s", updated.Image)
	}
	mustNotExist(t, env, old)
}

func TestCategoryService_Update_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.categories.Update(context.Background(), 999, service.UpdateCategoryInput{Name: "X"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCategoryService_Delete_Cascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	category := seedCategory(t, env, "Cat")
	product, err := env.products.Create(ctx, service.CreateProductInput{
		ProductFields: service.ProductFields{Name: "Mug", Description: "d", Price: price("5")},
		CategoryID:    category.ID,
		Images:        []service.ImageUpload{{Filename: "a.png", Data: []byte("a")}},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	if _, err := env.categories.Delete(ctx, category.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := env.categories.GetByID(ctx, category.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for category, got %v", err)
	}
	if _, err := env.products.GetByID(ctx, product.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for product, got %v", err)
	}
	mustNotExist(t, env, product.Images[0])
}
