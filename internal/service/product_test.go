package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/martiv/eshop-api/internal/domain"
	"github.com/martiv/eshop-api/internal/repository/sqlite"
	"github.com/martiv/eshop-api/internal/service"
	"github.com/martiv/eshop-api/internal/storage"
)

type testEnv struct {
	db         *sqlite.DB
	files      *storage.Store
	categories *service.CategoryService
	products   *service.ProductService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	files, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("New store: %v", err)
	}

	return &testEnv{
		db:         db,
		files:      files,
		categories: service.NewCategoryService(db.Categories(), files, testBaseURL),
		products:   service.NewProductService(db.Products(), db.Categories(), files, testBaseURL),
	}
}

func seedCategory(t *testing.T, env *testEnv, name string) *domain.Category {
	t.Helper()
	category, err := env.categories.Create(context.Background(), service.CreateCategoryInput{Name: name})
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	return category
}

func mustExist(t *testing.T, env *testEnv, path string) {
	t.Helper()
	ok, err := env.files.Exists(context.Background(), path)
	if err != nil {
		t.Fatalf("Exists(%s): %v", path, err)
	}
	if !ok {
		t.Fatalf("expected file %s to exist", path)
	}
}

func mustNotExist(t *testing.T, env *testEnv, path string) {
	t.Helper()
	ok, err := env.files.Exists(context.Background(), path)
	if err != nil {
		t.Fatalf("Exists(%s): %v", path, err)
	}
	if ok {
		t.Fatalf("expected file %s to be gone", path)
	}
}

func TestProductService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	category := seedCategory(t, env, "Kitchen Ware")

	product, err := env.products.Create(ctx, service.CreateProductInput{
		ProductFields: service.ProductFields{
			Name:        "Blue Mug",
			Description: "A mug",
			Options:     []string{"350ml", "500ml"},
			Price:       price("12.50"),
		},
		CategoryID: category.ID,
		Images: []service.ImageUpload{
			{Filename: "front.png", Data: []byte("png-bytes")},
		},
		Variants: []service.VariantInput{
			{Name: "Large", Price: price("14")},
		},
		VariantUploads: service.VariantUploads{
			ByID:       map[int64]service.ImageUpload{},
			ByNewIndex: map[int]service.ImageUpload{0: {Filename: "large.png", Data: []byte("v")}},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if product.ID == 0 {
		t.Fatal("expected product ID to be set")
	}

	folder := service.ProductFolder(category.Name, category.ID, "Blue Mug", product.ID)
	if len(product.Images) != 1 || !strings.HasPrefix(product.Images[0], folder+"/") {
		t.Fatalf("expected one image under %s, got %v", folder, product.Images)
	}
	mustExist(t, env, product.Images[0])

	if len(product.Variants) != 1 {
		t.Fatalf("expected 1 variant, got %d", len(product.Variants))
	}
	if product.Variants[0].ID == 0 {
		t.Fatal("expected variant ID to be set")
	}
	mustExist(t, env, product.Variants[0].Image)
}

func TestProductService_Create_MissingCategory(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.products.Create(context.Background(), service.CreateProductInput{
		ProductFields: service.ProductFields{Name: "X", Description: "Y", Price: price("1")},
		CategoryID:    999,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProductService_Create_Validation(t *testing.T) {
	env := newTestEnv(t)
	category := seedCategory(t, env, "Stuff")

	cases := []service.ProductFields{
		{Name: "", Description: "d", Price: price("1")},
		{Name: "n", Description: "", Price: price("1")},
		{Name: "n", Description: "d", Price: price("-1")},
	}
	for i, fields := range cases {
		_, err := env.products.Create(context.Background(), service.CreateProductInput{
			ProductFields: fields,
			CategoryID:    category.ID,
		})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("case %d: expected ErrInvalidInput, got %v", i, err)
		}
	}
}

func TestProductService_Update_RemovesUnkeptImages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	category := seedCategory(t, env, "Kitchen Ware")

	product, err := env.products.Create(ctx, service.CreateProductInput{
		ProductFields: service.ProductFields{Name: "Mug", Description: "d", Price: price("5")},
		CategoryID:    category.ID,
		Images: []service.ImageUpload{
			{Filename: "a.png", Data: []byte("a")},
			{Filename: "b.png", Data: []byte("b")},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	keep, drop := product.Images[0], product.Images[1]

	updated, err := env.products.Update(ctx, product.ID, service.UpdateProductInput{
		ProductFields: service.ProductFields{Name: "Mug", Description: "d", Price: price("5")},
		KeptImages:    []string{keep},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(updated.Images) != 1 || updated.Images[0] != keep {
		t.Fatalf("expected images [%s], got %v", keep, updated.Images)
	}
	mustExist(t, env, keep)
	mustNotExist(t, env, drop)
}

func TestProductService_Update_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	category := seedCategory(t, env, "Kitchen Ware")

	product, err := env.products.Create(ctx, service.CreateProductInput{
		ProductFields: service.ProductFields{Name: "Mug", Description: "d", Price: price("5")},
		CategoryID:    category.ID,
		Images:        []service.ImageUpload{{Filename: "a.png", Data: []byte("a")}},
		Variants:      []service.VariantInput{{Name: "S", Price: price("4")}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	in := service.UpdateProductInput{
		ProductFields: service.ProductFields{Name: "Mug", Description: "d", Price: price("5")},
		KeptImages:    product.Images,
		Variants:      []service.VariantInput{{ID: product.Variants[0].ID, Name: "S", Price: price("4")}},
	}

	first, err := env.products.Update(ctx, product.ID, in)
	if err != nil {
		t.Fatalf("first Update: %v", err)
	}
	second, err := env.products.Update(ctx, product.ID, in)
	if err != nil {
		t.Fatalf("second Update: %v", err)
	}

	if len(first.Images) != 1 || len(second.Images) != 1 || first.Images[0] != second.Images[0] {
		t.Fatalf("expected stable image list, got %v then %v", first.Images, second.Images)
	}
	if len(second.Variants) != 1 || second.Variants[0].ID != product.Variants[0].ID {
		t.Fatalf("expected stable variant set, got %v", second.Variants)
	}
}

func TestProductService_Update_RenameQuirk(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	category := seedCategory(t, env, "Cat")

	product, err := env.products.Create(ctx, service.CreateProductInput{
		ProductFields: service.ProductFields{Name: "Blue Mug", Description: "d", Price: price("5")},
		CategoryID:    category.ID,
		Images:        []service.ImageUpload{{Filename: "a.png", Data: []byte("a")}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	oldRef := product.Images[0]
	oldFolder := service.ProductFolder(category.Name, category.ID, "Blue Mug", product.ID)
	if !strings.HasPrefix(oldRef, oldFolder+"/") {
		t.Fatalf("expected %s under %s", oldRef, oldFolder)
	}

	updated, err := env.products.Update(ctx, product.ID, service.UpdateProductInput{
		ProductFields: service.ProductFields{Name: "Sky Mug", Description: "d", Price: price("5")},
		KeptImages:    []string{oldRef},
		NewImages:     []service.ImageUpload{{Filename: "b.png", Data: []byte("b")}},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// The kept file stays at its old path; the new upload lands in the
	// folder derived from the new name.
	newFolder := service.ProductFolder(category.Name, category.ID, "Sky Mug", product.ID)
	if updated.Images[0] != oldRef {
		t.Fatalf("expected kept image %s, got %s", oldRef, updated.Images[0])
	}
	if !strings.HasPrefix(updated.Images[1], newFolder+"/") {
		t.Fatalf("expected new image under %s, got %s", newFolder, updated.Images[1])
	}
	mustExist(t, env, oldRef)
	mustExist(t, env, updated.Images[1])
}

func TestProductService_Update_VariantDeletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	category := seedCategory(t, env, "Cat")

	product, err := env.products.Create(ctx, service.CreateProductInput{
		ProductFields: service.ProductFields{Name: "Shirt", Description: "d", Price: price("5")},
		CategoryID:    category.ID,
		Variants: []service.VariantInput{
			{Name: "M", Price: price("5")},
			{Name: "S", Price: price("4")},
		},
		VariantUploads: service.VariantUploads{
			ByID:       map[int64]service.ImageUpload{},
			ByNewIndex: map[int]service.ImageUpload{0: {Filename: "m.png", Data: []byte("m")}},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	withImage, without := product.Variants[0], product.Variants[1]

	updated, err := env.products.Update(ctx, product.ID, service.UpdateProductInput{
		ProductFields: service.ProductFields{Name: "Shirt", Description: "d", Price: price("5")},
		Variants:      []service.VariantInput{{ID: without.ID, Name: "L", Price: price("6")}},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	if len(updated.Variants) != 1 || updated.Variants[0].ID != without.ID {
		t.Fatalf("expected only variant %d to remain, got %v", without.ID, updated.Variants)
	}
	if updated.Variants[0].Name != "L" {
		t.Fatalf("expected updated name L, got %s", updated.Variants[0].Name)
	}
	mustNotExist(t, env, withImage.Image)
}

func TestProductService_Update_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.products.Update(context.Background(), 12345, service.UpdateProductInput{
		ProductFields: service.ProductFields{Name: "n", Description: "d", Price: price("1")},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProductService_Delete_Cascade(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	category := seedCategory(t, env, "Cat")

	product, err := env.products.Create(ctx, service.CreateProductInput{
		ProductFields: service.ProductFields{Name: "Mug", Description: "d", Price: price("5")},
		CategoryID:    category.ID,
		Images:        []service.ImageUpload{{Filename: "a.png", Data: []byte("a")}},
		Variants:      []service.VariantInput{{Name: "S", Price: price("4")}},
		VariantUploads: service.VariantUploads{
			ByID:       map[int64]service.ImageUpload{},
			ByNewIndex: map[int]service.ImageUpload{0: {Filename: "s.png", Data: []byte("s")}},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := env.products.Delete(ctx, product.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := env.products.GetByID(ctx, product.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	var count int
	if err := env.db.SqlDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM variants WHERE product_id = ?", product.ID).Scan(&count); err != nil {
		t.Fatalf("count variants: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 orphan variant rows, got %d", count)
	}

	mustNotExist(t, env, product.Images[0])
	mustNotExist(t, env, product.Variants[0].Image)
}

// failingStore wraps a real store but fails every Save.
type failingStore struct {
	domain.BlobStore
}

func (f *failingStore) Save(ctx context.Context, path string, data []byte) error {
	return errors.New("disk full")
}

func TestProductService_Update_BlobFailureLeavesRecordUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	category := seedCategory(t, env, "Cat")

	product, err := env.products.Create(ctx, service.CreateProductInput{
		ProductFields: service.ProductFields{Name: "Mug", Description: "d", Price: price("5")},
		CategoryID:    category.ID,
		Images:        []service.ImageUpload{{Filename: "a.png", Data: []byte("a")}},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	broken := service.NewProductService(env.db.Products(), env.db.Categories(),
		&failingStore{BlobStore: env.files}, testBaseURL)

	_, err = broken.Update(ctx, product.ID, service.UpdateProductInput{
		ProductFields: service.ProductFields{Name: "Renamed", Description: "d", Price: price("9")},
		KeptImages:    nil,
		NewImages:     []service.ImageUpload{{Filename: "b.png", Data: []byte("b")}},
	})
	if err == nil {
		t.Fatal("expected update to fail on blob write")
	}

	// The record must be untouched: same name, same image list, and the
	// unkept image must not have been deleted.
	got, err := env.products.GetByID(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Mug" {
		t.Fatalf("expected name Mug, got %s", got.Name)
	}
	if len(got.Images) != 1 || got.Images[0] != product.Images[0] {
		t.Fatalf("expected image list %v, got %v", product.Images, got.Images)
	}
	mustExist(t, env, product.Images[0])
}
