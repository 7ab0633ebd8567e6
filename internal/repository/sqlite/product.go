package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/martiv/eshop-api/internal/domain"
)

// productRepo implements domain.ProductRepository using SQLite. Options and
// images are stored as JSON arrays in TEXT columns; decimals as their
// string form.
type productRepo struct {
	db *sql.DB
}

const productColumns = "id, category_id, brand, name, description, options, price, discount, images, created_at, updated_at"

func (r *productRepo) Create(ctx context.Context, product *domain.Product) error {
	options, err := encodeStrings(product.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	images, err := encodeStrings(product.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO products (category_id, brand, name, description, options, price, discount, images, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.CategoryID, product.Brand, product.Name, product.Description,
		options, product.Price.String(), decimalPtr(product.Discount), images, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	product.ID = id
	product.CreatedAt = now
	product.UpdatedAt = now
	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = ?", id)

	product, err := scanProduct(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	variants, err := r.variantsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Variants = variants
	return product, nil
}

func (r *productRepo) List(ctx context.Context) ([]domain.Product, error) {
	return r.list(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
}

func (r *productRepo) ListByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	return r.list(ctx,
		"SELECT "+productColumns+" FROM products WHERE category_id = ? ORDER BY id", categoryID)
}

func (r *productRepo) list(ctx context.Context, query string, args ...any) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range products {
		variants, err := r.variantsFor(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Variants = variants
	}
	return products, nil
}

func (r *productRepo) Update(ctx context.Context, product *domain.Product) error {
	return r.update(ctx, r.db, product)
}

// UpdateWithVariants persists the product fields, its image list, and the
// variant plan as one transaction. Inserted variants get their assigned IDs
// written back into the plan.
func (r *productRepo) UpdateWithVariants(ctx context.Context, product *domain.Product, plan domain.VariantPlan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.update(ctx, tx, product); err != nil {
		return err
	}

	for _, v := range plan.Deletes {
		if _, err := tx.ExecContext(ctx, "DELETE FROM variants WHERE id = ? AND product_id = ?", v.ID, product.ID); err != nil {
			return fmt.Errorf("delete variant %d: %w", v.ID, err)
		}
	}

	for _, v := range plan.Updates {
		if _, err := tx.ExecContext(ctx,
			"UPDATE variants SET name = ?, price = ?, image = ? WHERE id = ? AND product_id = ?",
			v.Name, v.Price.String(), v.Image, v.ID, product.ID,
		); err != nil {
			return fmt.Errorf("update variant %d: %w", v.ID, err)
		}
	}

	for i := range plan.Inserts {
		v := &plan.Inserts[i]
		result, err := tx.ExecContext(ctx,
			"INSERT INTO variants (product_id, name, price, image) VALUES (?, ?, ?, ?)",
			product.ID, v.Name, v.Price.String(), v.Image,
		)
		if err != nil {
			return fmt.Errorf("insert variant: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}
		v.ID = id
		v.ProductID = product.ID
	}

	return tx.Commit()
}

func (r *productRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *productRepo) update(ctx context.Context, db execer, product *domain.Product) error {
	options, err := encodeStrings(product.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	images, err := encodeStrings(product.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}

	now := time.Now().UTC()
	result, err := db.ExecContext(ctx,
		`UPDATE products SET category_id = ?, brand = ?, name = ?, description = ?,
		 options = ?, price = ?, discount = ?, images = ?, updated_at = ?
		 WHERE id = ?`,
		product.CategoryID, product.Brand, product.Name, product.Description,
		options, product.Price.String(), decimalPtr(product.Discount), images, now, product.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	product.UpdatedAt = now
	return nil
}

func (r *productRepo) variantsFor(ctx context.Context, productID int64) ([]domain.Variant, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, product_id, name, price, image FROM variants WHERE product_id = ? ORDER BY id", productID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.Variant
	for rows.Next() {
		var v domain.Variant
		var price string
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Name, &price, &v.Image); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		v.Price, err = decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("parse variant price: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	var options, images, price string
	var discount sql.NullString
	if err := row.Scan(&p.ID, &p.CategoryID, &p.Brand, &p.Name, &p.Description,
		&options, &price, &discount, &images, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	var err error
	if p.Options, err = decodeStrings(options); err != nil {
		return nil, fmt.Errorf("decode options: %w", err)
	}
	if p.Images, err = decodeStrings(images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	if discount.Valid {
		d, err := decimal.NewFromString(discount.String)
		if err != nil {
			return nil, fmt.Errorf("parse discount: %w", err)
		}
		p.Discount = &d
	}
	return p, nil
}

func encodeStrings(list []string) (string, error) {
	if list == nil {
		return "[]", nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeStrings(s string) ([]string, error) {
	if s == "" || s == "[]" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(s), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func decimalPtr(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
