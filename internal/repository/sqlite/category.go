package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/martiv/eshop-api/internal/domain"
)

// categoryRepo implements domain.CategoryRepository using SQLite.
type categoryRepo struct {
	db *sql.DB
}

func (r *categoryRepo) Create(ctx context.Context, category *domain.Category) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, description, image, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		category.Name, category.Description, category.Image, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	category.ID = id
	category.CreatedAt = now
	category.UpdatedAt = now
	return nil
}

func (r *categoryRepo) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	c := &domain.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, image, created_at, updated_at
		 FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.Image, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *categoryRepo) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, image, created_at, updated_at
		 FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Image, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *categoryRepo) Update(ctx context.Context, category *domain.Category) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, description = ?, image = ?, updated_at = ?
		 WHERE id = ?`,
		category.Name, category.Description, category.Image, now, category.ID,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	category.UpdatedAt = now
	return nil
}

func (r *categoryRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
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
