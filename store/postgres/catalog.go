package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/catalog"
)

// CategoryRepository implements [catalog.CategoryRepository].
type CategoryRepository struct {
	db DBTX
}

func NewCategoryRepository(db DBTX) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, c *catalog.Category) error {
	err := r.db.QueryRowContext(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id`, c.Name).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrDuplicateName
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *CategoryRepository) get(ctx context.Context, query string, arg any) (catalog.Category, error) {
	var c catalog.Category
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Category{}, storefront.ErrRecordNotFound
		}
		return catalog.Category{}, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int64) (catalog.Category, error) {
	return r.get(ctx, `SELECT id, name FROM categories WHERE id = $1`, id)
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (catalog.Category, error) {
	return r.get(ctx, `SELECT id, name FROM categories WHERE name = $1`, name)
}

func (r *CategoryRepository) Update(ctx context.Context, c catalog.Category) error {
	res, err := r.db.ExecContext(ctx, `UPDATE categories SET name = $2 WHERE id = $1`, c.ID, c.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return catalog.ErrDuplicateName
		}
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, storefront.ErrRecordNotFound)
}

// Delete removes the category; its products cascade.
func (r *CategoryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, storefront.ErrRecordNotFound)
}

func (r *CategoryRepository) List(ctx context.Context, search string) ([]catalog.Category, error) {
	query :=
		`SELECT id, name FROM categories
		 WHERE $1 = '' OR strpos(name, $1) > 0
		 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, search)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// ProductRepository implements [catalog.ProductRepository].
type ProductRepository struct {
	db DBTX
}

func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

const productSelect = `SELECT p.id, p.name, c.id, c.name
	FROM products p JOIN categories c ON c.id = p.category_id`

func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO products (name, category_id) VALUES ($1, $2) RETURNING id`,
		p.Name, p.Category.ID).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (catalog.Product, error) {
	var p catalog.Product
	err := r.db.QueryRowContext(ctx, productSelect+` WHERE p.id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Category.ID, &p.Category.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Product{}, storefront.ErrRecordNotFound
		}
		return catalog.Product{}, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) Update(ctx context.Context, p catalog.Product) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = $2, category_id = $3 WHERE id = $1`,
		p.ID, p.Name, p.Category.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, storefront.ErrRecordNotFound)
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, storefront.ErrRecordNotFound)
}

func (r *ProductRepository) List(ctx context.Context, f catalog.ProductFilter) ([]catalog.Product, error) {
	query := productSelect + `
		WHERE ($1 = '' OR strpos(lower(p.name), lower($1)) > 0)
		  AND ($2 = '' OR strpos(c.name, $2) > 0)
		ORDER BY p.id`

	rows, err := r.db.QueryContext(ctx, query, f.Name, f.Category)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []catalog.Product
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category.ID, &p.Category.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
