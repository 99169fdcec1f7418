// Package catalog manages the product categories and products administered
// through the storefront backend.
package catalog

import (
	"context"
	"errors"
)

// Messages returned to callers.
const (
	MsgCategoryExists   = "Category already exists"
	MsgCategoryNotFound = "Category not found"
	MsgProductNotFound  = "Product not found"
)

// ErrDuplicateName is returned by [CategoryRepository.Create] and
// [CategoryRepository.Update] when the name is taken.
var ErrDuplicateName = errors.New("duplicate category name")

// Category groups products. Names are stored lowercased and are unique.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product belongs to exactly one category.
type Product struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// ProductFilter narrows [ProductRepository.List]. Empty fields match
// everything; set fields match by case-insensitive substring.
type ProductFilter struct {
	Name     string
	Category string
}

// CategoryRepository persists categories. Missing rows are reported as
// storefront.ErrRecordNotFound.
type CategoryRepository interface {
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, id int64) (Category, error)
	GetByName(ctx context.Context, name string) (Category, error)
	Update(ctx context.Context, c Category) error
	// Delete removes the category together with its products.
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, search string) ([]Category, error)
}

// ProductRepository persists products with their category resolved.
type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id int64) (Product, error)
	Update(ctx context.Context, p Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ProductFilter) ([]Product, error)
}

// CategoryRequest is the body of category create and update.
type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// ProductRequest is the body of product create and update.
type ProductRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	CategoryName string `json:"categoryName" validate:"required,max=200"`
}
