package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/catalog"
	"github.com/MrEthical07/storefront/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *catalog.Service {
	store := memory.NewCatalog()
	return catalog.NewService(store.Categories(), store.Products(), nil)
}

func requireDomainError(t *testing.T, err error, kind storefront.Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, storefront.KindOf(err))
	assert.Equal(t, msg, storefront.MessageOf(err))
}

func TestCreateCategoryLowercasesAndRejectsDuplicates(t *testing.T) {
	s := newService()
	ctx := context.Background()

	c, err := s.CreateCategory(ctx, catalog.CategoryRequest{Name: " Electronics "})
	require.NoError(t, err)
	assert.Equal(t, "electronics", c.Name)
	assert.NotZero(t, c.ID)

	_, err = s.CreateCategory(ctx, catalog.CategoryRequest{Name: "ELECTRONICS"})
	requireDomainError(t, err, storefront.KindConflict, catalog.MsgCategoryExists)

	_, err = s.CreateCategory(ctx, catalog.CategoryRequest{Name: "   "})
	assert.Equal(t, storefront.KindBadRequest, storefront.KindOf(err))
}

func TestUpdateCategory(t *testing.T) {
	s := newService()
	ctx := context.Background()
	books, err := s.CreateCategory(ctx, catalog.CategoryRequest{Name: "books"})
	require.NoError(t, err)
	_, err = s.CreateCategory(ctx, catalog.CategoryRequest{Name: "games"})
	require.NoError(t, err)

	_, err = s.UpdateCategory(ctx, 99, catalog.CategoryRequest{Name: "x"})
	requireDomainError(t, err, storefront.KindNotFound, catalog.MsgCategoryNotFound)

	_, err = s.UpdateCategory(ctx, books.ID, catalog.CategoryRequest{Name: "Games"})
	requireDomainError(t, err, storefront.KindConflict, catalog.MsgCategoryExists)

	updated, err := s.UpdateCategory(ctx, books.ID, catalog.CategoryRequest{Name: "Comics"})
	require.NoError(t, err)
	assert.Equal(t, "comics", updated.Name)

	got, err := s.GetCategory(ctx, books.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestListCategoriesSearch(t *testing.T) {
	s := newService()
	ctx := context.Background()
	for _, n := range []string{"kitchen", "kids", "garden"} {
		_, err := s.CreateCategory(ctx, catalog.CategoryRequest{Name: n})
		require.NoError(t, err)
	}

	all, err := s.ListCategories(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	some, err := s.ListCategories(ctx, "KI")
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "kitchen", some[0].Name)
	assert.Equal(t, "kids", some[1].Name)
}

func TestCreateProductCreatesMissingCategory(t *testing.T) {
	s := newService()
	ctx := context.Background()

	p, err := s.CreateProduct(ctx, catalog.ProductRequest{Name: "Kettle", CategoryName: "Kitchen"})
	require.NoError(t, err)
	assert.Equal(t, "kitchen", p.Category.Name)

	q, err := s.CreateProduct(ctx, catalog.ProductRequest{Name: "Toaster", CategoryName: "kitchen"})
	require.NoError(t, err)
	assert.Equal(t, p.Category.ID, q.Category.ID)

	cats, err := s.ListCategories(ctx, "")
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	s := newService()
	ctx := context.Background()
	p, err := s.CreateProduct(ctx, catalog.ProductRequest{Name: "Kettle", CategoryName: "kitchen"})
	require.NoError(t, err)

	_, err = s.UpdateProduct(ctx, 42, catalog.ProductRequest{Name: "x", CategoryName: "y"})
	requireDomainError(t, err, storefront.KindNotFound, catalog.MsgProductNotFound)

	moved, err := s.UpdateProduct(ctx, p.ID, catalog.ProductRequest{Name: "Smart Kettle", CategoryName: "Gadgets"})
	require.NoError(t, err)
	assert.Equal(t, "Smart Kettle", moved.Name)
	assert.Equal(t, "gadgets", moved.Category.Name)

	require.NoError(t, s.DeleteProduct(ctx, p.ID))
	_, err = s.GetProduct(ctx, p.ID)
	requireDomainError(t, err, storefront.KindNotFound, catalog.MsgProductNotFound)
	requireDomainError(t, s.DeleteProduct(ctx, p.ID), storefront.KindNotFound, catalog.MsgProductNotFound)
}

func TestListProductsFilters(t *testing.T) {
	s := newService()
	ctx := context.Background()
	seed := []catalog.ProductRequest{
		{Name: "Red Kettle", CategoryName: "kitchen"},
		{Name: "Blue Kettle", CategoryName: "kitchen"},
		{Name: "Red Shovel", CategoryName: "garden"},
	}
	for _, r := range seed {
		_, err := s.CreateProduct(ctx, r)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter catalog.ProductFilter
		want   []string
	}{
		{"all", catalog.ProductFilter{}, []string{"Red Kettle", "Blue Kettle", "Red Shovel"}},
		{"by name", catalog.ProductFilter{Name: "red"}, []string{"Red Kettle", "Red Shovel"}},
		{"by category", catalog.ProductFilter{Category: "KIT"}, []string{"Red Kettle", "Blue Kettle"}},
		{"both", catalog.ProductFilter{Name: "red", Category: "garden"}, []string{"Red Shovel"}},
		{"none", catalog.ProductFilter{Name: "lamp"}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.ListProducts(ctx, tc.filter)
			require.NoError(t, err)
			var names []string
			for _, p := range got {
				names = append(names, p.Name)
			}
			assert.Equal(t, tc.want, names)
		})
	}
}

func TestDeleteCategoryRemovesProducts(t *testing.T) {
	s := newService()
	ctx := context.Background()
	p, err := s.CreateProduct(ctx, catalog.ProductRequest{Name: "Kettle", CategoryName: "kitchen"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteCategory(ctx, p.Category.ID))
	_, err = s.GetProduct(ctx, p.ID)
	requireDomainError(t, err, storefront.KindNotFound, catalog.MsgProductNotFound)

	err = s.DeleteCategory(ctx, p.Category.ID)
	requireDomainError(t, err, storefront.KindNotFound, catalog.MsgCategoryNotFound)
}

type brokenCategories struct{ catalog.CategoryRepository }

func (brokenCategories) List(context.Context, string) ([]catalog.Category, error) {
	return nil, errors.New("connection reset")
}

func TestRepositoryFailuresAreInternal(t *testing.T) {
	store := memory.NewCatalog()
	s := catalog.NewService(brokenCategories{store.Categories()}, store.Products(), nil)

	_, err := s.ListCategories(context.Background(), "")
	requireDomainError(t, err, storefront.KindInternal, "Internal server error")
}
