package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/internal/logging"
)

// Service implements the catalog operations. Mutations are restricted to
// admins at the HTTP layer.
type Service struct {
	categories CategoryRepository
	products   ProductRepository
	log        logging.Logger
}

func NewService(categories CategoryRepository, products ProductRepository, log logging.Logger) *Service {
	if log == nil {
		log = logging.NewNop()
	}
	return &Service{categories: categories, products: products, log: log}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *Service) CreateCategory(ctx context.Context, req CategoryRequest) (Category, error) {
	c := Category{Name: normalizeName(req.Name)}
	if c.Name == "" {
		return Category{}, storefront.BadRequest("Category name is required")
	}
	if err := s.categories.Create(ctx, &c); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return Category{}, storefront.Conflict(MsgCategoryExists)
		}
		return Category{}, storefront.Internal(err)
	}
	s.log.Info(ctx, "category created", "category_id", c.ID, "name", c.Name)
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, req CategoryRequest) (Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return Category{}, err
	}
	c.Name = normalizeName(req.Name)
	if c.Name == "" {
		return Category{}, storefront.BadRequest("Category name is required")
	}
	if err := s.categories.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, ErrDuplicateName):
			return Category{}, storefront.Conflict(MsgCategoryExists)
		case errors.Is(err, storefront.ErrRecordNotFound):
			return Category{}, storefront.NotFound(MsgCategoryNotFound)
		}
		return Category{}, storefront.Internal(err)
	}
	return c, nil
}

func (s *Service) GetCategory(ctx context.Context, id int64) (Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storefront.ErrRecordNotFound) {
			return Category{}, storefront.NotFound(MsgCategoryNotFound)
		}
		return Category{}, storefront.Internal(err)
	}
	return c, nil
}

// ListCategories returns every category, or those whose name contains search.
func (s *Service) ListCategories(ctx context.Context, search string) ([]Category, error) {
	out, err := s.categories.List(ctx, normalizeName(search))
	if err != nil {
		return nil, storefront.Internal(err)
	}
	return out, nil
}

// DeleteCategory removes the category and every product in it.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, storefront.ErrRecordNotFound) {
			return storefront.NotFound(MsgCategoryNotFound)
		}
		return storefront.Internal(err)
	}
	s.log.Info(ctx, "category deleted", "category_id", id)
	return nil
}

// categoryFor resolves a category by name, creating it when missing.
func (s *Service) categoryFor(ctx context.Context, name string) (Category, error) {
	name = normalizeName(name)
	c, err := s.categories.GetByName(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, storefront.ErrRecordNotFound) {
		return Category{}, storefront.Internal(err)
	}

	c = Category{Name: name}
	if err := s.categories.Create(ctx, &c); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			// lost a race with a concurrent create
			c, err = s.categories.GetByName(ctx, name)
			if err == nil {
				return c, nil
			}
		}
		return Category{}, storefront.Internal(err)
	}
	return c, nil
}

// CreateProduct adds a product, creating its category on first use.
func (s *Service) CreateProduct(ctx context.Context, req ProductRequest) (Product, error) {
	if strings.TrimSpace(req.Name) == "" || normalizeName(req.CategoryName) == "" {
		return Product{}, storefront.BadRequest("Product name and category are required")
	}
	c, err := s.categoryFor(ctx, req.CategoryName)
	if err != nil {
		return Product{}, err
	}
	p := Product{Name: strings.TrimSpace(req.Name), Category: c}
	if err := s.products.Create(ctx, &p); err != nil {
		return Product{}, storefront.Internal(err)
	}
	s.log.Info(ctx, "product created", "product_id", p.ID, "category_id", c.ID)
	return p, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req ProductRequest) (Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if strings.TrimSpace(req.Name) == "" || normalizeName(req.CategoryName) == "" {
		return Product{}, storefront.BadRequest("Product name and category are required")
	}
	c, err := s.categoryFor(ctx, req.CategoryName)
	if err != nil {
		return Product{}, err
	}
	p.Name = strings.TrimSpace(req.Name)
	p.Category = c
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, storefront.ErrRecordNotFound) {
			return Product{}, storefront.NotFound(MsgProductNotFound)
		}
		return Product{}, storefront.Internal(err)
	}
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storefront.ErrRecordNotFound) {
			return Product{}, storefront.NotFound(MsgProductNotFound)
		}
		return Product{}, storefront.Internal(err)
	}
	return p, nil
}

func (s *Service) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Category = normalizeName(f.Category)
	out, err := s.products.List(ctx, f)
	if err != nil {
		return nil, storefront.Internal(err)
	}
	return out, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, storefront.ErrRecordNotFound) {
			return storefront.NotFound(MsgProductNotFound)
		}
		return storefront.Internal(err)
	}
	return nil
}
