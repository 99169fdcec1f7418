package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/catalog"
)

// Catalog implements both catalog repositories over one lock so category
// deletion can cascade to products atomically.
type Catalog struct {
	mu         sync.RWMutex
	nextCat    int64
	nextProd   int64
	categories map[int64]catalog.Category
	products   map[int64]productRow
}

type productRow struct {
	id         int64
	name       string
	categoryID int64
}

func NewCatalog() *Catalog {
	return &Catalog{
		categories: make(map[int64]catalog.Category),
		products:   make(map[int64]productRow),
	}
}

// Categories returns the category repository view.
func (s *Catalog) Categories() catalog.CategoryRepository { return categoryRepo{s} }

// Products returns the product repository view.
func (s *Catalog) Products() catalog.ProductRepository { return productRepo{s} }

type categoryRepo struct{ s *Catalog }

func (r categoryRepo) nameTaken(name string, except int64) bool {
	for id, c := range r.s.categories {
		if id != except && c.Name == name {
			return true
		}
	}
	return false
}

func (r categoryRepo) Create(_ context.Context, c *catalog.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.nameTaken(c.Name, 0) {
		return catalog.ErrDuplicateName
	}
	r.s.nextCat++
	c.ID = r.s.nextCat
	r.s.categories[c.ID] = *c
	return nil
}

func (r categoryRepo) GetByID(_ context.Context, id int64) (catalog.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return catalog.Category{}, storefront.ErrRecordNotFound
	}
	return c, nil
}

func (r categoryRepo) GetByName(_ context.Context, name string) (catalog.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return catalog.Category{}, storefront.ErrRecordNotFound
}

func (r categoryRepo) Update(_ context.Context, c catalog.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[c.ID]; !ok {
		return storefront.ErrRecordNotFound
	}
	if r.nameTaken(c.Name, c.ID) {
		return catalog.ErrDuplicateName
	}
	r.s.categories[c.ID] = c
	return nil
}

func (r categoryRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return storefront.ErrRecordNotFound
	}
	delete(r.s.categories, id)
	for pid, p := range r.s.products {
		if p.categoryID == id {
			delete(r.s.products, pid)
		}
	}
	return nil
}

func (r categoryRepo) List(_ context.Context, search string) ([]catalog.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]catalog.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		if search == "" || strings.Contains(c.Name, search) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type productRepo struct{ s *Catalog }

func (r productRepo) Create(_ context.Context, p *catalog.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[p.Category.ID]; !ok {
		return storefront.ErrRecordNotFound
	}
	r.s.nextProd++
	p.ID = r.s.nextProd
	r.s.products[p.ID] = productRow{id: p.ID, name: p.Name, categoryID: p.Category.ID}
	return nil
}

func (r productRepo) resolve(row productRow) catalog.Product {
	return catalog.Product{ID: row.id, Name: row.name, Category: r.s.categories[row.categoryID]}
}

func (r productRepo) GetByID(_ context.Context, id int64) (catalog.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.products[id]
	if !ok {
		return catalog.Product{}, storefront.ErrRecordNotFound
	}
	return r.resolve(row), nil
}

func (r productRepo) Update(_ context.Context, p catalog.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return storefront.ErrRecordNotFound
	}
	if _, ok := r.s.categories[p.Category.ID]; !ok {
		return storefront.ErrRecordNotFound
	}
	r.s.products[p.ID] = productRow{id: p.ID, name: p.Name, categoryID: p.Category.ID}
	return nil
}

func (r productRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return storefront.ErrRecordNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r productRepo) List(_ context.Context, f catalog.ProductFilter) ([]catalog.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	name := strings.ToLower(f.Name)
	out := make([]catalog.Product, 0, len(r.s.products))
	for _, row := range r.s.products {
		p := r.resolve(row)
		if name != "" && !strings.Contains(strings.ToLower(p.Name), name) {
			continue
		}
		if f.Category != "" && !strings.Contains(p.Category.Name, f.Category) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
