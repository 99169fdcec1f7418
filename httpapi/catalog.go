package httpapi

import (
	"net/http"

	"github.com/MrEthical07/storefront"
	"github.com/MrEthical07/storefront/catalog"
	authmw "github.com/MrEthical07/storefront/middleware"
	"github.com/go-chi/chi/v5"
)

func (h *handlers) categoryRoutes(r chi.Router) {
	r.Get("/get-by-id/{categoryId}", h.getCategory)
	r.Get("/get-all", h.listCategories)
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireRole(storefront.RoleAdmin))
		r.Post("/create", h.createCategory)
		r.Put("/update/{categoryId}", h.updateCategory)
		r.Delete("/delete/{categoryId}", h.deleteCategory)
	})
}

func (h *handlers) productRoutes(r chi.Router) {
	r.Get("/get-by-id/{productId}", h.getProduct)
	r.Get("/get-all", h.listProducts)
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireRole(storefront.RoleAdmin))
		r.Post("/create", h.createProduct)
		r.Put("/update/{productId}", h.updateProduct)
		r.Delete("/delete/{productId}", h.deleteProduct)
	})
}

func (h *handlers) createCategory(w http.ResponseWriter, r *http.Request) {
	var req catalog.CategoryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.catalog.CreateCategory(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusCreated, "Category created successfully", c)
}

func (h *handlers) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "categoryId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req catalog.CategoryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.catalog.UpdateCategory(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Category updated successfully", c)
}

func (h *handlers) getCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "categoryId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Category retrieved successfully", c)
}

func (h *handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.ListCategories(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Categories retrieved successfully", out)
}

func (h *handlers) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "categoryId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Category deleted successfully", nil)
}

func (h *handlers) createProduct(w http.ResponseWriter, r *http.Request) {
	var req catalog.ProductRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalog.CreateProduct(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusCreated, "Product created successfully", p)
}

func (h *handlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req catalog.ProductRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalog.UpdateProduct(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Product updated successfully", p)
}

func (h *handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Product retrieved successfully", p)
}

func (h *handlers) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out, err := h.catalog.ListProducts(r.Context(), catalog.ProductFilter{
		Name:     q.Get("name"),
		Category: q.Get("category"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Products retrieved successfully", out)
}

func (h *handlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "productId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "Product deleted successfully", nil)
}
