package httpapi

import (
	"net/http"

	"github.com/MrEthical07/storefront"
	authmw "github.com/MrEthical07/storefront/middleware"
	"github.com/go-chi/chi/v5"
)

func (h *handlers) userRoutes(r chi.Router) {
	r.Use(authmw.RequireAuthenticated)
	r.Get("/get-account-by-id/{userId}", h.getAccount)
	r.Put("/update-account/{userId}", h.updateAccount)
	r.Put("/update-password/{userId}", h.updatePassword)
	r.Delete("/delete-account/{userId}", h.deleteAccount)
	r.With(authmw.RequireRole(storefront.RoleAdmin)).Get("/all", h.listAccounts)
}

// caller is only called behind RequireAuthenticated.
func caller(r *http.Request) storefront.Principal {
	p, _ := storefront.PrincipalFromContext(r.Context())
	return p
}

func (h *handlers) getAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	identity, err := h.engine.GetAccount(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "User account details", identity)
}

func (h *handlers) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req storefront.UpdateAccountRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	identity, err := h.engine.UpdateAccount(r.Context(), caller(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "User account updated", identity)
}

func (h *handlers) updatePassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req storefront.ChangePasswordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.engine.ChangePassword(r.Context(), caller(r), id, req); err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "User password updated", nil)
}

func (h *handlers) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := caller(r)
	if err := h.engine.DeleteAccount(r.Context(), p, id); err != nil {
		writeError(w, r, err)
		return
	}
	if p.Owns(id) {
		h.engine.Logout(r.Context(), w)
	}
	writeOK(w, r, http.StatusOK, "User account deleted", nil)
}

func (h *handlers) listAccounts(w http.ResponseWriter, r *http.Request) {
	users, err := h.engine.ListAccounts(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, "All users", users)
}
