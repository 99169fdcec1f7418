package middleware

import (
	"net/http"

	"github.com/MrEthical07/storefront"
)

// RequireAuthenticated rejects requests that reached it without a principal.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := storefront.PrincipalFromContext(r.Context()); !ok {
			writeError(w, r, http.StatusUnauthorized, MsgUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits principals holding one of roles. Anonymous requests get
// 401, authenticated ones without the role get 403.
func RequireRole(roles ...storefront.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := storefront.PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, MsgUnauthorized)
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, http.StatusForbidden, storefront.MsgAccessDenied)
		})
	}
}
