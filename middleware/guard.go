package middleware

import (
	"net"
	"net/http"

	"github.com/MrEthical07/storefront"
	"github.com/go-chi/render"
)

// MsgUnauthorized is the error body for protected routes reached without a
// principal.
const MsgUnauthorized = "Unauthorized"

type errorBody struct {
	Error   string  `json:"error"`
	Message *string `json:"message"`
	Data    any     `json:"data"`
}

// AuthFilter authenticates the access cookie of every request.
//
// A missing or empty cookie leaves the request anonymous. A cookie that fails
// validation, or whose subject no longer exists, ends the request with 403 and
// {"error":"Access Denied","message":null,"data":null}. Otherwise the resolved
// principal is attached with [storefront.WithPrincipal].
func AuthFilter(engine *storefront.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, r, http.StatusInternalServerError, "Internal server error")
				return
			}

			token := engine.Transport().AccessToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := engine.AuthenticateAccess(r.Context(), token)
			if err != nil {
				kind := storefront.KindOf(err)
				writeError(w, r, storefront.StatusOf(kind), storefront.MessageOf(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(storefront.WithPrincipal(r.Context(), principal)))
		})
	}
}

// ClientIP records the caller address for audit events. Mount it after
// chi's RealIP so proxies are honoured.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(storefront.WithClientIP(r.Context(), ip)))
	})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorBody{Error: msg})
}
