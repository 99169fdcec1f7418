// Package middleware exposes the HTTP adapters that put an authenticated
// [storefront.Principal] on the request context and enforce route access.
//
// # Filters
//
//   - [AuthFilter] resolves the access cookie through Engine.AuthenticateAccess.
//     Requests without the cookie pass through anonymously.
//   - [RequireAuthenticated] rejects anonymous requests with 401.
//   - [RequireRole] rejects principals lacking a role with 403.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT parse
// tokens, touch stores or write cookies. It never reads the refresh cookie.
package middleware
