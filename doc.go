// Package storefront is the credential lifecycle core of the storefront
// admin backend: registration, login, token refresh, email verification,
// password reset and self-service account management.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// storefront is the public surface. It exposes [Engine], [Builder], [Config],
// the domain types and the store interfaces ([UserStore], [OtpStore],
// [Notifier]). Token signing lives in jwt, cookie transport and refresh
// revocation in session, password hashing in password and code generation in
// otp. Storage backends (store/...), mail delivery (notify) and the HTTP layer
// (httpapi, middleware) depend on this package, never the reverse.
//
// # Errors
//
// Every Engine operation returns either nil or an error carrying a [Kind].
// Callers map it to a status with [StatusOf]([KindOf](err)) and to a
// caller-safe message with [MessageOf]. Unexpected failures are wrapped with
// [Internal] and never expose their cause.
//
// # Tokens
//
// Access and refresh tokens are HS256 JWTs signed with two distinct keys.
// Refresh rotates both tokens. Old refresh tokens stay valid until they
// expire unless [RefreshConfig.RevocationEnabled] is set.
package storefront
