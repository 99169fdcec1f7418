// Package jwt issues and verifies the HS256 access and refresh tokens.
//
// Access and refresh tokens are signed with independent keys so that a leaked
// access token cannot be used to mint new sessions. Every verification
// failure is reported as [ErrInvalidToken]; callers cannot tell an expired
// token from a forged one.
package jwt
