// Package session carries tokens between server and browser.
//
// [Transport] reads and writes the two transport cookies. [RevocationStore]
// is an optional Redis set of rotated refresh token ids.
package session
