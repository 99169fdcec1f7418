// Package memory provides mutex-guarded in-process implementations of the
// storefront stores. It backs the server when no database is configured and
// serves as a reference implementation in tests.
package memory
