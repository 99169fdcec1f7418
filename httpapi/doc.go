// Package httpapi exposes the storefront engine and catalog over HTTP.
//
// Every response uses the same envelope:
//
//	{"error": null, "message": "...", "data": ...}   // 2xx
//	{"error": "...", "message": null, "data": null}  // everything else
//
// Domain errors are mapped to a status exactly once, in writeError, using
// [storefront.KindOf] and [storefront.StatusOf].
package httpapi
