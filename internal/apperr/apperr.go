// Package apperr defines the sentinel error kinds shared across the
// dataset, tenant, and web packages. Callers classify failures with
// errors.Is and translate them to HTTP status codes at the boundary.
package apperr

import "fmt"

var (
	// ErrNotFound marks a missing resource: an expected data file that is
	// absent, or a tenant id that is unknown or already deleted.
	ErrNotFound = fmt.Errorf("not found")

	// ErrMalformed marks a data file that exists but cannot be parsed
	// into its expected shape.
	ErrMalformed = fmt.Errorf("malformed data")

	// ErrInvalidToken marks a session token that failed verification.
	// Handlers treat it exactly like an unknown tenant.
	ErrInvalidToken = fmt.Errorf("invalid token")

	// ErrBadUpload marks an uploaded archive that is not a usable export:
	// not a zip, unsafe entries, or missing the playlist catalog.
	ErrBadUpload = fmt.Errorf("invalid upload")
)
