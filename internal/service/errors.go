package service

import "errors"

// Error taxonomy shared by the core operations. Handlers map these to HTTP
// statuses; duplicate detections during import are not errors at all, they
// surface as skip counts.
var (
	// ErrValidation marks malformed or missing required input. Rejected
	// before any mutation.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to a nonexistent supplier, product,
	// order or account.
	ErrNotFound = errors.New("not found")

	// ErrAttribution marks an order creation that could not resolve a
	// representative. No order is created.
	ErrAttribution = errors.New("representative could not be resolved")
)
