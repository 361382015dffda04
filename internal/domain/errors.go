package domain

import "errors"

// Domain errors. Lookup failures are tagged so callers can tell an
// unconfigured service, a transport failure and a legitimately empty
// result apart; the HTTP layer still collapses most of these to an empty
// response to preserve the outward "unconfigured = empty" contract.
var (
	ErrNotConfigured  = errors.New("indexing service not configured")
	ErrAssetNotFound  = errors.New("asset not found")
	ErrBadResponse    = errors.New("malformed provider response")
	ErrInvalidRequest = errors.New("invalid request")
)
