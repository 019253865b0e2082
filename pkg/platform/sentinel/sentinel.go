package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
//   - ErrNotFound: entity does not exist in store
//   - ErrConflict: entity with the same identity already exists
//   - ErrInsufficient: balance cannot cover the requested debit
//   - ErrLimitExceeded: a stored value would leave its allowed range
//   - ErrInvalidState: entity in wrong state for requested operation
//   - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInsufficient  = errors.New("insufficient balance")
	ErrLimitExceeded = errors.New("limit exceeded")
	ErrInvalidState  = errors.New("invalid state")
	ErrUnavailable   = errors.New("unavailable")
)
