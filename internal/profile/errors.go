package profile

import "errors"

// Sentinel errors for profile persistence.
var (
	// ErrNilDB indicates NewStore was called without a database handle.
	ErrNilDB = errors.New("profile: nil database handle")
)
