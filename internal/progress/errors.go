package progress

import "errors"

// ErrMissingProfileID is returned when an operation is called without a profile id.
var ErrMissingProfileID = errors.New("profile id is required")
