package catalog

import "errors"

// ErrNotFound is returned for an out-of-range catalog position.
var ErrNotFound = errors.New("product not found")
