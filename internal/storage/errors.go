package storage

import "errors"

// ErrNotFound is returned by single-row loaders when the row is absent.
var ErrNotFound = errors.New("storage: not found")
