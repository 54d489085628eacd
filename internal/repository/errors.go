package repository

import "errors"

// ErrNotFound is returned when an entity does not exist in the store.
var ErrNotFound = errors.New("not found")
