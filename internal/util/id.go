package util

import "github.com/google/uuid"

// NewID returns a new random identifier (a UUID string). No package in this
// module calls it.
func NewID() string { return uuid.NewString() }
