// Package util holds small shared helpers.
package util

import "github.com/google/uuid"

// NewID generates a new unique identifier for discussions.
func NewID() string { return uuid.NewString() }
