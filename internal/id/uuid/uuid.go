// Package uuid generates request identifiers.
package uuid

import (
	"github.com/google/uuid"
)

// Generator creates time-ordered UUID v7 strings so request ids sort by
// arrival in logs.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUIDv7 string, falling back to a random v4 if the v7 clock
// source fails.
func (Generator) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Valid reports whether s parses as a UUID of any version.
func Valid(s string) bool {
	return uuid.Validate(s) == nil
}
