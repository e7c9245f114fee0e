// Package uuid generates notification ids.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates time-ordered UUID v7 strings so notification ids sort in
// creation order.
type Generator struct{}

// New creates a new Generator.
func New() *Generator {
	return &Generator{}
}

// NewID returns a UUID v7 string, falling back to v4 when the v7 clock
// sequence cannot be produced.
func (Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err == nil {
		return id.String(), nil
	}
	v4, err4 := uuid.NewRandom()
	if err4 != nil {
		return "", fmt.Errorf("generate uuid: %w", err4)
	}
	return v4.String(), nil
}
