package store

import (
	"strconv"

	"github.com/google/uuid"
)

// HandleIDGenerator produces observer handle ids.
// Implemented by UUIDv7Generator (production) and SequenceGenerator (tests).
type HandleIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 handle ids.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SequenceGenerator returns prefix-1, prefix-2, ... so that traces which
// include handle ids are reproducible.
type SequenceGenerator struct {
	prefix string
	n      int
}

// NewSequenceGenerator returns a generator whose first id is prefix + "-1".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "observer"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id in the sequence.
func (g *SequenceGenerator) Generate() string {
	g.n++
	return g.prefix + "-" + strconv.Itoa(g.n)
}
