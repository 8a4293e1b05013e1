package attr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Generator allocates unresolved StoreIDs for one table.
//
// Every call to Next returns a strictly greater sequence number than all
// previous calls on the same generator. The generator state serializes to
// {"next_id": n}; a generator restored from that form resumes exactly where
// the saved one left off, so no identifier is reused across a save/reload.
//
// Generator is not safe for concurrent use.
type Generator struct {
	next int64
}

// NewGenerator returns a generator whose first identifier is T-1.
func NewGenerator() *Generator {
	return &Generator{next: 1}
}

// ResumeGenerator returns a generator whose next identifier has sequence
// number next.
func ResumeGenerator(next int64) (*Generator, error) {
	if next < 1 {
		return nil, fmt.Errorf("resume generator: next_id must be positive, got %d", next)
	}
	return &Generator{next: next}, nil
}

// Next allocates a fresh unresolved identifier.
func (g *Generator) Next() *StoreID {
	id := NewStoreID(g.next)
	g.next++
	return id
}

// NextID returns the sequence number the next call to Next will use.
func (g *Generator) NextID() int64 {
	return g.next
}

// generatorState is the persisted form of a Generator.
type generatorState struct {
	NextID json.RawMessage `json:"next_id"`
}

// MarshalJSON encodes the generator as {"next_id":n}.
func (g *Generator) MarshalJSON() ([]byte, error) {
	return []byte(`{"next_id":` + strconv.FormatInt(g.next, 10) + `}`), nil
}

// UnmarshalJSON restores a generator from {"next_id":n}. The counter may be
// a number or a numeric string.
func (g *Generator) UnmarshalJSON(data []byte) error {
	var state generatorState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decode generator: %w", err)
	}
	if len(state.NextID) == 0 {
		return fmt.Errorf("decode generator: missing next_id")
	}

	raw := bytes.Trim(state.NextID, `"`)
	next, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("decode generator: next_id %s: %w", state.NextID, err)
	}
	if next < 1 {
		return fmt.Errorf("decode generator: next_id must be positive, got %d", next)
	}
	g.next = next
	return nil
}

// ParseGenerator restores a generator from its JSON form.
func ParseGenerator(data []byte) (*Generator, error) {
	g := &Generator{}
	if err := g.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return g, nil
}
