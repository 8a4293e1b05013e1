package kv

import (
	"slices"
	"strings"
)

// Memory is an in-process Host. Values are copied on the way in and out.
type Memory struct {
	data map[string][]byte
}

// NewMemory returns an empty Memory host.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.data[key] = slices.Clone(value)
	return nil
}

func (m *Memory) Remove(key string) error {
	delete(m.data, key)
	return nil
}

func (m *Memory) Keys(prefix string) ([]string, error) {
	return prefixed(m.data, prefix), nil
}

func (m *Memory) Close() error {
	return nil
}

// prefixed returns the sorted keys of data that start with prefix.
func prefixed(data map[string][]byte, prefix string) []string {
	keys := []string{}
	for k := range data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
