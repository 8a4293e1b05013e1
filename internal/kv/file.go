package kv

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/natefinch/atomic"
)

// File is a Host that keeps every entry in memory and rewrites a single
// JSON object file after each mutation. The rewrite goes through a
// temporary file and rename, so a crash leaves either the old or the new
// snapshot on disk.
//
// Values must be valid UTF-8; the durable store only writes JSON.
type File struct {
	path string
	data map[string][]byte
}

// OpenFile loads the snapshot at path, or starts empty when it does not
// exist yet. The file is created on the first mutation.
func OpenFile(path string) (*File, error) {
	f := &File{path: path, data: make(map[string][]byte)}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return f, nil
	}

	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	for k, v := range entries {
		f.data[k] = []byte(v)
	}
	return f, nil
}

func (f *File) Get(key string) ([]byte, bool, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

func (f *File) Set(key string, value []byte) error {
	if !utf8.Valid(value) {
		return fmt.Errorf("set %q: value is not valid UTF-8", key)
	}
	prev, had := f.data[key]
	f.data[key] = bytes.Clone(value)
	if err := f.flush(); err != nil {
		if had {
			f.data[key] = prev
		} else {
			delete(f.data, key)
		}
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (f *File) Remove(key string) error {
	prev, had := f.data[key]
	if !had {
		return nil
	}
	delete(f.data, key)
	if err := f.flush(); err != nil {
		f.data[key] = prev
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}

func (f *File) Keys(prefix string) ([]string, error) {
	return prefixed(f.data, prefix), nil
}

// Close is a no-op; every mutation is already on disk.
func (f *File) Close() error {
	return nil
}

// flush writes the snapshot with sorted keys so diffs stay readable.
func (f *File) flush() error {
	entries := make(map[string]string, len(f.data))
	for k, v := range f.data {
		entries[k] = string(v)
	}
	content, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	content = append(content, '\n')

	if err := atomic.WriteFile(f.path, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("write snapshot %s: %w", f.path, err)
	}
	return nil
}
