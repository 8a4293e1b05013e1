// Package kv provides the synchronous key-value hosts a durable store
// persists through.
//
// The store only needs Get, Set and Remove. Hosts additionally list keys by
// prefix (used by dumps and tests) and release resources on Close.
//
// Available hosts:
//   - Memory: process-local map, nothing persisted
//   - SQLite: single entries table in a WAL-mode SQLite database
//   - Bolt: one bucket in a bbolt B+tree file
//   - File: a JSON object rewritten atomically on every mutation
package kv

import (
	"fmt"
	"strings"
)

// KV is the synchronous contract the durable store consumes.
type KV interface {
	// Get returns the value for key and whether it exists.
	Get(key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error
}

// Host is a KV that can also enumerate keys and be closed.
type Host interface {
	KV
	// Keys returns every key starting with prefix, in byte order.
	Keys(prefix string) ([]string, error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendFile   = "file"
)

// Backends lists every backend name Open understands.
func Backends() []string {
	return []string{BackendMemory, BackendSQLite, BackendBolt, BackendFile}
}

// Open returns the named host. path is ignored for the memory backend.
func Open(backend, path string) (Host, error) {
	switch strings.ToLower(backend) {
	case BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendBolt:
		return OpenBolt(path)
	case BackendFile:
		return OpenFile(path)
	default:
		return nil, fmt.Errorf("unknown kv backend %q (want one of %s)", backend, strings.Join(Backends(), ", "))
	}
}
