package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/tailscale/hujson"

	"github.com/roach88/shelf/internal/kv"
)

// ConfigFileName is the project config file looked up in the working
// directory.
const ConfigFileName = ".shelf.json"

var (
	errConfigFileNotFound = errors.New("config file not found")
	errConfigInvalid      = errors.New("invalid config")
)

// Config holds the settings a config file may provide. Flags given on the
// command line override them.
type Config struct {
	DB      string `json:"db,omitempty"`
	Backend string `json:"backend,omitempty"`
	Schema  string `json:"schema,omitempty"`
	Format  string `json:"format,omitempty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DB:      "shelf.db",
		Backend: kv.BackendSQLite,
		Format:  "text",
	}
}

// LoadConfig returns the defaults merged with a config file. An explicit
// path must exist; otherwise .shelf.json in workDir is read when present.
// Relative db and schema paths in the file resolve against the file's
// directory. The second result is the file that was read, if any.
func LoadConfig(workDir, explicit string) (Config, string, error) {
	cfg := DefaultConfig()

	path := explicit
	if path == "" {
		path = filepath.Join(workDir, ConfigFileName)
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && explicit == "" {
			return cfg, "", nil
		}
		if os.IsNotExist(err) {
			return Config{}, "", fmt.Errorf("%w: %s", errConfigFileNotFound, explicit)
		}
		return Config{}, "", fmt.Errorf("read config %s: %w", path, err)
	}

	fileCfg, err := parseConfig(data)
	if err != nil {
		return Config{}, "", fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	dir := filepath.Dir(path)
	if fileCfg.DB != "" && !filepath.IsAbs(fileCfg.DB) {
		fileCfg.DB = filepath.Join(dir, fileCfg.DB)
	}
	if fileCfg.Schema != "" && !filepath.IsAbs(fileCfg.Schema) {
		fileCfg.Schema = filepath.Join(dir, fileCfg.Schema)
	}

	cfg = mergeConfig(cfg, fileCfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, "", fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}
	return cfg, path, nil
}

// parseConfig accepts JSON with comments and trailing commas.
func parseConfig(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}
	return cfg, nil
}

// mergeConfig overlays the non-empty fields of over onto base.
func mergeConfig(base, over Config) Config {
	if over.DB != "" {
		base.DB = over.DB
	}
	if over.Backend != "" {
		base.Backend = over.Backend
	}
	if over.Schema != "" {
		base.Schema = over.Schema
	}
	if over.Format != "" {
		base.Format = over.Format
	}
	return base
}

func validateConfig(cfg Config) error {
	if !slices.Contains(kv.Backends(), cfg.Backend) {
		return fmt.Errorf("backend %q must be one of %v", cfg.Backend, kv.Backends())
	}
	if !isValidFormat(cfg.Format) {
		return fmt.Errorf("format %q must be one of %v", cfg.Format, ValidFormats)
	}
	return nil
}
