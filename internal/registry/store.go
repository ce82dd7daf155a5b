package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// DefaultFileName is the on-disk file name for the server registry document,
// matching the sqlectron.json shape spec.md §6 describes.
const DefaultFileName = "servers.json"

// DefaultPath returns the registry file path under a gateway data directory,
// creating the directory if it doesn't already exist.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, DefaultFileName)
}

// Load reads and decodes the registry document at path. A missing file is
// not an error: it yields an empty Config, matching a fresh install that
// hasn't saved any server descriptors yet.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{Servers: []Descriptor{}}, nil
	}
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.Servers == nil {
		cfg.Servers = []Descriptor{}
	}
	return cfg, nil
}

// Save writes cfg to path as 2-space-indented JSON, creating the parent
// directory if needed. The write goes to a temp file in the same directory
// first and is renamed into place, so a crash mid-write can't leave a
// truncated registry file behind.
func Save(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".servers-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Chmod(tmpPath, 0o600); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}

// LoadResult carries Load's return pair across the async boundary.
type LoadResult struct {
	Config Config
	Err    error
}

// LoadAsync runs Load on a separate goroutine and returns a channel that
// receives exactly one result.
func LoadAsync(path string) <-chan LoadResult {
	out := make(chan LoadResult, 1)
	go func() {
		cfg, err := Load(path)
		out <- LoadResult{Config: cfg, Err: err}
	}()
	return out
}

// SaveAsync runs Save on a separate goroutine and returns a channel that
// receives exactly one error (nil on success).
func SaveAsync(path string, cfg Config) <-chan error {
	out := make(chan error, 1)
	go func() {
		out <- Save(path, cfg)
	}()
	return out
}
