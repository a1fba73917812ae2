// Package cache stores settled layouts keyed by a hash of everything that shaped them.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/msalah0e/orbit/internal/graph"
	"github.com/msalah0e/orbit/internal/layout"
	"lukechampine.com/blake3"
)

// Dir returns the cache directory path.
func Dir() string {
	dir := os.Getenv("XDG_CACHE_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".cache")
	}
	return filepath.Join(dir, "orbit")
}

// Entry is a cached layout run.
type Entry struct {
	Key     string         `json:"key"`
	Summary layout.Summary `json:"summary"`
	Graph   *graph.Graph   `json:"graph"`
}

type keyInput struct {
	Entities []graph.Entity `json:"entities"`
	Options  graph.Options  `json:"options"`
	Params   layout.Params  `json:"params"`
}

// Key hashes the inputs of a layout run. Any change to entities, builder options or
// physics parameters yields a different key.
func Key(entities []graph.Entity, opts graph.Options, params layout.Params) string {
	data, _ := json.Marshal(keyInput{Entities: entities, Options: opts, Params: params})
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func entryPath(key string) string {
	return filepath.Join(Dir(), "layouts", key[:2], key+".json")
}

// Get returns the cached entry for key. A miss returns ok false and no error.
func Get(key string) (*Entry, bool, error) {
	data, err := os.ReadFile(entryPath(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil || e.Key != key || e.Graph == nil {
		// A corrupt entry counts as a miss and is overwritten by the next Put.
		return nil, false, nil
	}
	return &e, true, nil
}

// Put stores a settled layout under key.
func Put(key string, g *graph.Graph, s layout.Summary) error {
	path := entryPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(Entry{Key: key, Summary: s, Graph: g})
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Clear removes every cached layout.
func Clear() error {
	return os.RemoveAll(filepath.Join(Dir(), "layouts"))
}

// Size returns the number of cached layouts and their total size in bytes.
func Size() (int, int64, error) {
	root := filepath.Join(Dir(), "layouts")
	count := 0
	var total int64
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".json" {
			count++
			total += info.Size()
		}
		return nil
	})
	return count, total, err
}
