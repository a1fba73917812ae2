// Package entity reads and writes entity documents. The format follows the file
// extension: .json, .yaml/.yml or .toml, each holding a top-level "entities" list.
package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/msalah0e/orbit/internal/graph"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned for files whose extension names no supported format.
var ErrUnknownFormat = errors.New("unknown entity file format")

// Format is an entity document encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
)

// Document is the on-disk shape of an entity file.
type Document struct {
	Entities []graph.Entity `json:"entities" yaml:"entities" toml:"entities"`
}

// FormatOf picks the format from the path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

// Decode parses data in format f.
func Decode(data []byte, f Format) ([]graph.Entity, error) {
	var doc Document
	var err error
	switch f {
	case JSON:
		err = json.Unmarshal(data, &doc)
	case YAML:
		err = yaml.Unmarshal(data, &doc)
	case TOML:
		err = toml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%q: %w", f, ErrUnknownFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s entities: %w", f, err)
	}
	return doc.Entities, nil
}

// Encode serializes entities in format f.
func Encode(entities []graph.Entity, f Format) ([]byte, error) {
	doc := Document{Entities: entities}
	switch f {
	case JSON:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case YAML:
		return yaml.Marshal(doc)
	case TOML:
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%q: %w", f, ErrUnknownFormat)
}

// LoadFile reads the entities stored at path.
func LoadFile(path string) ([]graph.Entity, error) {
	f, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading entities: %w", err)
	}
	entities, err := Decode(data, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entities, nil
}

// SaveFile writes entities to path in the format its extension names.
func SaveFile(path string, entities []graph.Entity) error {
	f, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := Encode(entities, f)
	if err != nil {
		return fmt.Errorf("encoding entities: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Expand resolves file arguments that may contain ** globs. Plain paths pass through
// untouched; the result is sorted and free of repeats.
func Expand(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, arg := range args {
		matches := []string{arg}
		if strings.ContainsAny(arg, "*?[{") {
			var err error
			matches, err = doublestar.FilepathGlob(arg)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("no files match %q", arg)
			}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
