package entity

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/msalah0e/orbit/internal/graph"
)

var sample = []graph.Entity{
	{ID: "p1", Name: "Portal", Description: "uses [api]"},
	{ID: "p2", Kind: graph.KindTask, Description: "consumes [api]", ExplicitLinks: []string{"p1"}},
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"a.json", JSON},
		{"dir/b.yaml", YAML},
		{"c.YML", YAML},
		{"d.toml", TOML},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		if err != nil || got != tt.want {
			t.Errorf("FormatOf(%q) = %q, %v; want %q", tt.path, got, err, tt.want)
		}
	}

	if _, err := FormatOf("notes.txt"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestSaveAndLoadEachFormat(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"e.json", "e.yaml", "e.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := SaveFile(path, sample); err != nil {
				t.Fatalf("SaveFile failed: %v", err)
			}
			got, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile failed: %v", err)
			}
			if diff := cmp.Diff(sample, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadHandWrittenTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.toml")
	doc := `
[[entities]]
id = "web"
description = "frontend [react]"

[[entities]]
id = "api"
kind = "goal"
explicit_links = ["web"]
`
	os.WriteFile(path, []byte(doc), 0o644)

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	want := []graph.Entity{
		{ID: "web", Description: "frontend [react]"},
		{ID: "api", Kind: graph.KindGoal, ExplicitLinks: []string{"web"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("entities: [\n"), 0o644)
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected parse error")
	}

	if _, err := LoadFile(filepath.Join(dir, "x.csv")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755)
	for _, p := range []string{"top.json", "a/one.yaml", "a/b/two.toml", "a/b/skip.txt"} {
		os.WriteFile(filepath.Join(dir, p), []byte("{}"), 0o644)
	}

	got, err := Expand([]string{
		filepath.Join(dir, "**", "*.{json,yaml,toml}"),
		filepath.Join(dir, "top.json"),
	})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a", "b", "two.toml"),
		filepath.Join(dir, "a", "one.yaml"),
		filepath.Join(dir, "top.json"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandNoMatch(t *testing.T) {
	if _, err := Expand([]string{filepath.Join(t.TempDir(), "*.json")}); err == nil {
		t.Error("expected error when a pattern matches nothing")
	}
}

func TestExpandPlainPathPassesThrough(t *testing.T) {
	got, err := Expand([]string{"does/not/exist.json"})
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(got) != 1 || got[0] != "does/not/exist.json" {
		t.Errorf("unexpected %v", got)
	}
}
