package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/msalah0e/orbit/internal/graph"
	"github.com/msalah0e/orbit/internal/layout"
)

// ProjectFile is the project-local override looked up from the working directory.
const ProjectFile = ".orbit.toml"

// Config holds orbit configuration.
type Config struct {
	Canvas   CanvasConfig   `toml:"canvas"`
	Physics  PhysicsConfig  `toml:"physics"`
	Graph    GraphConfig    `toml:"graph"`
	Serve    ServeConfig    `toml:"serve"`
	Log      LogConfig      `toml:"log"`
	Store    StoreConfig    `toml:"store"`
	Parallel ParallelConfig `toml:"parallel"`
}

// CanvasConfig sizes the virtual canvas.
type CanvasConfig struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// PhysicsConfig holds the force coefficients and loop limits.
type PhysicsConfig struct {
	CenterGravity      float64 `toml:"center_gravity"`
	Repulsion          float64 `toml:"repulsion"`
	Spring             float64 `toml:"spring"`
	RestLength         float64 `toml:"rest_length"`
	Friction           float64 `toml:"friction"`
	MaxVelocity        float64 `toml:"max_velocity"`
	StabilityThreshold float64 `toml:"stability_threshold"`
	MaxFrames          int     `toml:"max_frames"`
}

// GraphConfig controls how entities become nodes and edges.
type GraphConfig struct {
	RootID       string  `toml:"root_id"`
	RootLabel    string  `toml:"root_label"`
	Radius       float64 `toml:"radius"`
	KeywordLinks bool    `toml:"keyword_links"`
	Dedupe       string  `toml:"dedupe"` // "none", "pairs"
}

// ServeConfig controls the live session server.
type ServeConfig struct {
	Addr            string `toml:"addr"`
	FrameIntervalMS int    `toml:"frame_interval_ms"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console", "json"
}

// StoreConfig locates the entity database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// ParallelConfig controls concurrent layout runs.
type ParallelConfig struct {
	Enabled     bool `toml:"enabled"`
	Concurrency int  `toml:"concurrency"`
}

// Default returns the default configuration.
func Default() *Config {
	p := layout.DefaultParams()
	g := graph.DefaultOptions()
	return &Config{
		Canvas: CanvasConfig{Width: p.Width, Height: p.Height},
		Physics: PhysicsConfig{
			CenterGravity:      p.CenterGravity,
			Repulsion:          p.Repulsion,
			Spring:             p.Spring,
			RestLength:         p.RestLength,
			Friction:           p.Friction,
			MaxVelocity:        p.MaxVelocity,
			StabilityThreshold: p.StabilityThreshold,
			MaxFrames:          p.MaxFrames,
		},
		Graph: GraphConfig{
			RootID:       g.RootID,
			RootLabel:    g.RootLabel,
			Radius:       g.Radius,
			KeywordLinks: !g.NoKeywordLinks,
			Dedupe:       string(g.Dedupe),
		},
		Serve:    ServeConfig{Addr: "127.0.0.1:7340", FrameIntervalMS: 16},
		Log:      LogConfig{Level: "warn", Format: "console"},
		Parallel: ParallelConfig{Enabled: true, Concurrency: 4},
	}
}

// Params returns the engine parameters described by the config.
func (c *Config) Params() layout.Params {
	return layout.Params{
		Width:              c.Canvas.Width,
		Height:             c.Canvas.Height,
		CenterGravity:      c.Physics.CenterGravity,
		Repulsion:          c.Physics.Repulsion,
		Spring:             c.Physics.Spring,
		RestLength:         c.Physics.RestLength,
		Friction:           c.Physics.Friction,
		MaxVelocity:        c.Physics.MaxVelocity,
		StabilityThreshold: c.Physics.StabilityThreshold,
		MaxFrames:          c.Physics.MaxFrames,
	}
}

// GraphOptions returns the builder options described by the config.
func (c *Config) GraphOptions() graph.Options {
	return graph.Options{
		Width:          c.Canvas.Width,
		Height:         c.Canvas.Height,
		Radius:         c.Graph.Radius,
		RootID:         c.Graph.RootID,
		RootLabel:      c.Graph.RootLabel,
		NoKeywordLinks: !c.Graph.KeywordLinks,
		Dedupe:         graph.DedupePolicy(c.Graph.Dedupe),
	}
}

// StorePath returns the entity database path, defaulting to the config directory.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(ConfigDir(), "entities.db")
}

// ConfigDir returns the orbit config directory path.
func ConfigDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "orbit")
}

// Path returns the user config file path.
func Path() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the user config and then the nearest project config over it. Missing or
// invalid files leave the defaults in place. Invalid physics reset the canvas and
// physics sections; an unknown dedupe policy resets to the default policy.
func Load() *Config {
	cfg := Default()

	if data, err := os.ReadFile(Path()); err == nil {
		_ = toml.Unmarshal(data, cfg)
	}
	if local := findProjectConfig(); local != "" {
		if data, err := os.ReadFile(local); err == nil {
			_ = toml.Unmarshal(data, cfg)
		}
	}
	if cfg.Params().Validate() != nil {
		d := Default()
		cfg.Canvas, cfg.Physics = d.Canvas, d.Physics
	}
	if !graph.DedupePolicy(cfg.Graph.Dedupe).Valid() {
		cfg.Graph.Dedupe = Default().Graph.Dedupe
	}
	return cfg
}

// findProjectConfig walks up from the working directory looking for ProjectFile.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ProjectFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Save writes the config to disk.
func Save(cfg *Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// EnsureExists creates the config file with defaults if it doesn't exist.
func EnsureExists() error {
	if _, err := os.Stat(Path()); err == nil {
		return nil // already exists
	}
	return Save(Default())
}
