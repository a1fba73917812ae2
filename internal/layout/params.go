package layout

import "fmt"

// Params holds the physics coefficients and loop limits.
type Params struct {
	Width              float64 `toml:"width"`
	Height             float64 `toml:"height"`
	CenterGravity      float64 `toml:"center_gravity"`
	Repulsion          float64 `toml:"repulsion"`
	Spring             float64 `toml:"spring"`
	RestLength         float64 `toml:"rest_length"`
	Friction           float64 `toml:"friction"`
	MaxVelocity        float64 `toml:"max_velocity"`
	StabilityThreshold float64 `toml:"stability_threshold"`
	MaxFrames          int     `toml:"max_frames"`
}

// DefaultParams returns the coefficients tuned for graphs of a few dozen nodes on an
// 800x600 canvas.
func DefaultParams() Params {
	return Params{
		Width:              800,
		Height:             600,
		CenterGravity:      0.03,
		Repulsion:          2000,
		Spring:             0.04,
		RestLength:         120,
		Friction:           0.7,
		MaxVelocity:        15,
		StabilityThreshold: 0.5,
		MaxFrames:          300,
	}
}

// Center returns the canvas center.
func (p Params) Center() Vec {
	return Vec{p.Width / 2, p.Height / 2}
}

// Validate rejects coefficients that would make the simulation diverge or never stop.
func (p Params) Validate() error {
	switch {
	case p.Width <= 0 || p.Height <= 0:
		return fmt.Errorf("canvas must be positive, got %gx%g", p.Width, p.Height)
	case p.Friction < 0 || p.Friction >= 1:
		return fmt.Errorf("friction must be in [0,1), got %g", p.Friction)
	case p.MaxVelocity <= 0:
		return fmt.Errorf("max velocity must be positive, got %g", p.MaxVelocity)
	case p.MaxFrames <= 0:
		return fmt.Errorf("max frames must be positive, got %d", p.MaxFrames)
	case p.StabilityThreshold < 0:
		return fmt.Errorf("stability threshold must not be negative, got %g", p.StabilityThreshold)
	case p.CenterGravity < 0 || p.Repulsion < 0 || p.Spring < 0 || p.RestLength < 0:
		return fmt.Errorf("force coefficients must not be negative")
	}
	return nil
}
