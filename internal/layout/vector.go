package layout

import "math"

// Vec is a 2D vector.
type Vec struct {
	X, Y float64
}

func (v Vec) Add(o Vec) Vec { return Vec{v.X + o.X, v.Y + o.Y} }

func (v Vec) Sub(o Vec) Vec { return Vec{v.X - o.X, v.Y - o.Y} }

func (v Vec) Mul(s float64) Vec { return Vec{v.X * s, v.Y * s} }

func (v Vec) Len() float64 { return math.Hypot(v.X, v.Y) }

func (v Vec) LenSq() float64 { return v.X*v.X + v.Y*v.Y }

// Manhattan is |x| + |y|, the per-node movement measure of the stability check.
func (v Vec) Manhattan() float64 { return math.Abs(v.X) + math.Abs(v.Y) }

// Clamp rescales v to length limit when it is longer.
func (v Vec) Clamp(limit float64) Vec {
	l := v.Len()
	if l <= limit || l == 0 {
		return v
	}
	return v.Mul(limit / l)
}
