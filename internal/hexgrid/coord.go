// Package hexgrid provides axial hex-grid math for pointy-top layouts.
// It holds no state; every function is pure and safe for concurrent use.
package hexgrid

import (
	"fmt"
	"math"
)

// Axial represents axial coordinates (q, r) for pointy-top orientation.
type Axial struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// Cube represents cube coordinates (x, y, z) with x+y+z=0.
type Cube struct {
	X int
	Y int
	Z int
}

// Directions for axial neighbors in pointy-top orientation.
// The order is fixed and is used as the expansion order in path search.
var Directions = [6]Axial{
	{+1, 0}, {+1, -1}, {0, -1}, {-1, 0}, {-1, +1}, {0, +1},
}

// S returns the derived third cube coordinate.
func (a Axial) S() int { return -a.Q - a.R }

// Add returns a+b in axial space.
func (a Axial) Add(b Axial) Axial { return Axial{a.Q + b.Q, a.R + b.R} }

// Mul scales an axial vector by k.
func (a Axial) Mul(k int) Axial { return Axial{a.Q * k, a.R * k} }

// Key returns the "q,r" identifier used for persisted hex records.
func (a Axial) Key() string { return fmt.Sprintf("%d,%d", a.Q, a.R) }

// String implements fmt.Stringer.
func (a Axial) String() string { return "(" + a.Key() + ")" }

// ParseKey parses a "q,r" identifier produced by Key.
func ParseKey(key string) (Axial, error) {
	var a Axial
	if _, err := fmt.Sscanf(key, "%d,%d", &a.Q, &a.R); err != nil {
		return Axial{}, fmt.Errorf("invalid hex key %q: %w", key, err)
	}
	return a, nil
}

// ToCube converts axial to cube.
func (a Axial) ToCube() Cube {
	x := a.Q
	z := a.R
	y := -x - z
	return Cube{X: x, Y: y, Z: z}
}

// ToAxial converts cube to axial.
func (c Cube) ToAxial() Axial { return Axial{Q: c.X, R: c.Z} }

// Neighbors returns the six adjacent coordinates in Directions order.
func Neighbors(a Axial) [6]Axial {
	var out [6]Axial
	for i, d := range Directions {
		out[i] = a.Add(d)
	}
	return out
}

// Distance returns hex distance between two axial coords.
func Distance(a, b Axial) int {
	return DistanceCube(a.ToCube(), b.ToCube())
}

// DistanceCube returns hex distance between two cube coords.
func DistanceCube(a, b Cube) int {
	dx := absInt(a.X - b.X)
	dy := absInt(a.Y - b.Y)
	dz := absInt(a.Z - b.Z)
	if dx >= dy && dx >= dz {
		return dx
	}
	if dy >= dz {
		return dy
	}
	return dz
}

// ToPixel converts axial to pixel coordinates for pointy-top layout.
// size is the hex radius (corner to center) in pixels.
func ToPixel(a Axial, size float64) (x, y float64) {
	// pointy-top: x = size*sqrt(3)*(q + r/2); y = size*3/2*r
	x = size * math.Sqrt(3) * (float64(a.Q) + float64(a.R)/2.0)
	y = size * 1.5 * float64(a.R)
	return
}

// FractionalFromPixel applies the inverse pointy-top transform without rounding.
func FractionalFromPixel(x, y, size float64) (q, r float64) {
	q = (math.Sqrt(3)/3*x - y/3) / size
	r = (2.0 / 3 * y) / size
	return
}

// FromPixel resolves a pixel position to the hex containing it.
func FromPixel(x, y, size float64) Axial {
	q, r := FractionalFromPixel(x, y, size)
	return Round(q, r)
}

// Round performs cube rounding of fractional axial coordinates. Each cube
// component is rounded independently and the one with the largest rounding
// error is recomputed from the other two, so q+r+s stays exactly 0.
func Round(q, r float64) Axial {
	s := -q - r
	rq := math.Round(q)
	rr := math.Round(r)
	rs := math.Round(s)

	dq := math.Abs(rq - q)
	dr := math.Abs(rr - r)
	ds := math.Abs(rs - s)

	if dq > dr && dq > ds {
		rq = -rr - rs
	} else if dr > ds {
		rr = -rq - rs
	}
	return Axial{Q: int(rq), R: int(rr)}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
