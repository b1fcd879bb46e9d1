// Package geometry converts between screen space and the template's
// natural pixel space. Every other package goes through Transform; none
// of them compute a scale factor on their own.
package geometry

import "errors"

// ErrBadDimensions is returned when a transform is built from a
// non-positive rendered or natural width.
var ErrBadDimensions = errors.New("geometry: widths must be positive")

// Point is a 2D coordinate. Whether it is in screen or natural space
// depends on the caller.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }

func (p Point) Sub(o Point) Point { return Point{X: p.X - o.X, Y: p.Y - o.Y} }

func (p Point) Scale(f float64) Point { return Point{X: p.X * f, Y: p.Y * f} }

// Rect is an axis-aligned rectangle with a top-left origin.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Transform maps natural (template pixel) coordinates to the screen and
// back. Origin is the screen position of the template's top-left corner.
type Transform struct {
	Scale  float64 `json:"scale"`
	Origin Point   `json:"origin"`
}

// Identity is the transform used before the client has reported a
// viewport: screen space equals natural space.
var Identity = Transform{Scale: 1}

// NewTransform computes scale = renderedWidth / naturalWidth.
func NewTransform(renderedWidth, naturalWidth float64, origin Point) (Transform, error) {
	if renderedWidth <= 0 || naturalWidth <= 0 {
		return Transform{}, ErrBadDimensions
	}
	return Transform{Scale: renderedWidth / naturalWidth, Origin: origin}, nil
}

// ToNatural converts a screen point into natural space.
func (t Transform) ToNatural(screen Point) Point {
	return screen.Sub(t.Origin).Scale(1 / t.scale())
}

// ToScreen converts a natural point into screen space.
func (t Transform) ToScreen(natural Point) Point {
	return t.Origin.Add(natural.Scale(t.scale()))
}

// DeltaToNatural converts a screen-space displacement into natural units.
func (t Transform) DeltaToNatural(d Point) Point {
	return d.Scale(1 / t.scale())
}

// RectToScreen converts a natural rectangle into screen space.
func (t Transform) RectToScreen(r Rect) Rect {
	tl := t.ToScreen(Point{X: r.X, Y: r.Y})
	s := t.scale()
	return Rect{X: tl.X, Y: tl.Y, Width: r.Width * s, Height: r.Height * s}
}

func (t Transform) scale() float64 {
	if t.Scale <= 0 {
		return 1
	}
	return t.Scale
}
