package boxes

import "github.com/youruser/certgen/internal/geometry"

const (
	MinWidth      = 50.0
	MinHeight     = 30.0
	DefaultWidth  = 200.0
	DefaultHeight = 40.0

	// stagger offsets each new box from the previous one.
	stagger = 20.0
	origin  = 50.0
)

// Kind selects how a mapped cell is drawn inside the box.
type Kind string

const (
	KindText Kind = "text"
	KindQR   Kind = "qr"
)

// Box is a rectangular region on the template, in natural space.
// ColumnID is a display cache of the last column dropped on it; the
// mapping set is authoritative.
type Box struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	ColumnID string  `json:"column_id,omitempty"`
	Kind     Kind    `json:"kind,omitempty"`
}

// Rect returns the box geometry.
func (b Box) Rect() geometry.Rect {
	return geometry.Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// Normalize clamps the box to the minimum size and the non-negative
// quadrant. There is no clamp against the template's far edges.
func (b Box) Normalize() Box {
	if b.Width < MinWidth {
		b.Width = MinWidth
	}
	if b.Height < MinHeight {
		b.Height = MinHeight
	}
	if b.X < 0 {
		b.X = 0
	}
	if b.Y < 0 {
		b.Y = 0
	}
	if b.Kind == "" {
		b.Kind = KindText
	}
	return b
}
