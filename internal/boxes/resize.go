package boxes

import "fmt"

// Handle names a resize grip by compass direction.
type Handle string

const (
	HandleNone Handle = ""
	HandleN    Handle = "n"
	HandleS    Handle = "s"
	HandleE    Handle = "e"
	HandleW    Handle = "w"
	HandleNE   Handle = "ne"
	HandleNW   Handle = "nw"
	HandleSE   Handle = "se"
	HandleSW   Handle = "sw"
)

// ParseHandle validates a handle name. The empty string means "move".
func ParseHandle(s string) (Handle, error) {
	switch h := Handle(s); h {
	case HandleNone, HandleN, HandleS, HandleE, HandleW, HandleNE, HandleNW, HandleSE, HandleSW:
		return h, nil
	}
	return HandleNone, fmt.Errorf("unknown resize handle %q", s)
}

func (h Handle) north() bool { return h == HandleN || h == HandleNE || h == HandleNW }
func (h Handle) south() bool { return h == HandleS || h == HandleSE || h == HandleSW }
func (h Handle) east() bool  { return h == HandleE || h == HandleNE || h == HandleSE }
func (h Handle) west() bool  { return h == HandleW || h == HandleNW || h == HandleSW }

// Move translates orig by (dx, dy), keeping it in the non-negative quadrant.
func Move(orig Box, dx, dy float64) Box {
	b := orig
	b.X = max(0, orig.X+dx)
	b.Y = max(0, orig.Y+dy)
	return b
}

// Resize applies a drag of (dx, dy) on handle h to the pointer-down
// snapshot orig. The edge opposite to the dragged one never moves.
func Resize(orig Box, h Handle, dx, dy float64) Box {
	if h == HandleNone {
		return Move(orig, dx, dy)
	}
	b := orig
	switch {
	case h.east():
		b.Width = max(MinWidth, orig.Width+dx)
	case h.west():
		b.X, b.Width = pullNear(orig.X, orig.Width, dx, MinWidth)
	}
	switch {
	case h.south():
		b.Height = max(MinHeight, orig.Height+dy)
	case h.north():
		b.Y, b.Height = pullNear(orig.Y, orig.Height, dy, MinHeight)
	}
	return b
}

// pullNear moves the near edge (left or top) of a span by d while the far
// edge stays at pos+size. The span stops at min and at coordinate 0.
func pullNear(pos, size, d, min float64) (float64, float64) {
	far := pos + size
	next := pos + d
	if next > far-min {
		next = far - min
	}
	if next < 0 {
		next = 0
	}
	return next, far - next
}
