// Package interaction turns pointer events into box and mapping edits.
//
// The controller is a three-state machine: Idle, DraggingBox (move or
// resize) and DraggingColumn (drag a column header onto a box). Only
// pointer-up or Cancel leaves a drag state.
package interaction

import (
	"errors"
	"fmt"

	"github.com/youruser/certgen/internal/boxes"
	"github.com/youruser/certgen/internal/geometry"
	"github.com/youruser/certgen/internal/mapping"
	"github.com/youruser/certgen/internal/notice"
)

var (
	// ErrBusy is returned when a drag starts while another one is in flight.
	ErrBusy = errors.New("another drag is in progress")
	// ErrUnknownColumn is returned when a column drag names a column the
	// loaded dataset does not have.
	ErrUnknownColumn = errors.New("unknown column")
)

type Mode int

const (
	Idle Mode = iota
	DraggingBox
	DraggingColumn
)

func (m Mode) String() string {
	switch m {
	case DraggingBox:
		return "dragging_box"
	case DraggingColumn:
		return "dragging_column"
	default:
		return "idle"
	}
}

type boxDrag struct {
	boxID   string
	handle  boxes.Handle
	start   geometry.Point // screen
	orig    boxes.Box
	pending *geometry.Point
}

type columnDrag struct {
	columnID string
	start    geometry.Point // screen
	current  geometry.Point // screen
	hover    string
}

// Controller owns no state of its own beyond the active drag; it mutates
// the box store and mapping set it was built with.
type Controller struct {
	boxes    *boxes.Store
	mappings *mapping.Set
	notify   notice.Notifier

	transform geometry.Transform
	anchors   map[string]geometry.Point
	columns   map[string]struct{}

	mode   Mode
	box    *boxDrag
	column *columnDrag
}

func NewController(store *boxes.Store, set *mapping.Set, n notice.Notifier) *Controller {
	if n == nil {
		n = notice.Discard
	}
	return &Controller{
		boxes:     store,
		mappings:  set,
		notify:    n,
		transform: geometry.Identity,
		anchors:   map[string]geometry.Point{},
	}
}

func (c *Controller) Mode() Mode { return c.mode }

// SetTransform installs the current screen/natural transform. Callers
// recompute it whenever the template loads or the viewport resizes.
func (c *Controller) SetTransform(t geometry.Transform) { c.transform = t }

func (c *Controller) Transform() geometry.Transform { return c.transform }

// SetAnchors records the screen positions of the column drag handles,
// used as the tails of committed connectors.
func (c *Controller) SetAnchors(a map[string]geometry.Point) {
	c.anchors = make(map[string]geometry.Point, len(a))
	for k, v := range a {
		c.anchors[k] = v
	}
}

// SetColumns installs the headers a column drag may name. With none set,
// every column drag is rejected.
func (c *Controller) SetColumns(cols []string) {
	c.columns = make(map[string]struct{}, len(cols))
	for _, col := range cols {
		c.columns[col] = struct{}{}
	}
}

// BoxDown starts a move (handle == HandleNone) or a resize of a box.
// Box manipulation is disabled while a column drag is active.
func (c *Controller) BoxDown(id string, h boxes.Handle, screen geometry.Point) error {
	if c.mode != Idle {
		return ErrBusy
	}
	b, ok := c.boxes.Get(id)
	if !ok {
		return boxes.ErrBoxNotFound
	}
	c.mode = DraggingBox
	c.box = &boxDrag{boxID: id, handle: h, start: screen, orig: b}
	return nil
}

// ColumnDown starts dragging a column header's connector.
func (c *Controller) ColumnDown(column string, screen geometry.Point) error {
	if c.mode != Idle {
		return ErrBusy
	}
	if _, ok := c.columns[column]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownColumn, column)
	}
	c.mode = DraggingColumn
	c.column = &columnDrag{columnID: column, start: screen, current: screen}
	c.column.hover = c.hitTest(screen)
	return nil
}

// Move handles a pointer move anywhere on the page. Box drags only record
// the position; Frame applies it.
func (c *Controller) Move(screen geometry.Point) {
	switch c.mode {
	case DraggingBox:
		p := screen
		c.box.pending = &p
	case DraggingColumn:
		c.column.current = screen
		c.column.hover = c.hitTest(screen)
	}
}

// Frame applies the latest pending box drag, at most once per call.
func (c *Controller) Frame() {
	if c.mode == DraggingBox {
		c.flush()
	}
}

// Up ends the active drag at screen. A box drag applies the final
// position; a column drag commits a mapping if it ends over a box.
func (c *Controller) Up(screen geometry.Point) {
	switch c.mode {
	case DraggingBox:
		p := screen
		c.box.pending = &p
		c.flush()
	case DraggingColumn:
		c.Move(screen)
		c.drop()
	}
	c.reset()
}

// Cancel resolves a lost pointer capture to Idle. Pending box motion is
// kept; an in-flight column drag is discarded.
func (c *Controller) Cancel() {
	if c.mode == DraggingBox {
		c.flush()
	}
	c.reset()
}

// Hover returns the box currently under a column drag.
func (c *Controller) Hover() (string, bool) {
	if c.mode != DraggingColumn || c.column.hover == "" {
		return "", false
	}
	return c.column.hover, true
}

func (c *Controller) flush() {
	d := c.box
	if d.pending == nil {
		return
	}
	delta := c.transform.DeltaToNatural(d.pending.Sub(d.start))
	d.pending = nil
	next := boxes.Resize(d.orig, d.handle, delta.X, delta.Y)
	if _, err := c.boxes.Update(next); err != nil {
		// Box deleted mid-drag; nothing left to move.
		c.reset()
	}
}

func (c *Controller) drop() {
	d := c.column
	if d.hover == "" {
		return
	}
	c.mappings.Upsert(d.columnID, d.hover)
	c.boxes.SetColumn(d.hover, d.columnID)
	c.notify.Notify(notice.Success, "Mapped column %q to box %s", d.columnID, d.hover)
}

// hitTest returns the first box, in creation order, containing screen.
func (c *Controller) hitTest(screen geometry.Point) string {
	p := c.transform.ToNatural(screen)
	for _, b := range c.boxes.All() {
		if b.Rect().Contains(p) {
			return b.ID
		}
	}
	return ""
}

func (c *Controller) reset() {
	c.mode = Idle
	c.box = nil
	c.column = nil
}
