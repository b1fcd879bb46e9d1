package interaction

import "github.com/youruser/certgen/internal/geometry"

// Style describes how a connector is stroked.
type Style struct {
	Color string    `json:"color"`
	Width float64   `json:"width"`
	Dash  []float64 `json:"dash,omitempty"`
}

var (
	styleCommitted = Style{Color: "#6b7280", Width: 2}
	styleSearching = Style{Color: "#3b82f6", Width: 2, Dash: []float64{6, 4}}
	styleHovering  = Style{Color: "#22c55e", Width: 3}
)

// Connector is a cubic Bézier from a column handle to a box, in screen space.
type Connector struct {
	ColumnID string         `json:"column_id"`
	BoxID    string         `json:"box_id,omitempty"`
	From     geometry.Point `json:"from"`
	C1       geometry.Point `json:"c1"`
	C2       geometry.Point `json:"c2"`
	To       geometry.Point `json:"to"`
	Style    Style          `json:"style"`
}

type OverlayBox struct {
	ID       string        `json:"id"`
	Rect     geometry.Rect `json:"rect"`
	ColumnID string        `json:"column_id,omitempty"`
	Hovered  bool          `json:"hovered"`
}

// Overlay is what the client draws on top of the template.
type Overlay struct {
	Mode       string             `json:"mode"`
	Transform  geometry.Transform `json:"transform"`
	Boxes      []OverlayBox       `json:"boxes"`
	Connectors []Connector        `json:"connectors"`
	Live       *Connector         `json:"live,omitempty"`
}

// Overlay builds the current overlay. Committed connectors are hidden
// while any drag is active so only the live gesture shows.
func (c *Controller) Overlay() Overlay {
	hover, _ := c.Hover()
	out := Overlay{
		Mode:       c.mode.String(),
		Transform:  c.transform,
		Boxes:      []OverlayBox{},
		Connectors: []Connector{},
	}
	for _, b := range c.boxes.All() {
		out.Boxes = append(out.Boxes, OverlayBox{
			ID:       b.ID,
			Rect:     c.transform.RectToScreen(b.Rect()),
			ColumnID: b.ColumnID,
			Hovered:  b.ID == hover,
		})
	}

	if c.mode == DraggingColumn {
		d := c.column
		to := d.current
		style := styleSearching
		if b, ok := c.boxes.Get(d.hover); ok && d.hover != "" {
			to = c.transform.ToScreen(b.Rect().Center())
			style = styleHovering
		}
		live := curve(d.start, to)
		live.ColumnID = d.columnID
		live.BoxID = d.hover
		live.Style = style
		out.Live = &live
	}
	if c.mode != Idle {
		return out
	}

	for _, m := range c.mappings.All() {
		from, ok := c.anchors[m.ColumnID]
		if !ok {
			continue
		}
		b, ok := c.boxes.Get(m.BoxID)
		if !ok {
			continue
		}
		conn := curve(from, c.transform.ToScreen(b.Rect().Center()))
		conn.ColumnID = m.ColumnID
		conn.BoxID = m.BoxID
		conn.Style = styleCommitted
		out.Connectors = append(out.Connectors, conn)
	}
	return out
}

// curve bends horizontally: both control points sit at the x midpoint.
func curve(from, to geometry.Point) Connector {
	mid := from.X + (to.X-from.X)/2
	return Connector{
		From: from,
		C1:   geometry.Point{X: mid, Y: from.Y},
		C2:   geometry.Point{X: mid, Y: to.Y},
		To:   to,
	}
}
