package interaction

import (
	"fmt"

	"github.com/youruser/certgen/internal/boxes"
	"github.com/youruser/certgen/internal/geometry"
)

// EventType names a pointer event forwarded by the client.
type EventType string

const (
	EventBoxDown    EventType = "box_down"
	EventColumnDown EventType = "column_down"
	EventMove       EventType = "move"
	EventUp         EventType = "up"
	EventFrame      EventType = "frame"
	EventCancel     EventType = "cancel"
)

// Event is one pointer event in screen coordinates.
type Event struct {
	Type     EventType `json:"type"`
	BoxID    string    `json:"box_id,omitempty"`
	Handle   string    `json:"handle,omitempty"`
	ColumnID string    `json:"column_id,omitempty"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
}

func (e Event) point() geometry.Point { return geometry.Point{X: e.X, Y: e.Y} }

// Apply feeds events to the controller in order. It stops at the first
// event that cannot be applied; earlier events stay applied.
func (c *Controller) Apply(events []Event) error {
	for i, e := range events {
		if err := c.apply(e); err != nil {
			return fmt.Errorf("event %d (%s): %w", i, e.Type, err)
		}
	}
	return nil
}

func (c *Controller) apply(e Event) error {
	switch e.Type {
	case EventBoxDown:
		h, err := boxes.ParseHandle(e.Handle)
		if err != nil {
			return err
		}
		return c.BoxDown(e.BoxID, h, e.point())
	case EventColumnDown:
		if e.ColumnID == "" {
			return fmt.Errorf("column_id is required")
		}
		return c.ColumnDown(e.ColumnID, e.point())
	case EventMove:
		c.Move(e.point())
	case EventUp:
		c.Up(e.point())
	case EventFrame:
		c.Frame()
	case EventCancel:
		c.Cancel()
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}
