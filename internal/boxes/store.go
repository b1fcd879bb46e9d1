// Package boxes holds the text regions placed on a certificate template.
package boxes

import (
	"errors"

	"github.com/google/uuid"
)

var ErrBoxNotFound = errors.New("box not found")

// Store is the ordered set of boxes. Iteration order is creation order,
// which is also the hit-test priority.
type Store struct {
	boxes   []Box
	created int
	newID   func() string
}

func NewStore() *Store {
	return &Store{newID: uuid.NewString}
}

// Add appends a default-sized box staggered from the previous additions.
func (s *Store) Add() Box {
	off := origin + stagger*float64(s.created%10)
	s.created++
	b := Box{
		ID:     s.newID(),
		X:      off,
		Y:      off,
		Width:  DefaultWidth,
		Height: DefaultHeight,
		Kind:   KindText,
	}
	s.boxes = append(s.boxes, b)
	return b
}

// Get returns the box with the given id.
func (s *Store) Get(id string) (Box, bool) {
	if i := s.index(id); i >= 0 {
		return s.boxes[i], true
	}
	return Box{}, false
}

// Update replaces the box whose id matches b.ID.
func (s *Store) Update(b Box) (Box, error) {
	i := s.index(b.ID)
	if i < 0 {
		return Box{}, ErrBoxNotFound
	}
	b = b.Normalize()
	s.boxes[i] = b
	return b, nil
}

// Delete removes the box with the given id.
func (s *Store) Delete(id string) error {
	i := s.index(id)
	if i < 0 {
		return ErrBoxNotFound
	}
	s.boxes = append(s.boxes[:i], s.boxes[i+1:]...)
	return nil
}

// Replace installs a complete box list, e.g. from a saved layout.
func (s *Store) Replace(list []Box) {
	s.boxes = make([]Box, 0, len(list))
	for _, b := range list {
		if b.ID == "" {
			b.ID = s.newID()
		}
		s.boxes = append(s.boxes, b.Normalize())
	}
	s.created = len(s.boxes)
}

// SetColumn updates the display-only column label of a box.
func (s *Store) SetColumn(id, column string) {
	if i := s.index(id); i >= 0 {
		s.boxes[i].ColumnID = column
	}
}

// ClearColumn removes the display label from every box showing column.
func (s *Store) ClearColumn(column string) {
	for i := range s.boxes {
		if s.boxes[i].ColumnID == column {
			s.boxes[i].ColumnID = ""
		}
	}
}

// All returns a copy of the boxes in creation order.
func (s *Store) All() []Box {
	out := make([]Box, len(s.boxes))
	copy(out, s.boxes)
	return out
}

func (s *Store) Len() int { return len(s.boxes) }

func (s *Store) index(id string) int {
	for i, b := range s.boxes {
		if b.ID == id {
			return i
		}
	}
	return -1
}
