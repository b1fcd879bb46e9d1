// Package layout serializes the box and mapping state of an editor so it
// can be saved, restored, and replayed by the CLI.
package layout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/youruser/certgen/internal/boxes"
	"github.com/youruser/certgen/internal/mapping"
)

const Version = 1

type Layout struct {
	Version  int               `json:"version"`
	Boxes    []boxes.Box       `json:"boxes"`
	Mappings []mapping.Mapping `json:"mappings"`
}

// New snapshots boxes and mappings into a layout.
func New(list []boxes.Box, maps []mapping.Mapping) Layout {
	return Layout{Version: Version, Boxes: list, Mappings: maps}
}

// Validate rejects duplicate or empty box ids and mappings that point at
// boxes not in the layout.
func (l Layout) Validate() error {
	if l.Version > Version {
		return fmt.Errorf("layout version %d is newer than supported %d", l.Version, Version)
	}
	ids := make(map[string]bool, len(l.Boxes))
	for i, b := range l.Boxes {
		if b.ID == "" {
			return fmt.Errorf("box %d has no id", i)
		}
		if ids[b.ID] {
			return fmt.Errorf("duplicate box id %q", b.ID)
		}
		ids[b.ID] = true
		if b.Kind != "" && b.Kind != boxes.KindText && b.Kind != boxes.KindQR {
			return fmt.Errorf("box %q: unknown kind %q", b.ID, b.Kind)
		}
	}
	for _, m := range l.Mappings {
		if !ids[m.BoxID] {
			return fmt.Errorf("mapping for column %q targets unknown box %q", m.ColumnID, m.BoxID)
		}
	}
	return nil
}

// Store builds a box store and mapping set from the layout.
func (l Layout) Store() (*boxes.Store, *mapping.Set) {
	store := boxes.NewStore()
	store.Replace(l.Boxes)
	set := mapping.NewSet()
	set.Replace(l.Mappings)
	return store, set
}

func (l Layout) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}

func Decode(r io.Reader) (Layout, error) {
	var l Layout
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

func LoadFile(path string) (Layout, error) {
	fp, err := os.Open(path)
	if err != nil {
		return Layout{}, err
	}
	defer fp.Close()
	return Decode(fp)
}
