// Package mapping tracks which dataset column feeds which box.
//
// A column maps to at most one box. Several columns may point at the same
// box; lookups by box resolve that with last-mapped-wins.
package mapping

import "sort"

// Mapping associates a dataset column with a box. Seq orders upserts so
// that precedence does not depend on slice position.
type Mapping struct {
	ColumnID string `json:"column_id"`
	BoxID    string `json:"box_id"`
	Seq      uint64 `json:"seq"`
}

type Set struct {
	entries []Mapping
	seq     uint64
}

func NewSet() *Set { return &Set{} }

// Upsert points column at box, overwriting any existing entry for column.
// Re-applying the current pair is a no-op.
func (s *Set) Upsert(column, box string) Mapping {
	for i := range s.entries {
		if s.entries[i].ColumnID != column {
			continue
		}
		if s.entries[i].BoxID != box {
			s.seq++
			s.entries[i].BoxID = box
			s.entries[i].Seq = s.seq
		}
		return s.entries[i]
	}
	s.seq++
	m := Mapping{ColumnID: column, BoxID: box, Seq: s.seq}
	s.entries = append(s.entries, m)
	return m
}

// BoxFor returns the box a column is mapped to.
func (s *Set) BoxFor(column string) (string, bool) {
	for _, m := range s.entries {
		if m.ColumnID == column {
			return m.BoxID, true
		}
	}
	return "", false
}

// ColumnFor returns the most recently mapped column targeting box.
func (s *Set) ColumnFor(box string) (string, bool) {
	var best *Mapping
	for i := range s.entries {
		m := &s.entries[i]
		if m.BoxID == box && (best == nil || m.Seq > best.Seq) {
			best = m
		}
	}
	if best == nil {
		return "", false
	}
	return best.ColumnID, true
}

// RemoveBox drops every entry targeting box and reports how many went.
func (s *Set) RemoveBox(box string) int {
	return s.removeWhere(func(m Mapping) bool { return m.BoxID == box })
}

// RemoveColumnsNotIn drops entries whose column is absent from headers
// and returns the removed column ids.
func (s *Set) RemoveColumnsNotIn(headers []string) []string {
	keep := make(map[string]bool, len(headers))
	for _, h := range headers {
		keep[h] = true
	}
	var gone []string
	s.removeWhere(func(m Mapping) bool {
		if keep[m.ColumnID] {
			return false
		}
		gone = append(gone, m.ColumnID)
		return true
	})
	return gone
}

// Replace installs entries from a saved layout, replaying them in Seq
// order so box precedence survives a save/load. Later duplicates of a
// column override earlier ones.
func (s *Set) Replace(list []Mapping) {
	ordered := make([]Mapping, len(list))
	copy(ordered, list)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })
	s.entries = nil
	s.seq = 0
	for _, m := range ordered {
		if m.ColumnID == "" || m.BoxID == "" {
			continue
		}
		s.Upsert(m.ColumnID, m.BoxID)
	}
}

// Clone returns an independent copy that keeps upsert precedence.
func (s *Set) Clone() *Set {
	return &Set{entries: s.All(), seq: s.seq}
}

// All returns a copy of the entries in insertion order.
func (s *Set) All() []Mapping {
	out := make([]Mapping, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Set) Len() int { return len(s.entries) }

func (s *Set) removeWhere(drop func(Mapping) bool) int {
	kept := s.entries[:0]
	n := 0
	for _, m := range s.entries {
		if drop(m) {
			n++
			continue
		}
		kept = append(kept, m)
	}
	s.entries = kept
	return n
}
