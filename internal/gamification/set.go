package gamification

import (
	"encoding/json"
	"strings"
)

// Set is an insertion-ordered set of identifiers. It serialises as a JSON array so the
// persisted record keeps the unlock order, while membership checks stay map lookups.
// The zero value is an empty set ready to use.
type Set struct {
	items []string
	index map[string]struct{}
}

// NewSet builds a set from ids, skipping blanks and duplicates.
func NewSet(ids ...string) Set {
	var s Set
	for _, id := range ids {
		s.add(id)
	}
	return s
}

// Has reports whether id is a member.
func (s Set) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of members.
func (s Set) Len() int {
	return len(s.items)
}

// Items returns the members in insertion order. The slice is a copy.
func (s Set) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// With returns a copy of s that also contains id. s itself is not modified.
func (s Set) With(id string) Set {
	if s.Has(id) || strings.TrimSpace(id) == "" {
		return s
	}
	out := s.Clone()
	out.add(id)
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := Set{
		items: make([]string, len(s.items), len(s.items)+1),
		index: make(map[string]struct{}, len(s.items)+1),
	}
	copy(out.items, s.items)
	for _, id := range s.items {
		out.index[id] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold the same members in the same order.
func (s Set) Equal(other Set) bool {
	if len(s.items) != len(other.items) {
		return false
	}
	for i := range s.items {
		if s.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

func (s *Set) add(id string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[id]; ok {
		return
	}
	s.index[id] = struct{}{}
	s.items = append(s.items, id)
}

// MarshalJSON encodes the set as an array, never null.
func (s Set) MarshalJSON() ([]byte, error) {
	if s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

// UnmarshalJSON accepts an array of strings; duplicates collapse. null decodes to empty.
func (s *Set) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewSet(ids...)
	return nil
}
