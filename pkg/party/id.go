// Package party defines the identifiers used to address participants in a
// threshold protocol instance.
package party

import "sort"

// ID identifies a single party within a threshold scheme. It corresponds to
// the Shamir evaluation point x = ID for that party's share.
type ID uint32

// IDSlice is a sortable, de-duplicated collection of party IDs.
type IDSlice []ID

// NewIDSlice returns a sorted defensive copy of ids with duplicates removed.
func NewIDSlice(ids []ID) IDSlice {
	s := make(IDSlice, len(ids))
	copy(s, ids)
	sort.Sort(s)
	out := s[:0]
	for _, id := range s {
		if len(out) == 0 || out[len(out)-1] != id {
			out = append(out, id)
		}
	}
	return out
}

func (s IDSlice) Len() int           { return len(s) }
func (s IDSlice) Less(i, j int) bool { return s[i] < s[j] }
func (s IDSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Contains reports whether id is present in the slice.
func (s IDSlice) Contains(id ID) bool {
	for _, other := range s {
		if other == id {
			return true
		}
	}
	return false
}

// Remove returns a copy of s with id removed, if present.
func (s IDSlice) Remove(id ID) IDSlice {
	out := make(IDSlice, 0, len(s))
	for _, other := range s {
		if other != id {
			out = append(out, other)
		}
	}
	return out
}
