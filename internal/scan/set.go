package scan

import "assetcdn/internal/assets"

// Set is an insertion-ordered set of requests keyed by identity.
type Set struct {
	index map[string]int
	items []assets.Request
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{index: map[string]int{}}
}

// Add inserts req and reports whether it was new. The first occurrence wins.
func (s *Set) Add(req assets.Request) bool {
	id := req.Identity()
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = len(s.items)
	s.items = append(s.items, req)
	return true
}

// Len returns the number of distinct requests.
func (s *Set) Len() int {
	return len(s.items)
}

// Requests returns the requests in first-seen order.
func (s *Set) Requests() []assets.Request {
	return append([]assets.Request(nil), s.items...)
}
