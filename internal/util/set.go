package util

// Set holds a unique collection of comparable values. The engine uses it
// for transition tables and status filters; the server uses it to track
// live websocket clients
type Set[K comparable] map[K]struct{}

// SetOf builds a set from the given values, dropping duplicates
func SetOf[K comparable](values ...K) Set[K] {
	res := make(Set[K], len(values))
	for _, v := range values {
		res.Add(v)
	}
	return res
}

// Add inserts a value into the set
func (s Set[K]) Add(v K) {
	s[v] = struct{}{}
}

// Remove deletes a value from the set
func (s Set[K]) Remove(v K) {
	delete(s, v)
}

// Contains reports whether the value is in the set
func (s Set[K]) Contains(v K) bool {
	_, ok := s[v]
	return ok
}

// IsEmpty reports whether the set holds no values
func (s Set[K]) IsEmpty() bool {
	return len(s) == 0
}
