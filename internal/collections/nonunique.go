// Package collections implements the NonuniqueMap pattern: a compact
// columnar representation for a length-N sequence drawn from a small set
// of distinct values — used for both a batch's per-photon material and
// its per-photon current volume.
//
// A dense inverse-index array paired with a small unique-value dictionary
// keeps the common case (a handful of distinct materials shared across
// millions of photons) cheap to update and cheap to query.
package collections

// NonuniqueMap is a dense Index []uint32 paired with a small Values []T
// dictionary. Values[0] is always the caller's sentinel (e.g. Vacuum, or a
// "no current volume" marker) so a freshly-allocated map of length N reads
// as all-sentinel without any Set calls.
type NonuniqueMap[T comparable] struct {
	Index  []uint32
	Values []T
}

// New creates a NonuniqueMap of length n, all entries pointing at the
// sentinel value.
func New[T comparable](n int, sentinel T) *NonuniqueMap[T] {
	return &NonuniqueMap[T]{
		Index:  make([]uint32, n),
		Values: []T{sentinel},
	}
}

// Len returns the number of positions (N), not the number of distinct
// values.
func (m *NonuniqueMap[T]) Len() int { return len(m.Index) }

// valueIndex returns the dictionary index for value, appending it if new.
func (m *NonuniqueMap[T]) valueIndex(value T) uint32 {
	for i, v := range m.Values {
		if v == value {
			return uint32(i)
		}
	}
	m.Values = append(m.Values, value)
	return uint32(len(m.Values) - 1)
}

// Set assigns value at every position named in positions (either a full
// index list or a boolean mask expressed as indices by the caller).
func (m *NonuniqueMap[T]) Set(positions []int, value T) {
	idx := m.valueIndex(value)
	for _, p := range positions {
		m.Index[p] = idx
	}
}

// SetMask assigns value at every position i where mask[i] is true.
func (m *NonuniqueMap[T]) SetMask(mask []bool, value T) {
	idx := m.valueIndex(value)
	for i, on := range mask {
		if on {
			m.Index[i] = idx
		}
	}
}

// SetFromAnother copies other's values into this map at the positions in
// positions (positions[i] receives other's i-th entry). Runs in
// O(len(other.Values) + len(positions)), not O(N): the dictionary merge is
// bounded by the (small) number of distinct values in other, not by N.
func (m *NonuniqueMap[T]) SetFromAnother(positions []int, other *NonuniqueMap[T]) {
	remap := make([]uint32, len(other.Values))
	for i, v := range other.Values {
		remap[i] = m.valueIndex(v)
	}
	for i, p := range positions {
		m.Index[p] = remap[other.Index[i]]
	}
}

// Inverse returns, for every distinct non-sentinel value, the list of
// positions holding it.
func (m *NonuniqueMap[T]) Inverse() map[T][]int {
	out := make(map[T][]int)
	sentinel := m.Values[0]
	for i, idx := range m.Index {
		v := m.Values[idx]
		if v == sentinel {
			continue
		}
		out[v] = append(out[v], i)
	}
	return out
}

// TypeMatching returns a boolean mask of positions whose value satisfies
// predicate.
func (m *NonuniqueMap[T]) TypeMatching(predicate func(T) bool) []bool {
	mask := make([]bool, len(m.Index))
	cache := make(map[uint32]bool, len(m.Values))
	for i, idx := range m.Index {
		match, ok := cache[idx]
		if !ok {
			match = predicate(m.Values[idx])
			cache[idx] = match
		}
		mask[i] = match
	}
	return mask
}

// Restore expands the compact representation back to a full []T.
func (m *NonuniqueMap[T]) Restore() []T {
	out := make([]T, len(m.Index))
	for i, idx := range m.Index {
		out[i] = m.Values[idx]
	}
	return out
}

// At returns the value at position i.
func (m *NonuniqueMap[T]) At(i int) T {
	return m.Values[m.Index[i]]
}
