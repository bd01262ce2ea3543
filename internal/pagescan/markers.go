package pagescan

import "sync"

// Markers records element keys already processed.
type Markers struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMarkers returns an empty marker set.
func NewMarkers() *Markers {
	return &Markers{seen: map[string]struct{}{}}
}

// Mark returns true the first time key is seen.
func (m *Markers) Mark(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[key]; ok {
		return false
	}
	m.seen[key] = struct{}{}
	return true
}

// Fresh marks and returns the elements not seen before.
func (m *Markers) Fresh(elements []Element) []Element {
	var out []Element
	for _, el := range elements {
		if m.Mark(el.Key) {
			out = append(out, el)
		}
	}
	return out
}

// Len is the number of marked keys.
func (m *Markers) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
