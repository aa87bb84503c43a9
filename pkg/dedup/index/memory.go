package index

import "sync"

// Memory is the in-process [Index]: a mutex-guarded dense map keyed by
// the 32-bit fingerprint.
//
// The map stands in for a direct-addressed table over the full
// fingerprint space; lookups and inserts are O(1) and unbounded growth
// tops out at the population of distinct fingerprints observed.
type Memory struct {
	mu      sync.Mutex
	entries map[uint32]Entry
}

// NewMemory returns an empty in-process index.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[uint32]Entry),
	}
}

// Get returns the entry recorded for fp, if any.
func (m *Memory) Get(fp uint32) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[fp]

	return e, ok, nil
}

// Set records entry for fp, replacing any prior entry.
func (m *Memory) Set(fp uint32, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[fp] = entry

	return nil
}

// Len returns the number of recorded fingerprints.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// Close is a no-op for the in-process index.
func (m *Memory) Close() error {
	return nil
}
