package state

import "maps"

// MemoryStore is a Store that never touches disk.
type MemoryStore struct {
	entries map[string]Status
	writes  int
}

// NewMemoryStore returns a store seeded with entries.
func NewMemoryStore(entries map[string]Status) *MemoryStore {
	m := &MemoryStore{entries: make(map[string]Status)}
	maps.Copy(m.entries, entries)
	return m
}

// Writes reports how many mutations actually changed the state.
func (m *MemoryStore) Writes() int { return m.writes }

func (m *MemoryStore) Status(step string) Status { return m.entries[step] }

func (m *MemoryStore) IsCompleted(step string) bool { return m.entries[step] == StatusCompleted }

func (m *MemoryStore) MarkCompleted(step string) error {
	if err := checkStep(step); err != nil {
		return err
	}
	if transition(m.entries, step, StatusCompleted) {
		m.writes++
	}
	return nil
}

func (m *MemoryStore) MarkSkipped(step string) error {
	if err := checkStep(step); err != nil {
		return err
	}
	if transition(m.entries, step, StatusSkipped) {
		m.writes++
	}
	return nil
}

func (m *MemoryStore) CompletedCount() int {
	n := 0
	for _, st := range m.entries {
		if st == StatusCompleted {
			n++
		}
	}
	return n
}

func (m *MemoryStore) Reset(step string) error {
	if err := checkStep(step); err != nil {
		return err
	}
	if _, ok := m.entries[step]; ok {
		delete(m.entries, step)
		m.writes++
	}
	return nil
}

func (m *MemoryStore) ResetAll() error {
	if len(m.entries) > 0 {
		clear(m.entries)
		m.writes++
	}
	return nil
}

func (m *MemoryStore) Entries() map[string]Status { return maps.Clone(m.entries) }

// Reload is a no-op; there is no backing record.
func (m *MemoryStore) Reload() error { return nil }
