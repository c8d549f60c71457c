// Package store provides TableSource implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/convocation-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu     sync.RWMutex
	tables map[generic.Table][]generic.RawRecord
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[generic.Table][]generic.RawRecord)}
}

// NewMemoryFrom seeds a Memory store with a full snapshot.
func NewMemoryFrom(data generic.SheetData) *Memory {
	m := NewMemory()
	for _, t := range generic.Tables {
		m.Put(t, data.Get(t))
	}
	return m
}

// Put replaces the records of one table. Records are copied.
func (m *Memory) Put(table generic.Table, records []generic.RawRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = cloneRecords(records)
}

// Append adds records to the end of a table.
func (m *Memory) Append(table generic.Table, records ...generic.RawRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = append(m.tables[table], cloneRecords(records)...)
}

// LoadTables returns a copy of every table, so callers can't mutate the store.
func (m *Memory) LoadTables(_ context.Context) (generic.SheetData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var data generic.SheetData
	for _, t := range generic.Tables {
		data.Set(t, cloneRecords(m.tables[t]))
	}
	return data, nil
}

func cloneRecords(records []generic.RawRecord) []generic.RawRecord {
	if records == nil {
		return nil
	}
	out := make([]generic.RawRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

var _ generic.TableSource = (*Memory)(nil)
