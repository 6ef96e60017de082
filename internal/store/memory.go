package store

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// Memory is an in-process Store. Records are copied on the way in and out.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemory creates an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*Record)}
}

func (m *Memory) Put(_ context.Context, r *Record) error {
	if r == nil || r.ID == "" {
		return eris.New("store: record id is required")
	}
	r.touch(time.Now().UTC())
	m.mu.Lock()
	m.records[r.ID] = r.clone()
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.clone(), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.records, id)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
