// Package storage provides blob persistence for the history collection.
// Each backend stores one opaque blob under one well-known location and
// rewrites it whole on every save.
package storage

import (
	"context"
	"sync"
)

// Backend loads and saves a single blob. Load returns (nil, nil) when
// nothing has been saved yet; callers treat that as an empty collection.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Memory is an in-process Backend with no durability. It backs tests and
// ephemeral runs.
type Memory struct {
	mu   sync.Mutex
	data []byte
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *Memory) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make([]byte, len(data))
	copy(m.data, data)
	return nil
}
