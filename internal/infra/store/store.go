// Package store provides key-value slots for small persisted values.
package store

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/osa030/vinylbox/internal/app/favorites"
)

// Slot is a key-value slot that can be closed.
type Slot interface {
	favorites.Slot
	Close() error
}

// Open opens the slot kind named by store ("memory", "file" or "sqlite").
func Open(store, path string) (Slot, error) {
	switch store {
	case "memory":
		return NewMemorySlot(), nil
	case "file":
		return NewFileSlot(path)
	case "sqlite":
		return NewSQLiteSlot(path)
	default:
		return nil, errors.Newf("unsupported favorites store: %s", store)
	}
}

// MemorySlot keeps values in memory only.
type MemorySlot struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemorySlot creates an empty in-memory slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{data: make(map[string][]byte)}
}

func (s *MemorySlot) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemorySlot) Set(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemorySlot) Close() error { return nil }
