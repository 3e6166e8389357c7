package securestore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Op is a single write in an atomic batch. Delete wins over Value.
type Op struct {
	Key       string
	Value     []byte
	Delete    bool
	ExpiresAt *time.Time
}

func Put(key string, value []byte, expiresAt *time.Time) Op {
	return Op{Key: key, Value: value, ExpiresAt: expiresAt}
}

func Del(key string) Op {
	return Op{Key: key, Delete: true}
}

// Backend is the raw key/value tier underneath the Store. Get returns nil,nil
// for a missing key. Apply must commit all ops or none.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Apply(ctx context.Context, ops ...Op) error
}

// ExpiryIndex is implemented by backends that can list keys whose recorded
// expiry falls in [after, before).
type ExpiryIndex interface {
	Expiring(ctx context.Context, after, before time.Time) ([]string, error)
}

type memoryItem struct {
	value     []byte
	expiresAt *time.Time
}

// MemoryBackend keeps everything in process memory. It offers no at-rest
// protection and is meant for tests and the local CLI.
type MemoryBackend struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

var (
	_ Backend     = (*MemoryBackend)(nil)
	_ ExpiryIndex = (*MemoryBackend)(nil)
)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: make(map[string]memoryItem)}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), item.value...), nil
}

func (m *MemoryBackend) Apply(ctx context.Context, ops ...Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range ops {
		if op.Delete {
			delete(m.items, op.Key)
			continue
		}
		m.items[op.Key] = memoryItem{value: append([]byte(nil), op.Value...), expiresAt: op.ExpiresAt}
	}
	return nil
}

func (m *MemoryBackend) Expiring(ctx context.Context, after, before time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k, item := range m.items {
		if item.expiresAt != nil && !item.expiresAt.Before(after) && item.expiresAt.Before(before) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Len reports the number of stored keys.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
