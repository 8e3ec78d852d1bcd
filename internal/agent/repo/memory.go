package repo

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// MemoryResponseCache is a process-local cache used in tests and when Redis
// is not configured.
type MemoryResponseCache struct {
	mu      sync.RWMutex
	entries map[string]*schema.Message
}

func NewMemoryResponseCache() *MemoryResponseCache {
	return &MemoryResponseCache{entries: make(map[string]*schema.Message)}
}

func (m *MemoryResponseCache) Get(_ context.Context, key string) (*schema.Message, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.entries[key]
	return msg, ok, nil
}

func (m *MemoryResponseCache) Set(_ context.Context, key string, message *schema.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = message
	return nil
}
