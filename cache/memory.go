package cache

import (
	"context"
	"sync"
)

// MemoryCache keeps entries in a map guarded by a RWMutex.
type MemoryCache struct {
	mutex   sync.RWMutex
	data    map[string][]byte
	maxSize int
}

// NewMemoryCache creates a cache holding at most maxSize entries (0 for unbounded).
// When full, an arbitrary entry is evicted.
func NewMemoryCache(maxSize int) *MemoryCache {
	return &MemoryCache{data: make(map[string][]byte), maxSize: maxSize}
}

func (mc *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	v, ok := mc.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (mc *MemoryCache) Put(_ context.Context, key string, value []byte) error {
	stored := append([]byte(nil), value...)
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	if _, exists := mc.data[key]; !exists && mc.maxSize > 0 && len(mc.data) >= mc.maxSize {
		for k := range mc.data {
			delete(mc.data, k)
			break
		}
	}
	mc.data[key] = stored
	return nil
}

func (mc *MemoryCache) Has(_ context.Context, key string) (bool, error) {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	_, ok := mc.data[key]
	return ok, nil
}

// Len is the number of entries.
func (mc *MemoryCache) Len() int {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	return len(mc.data)
}
