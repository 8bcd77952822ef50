package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryCache is a process-local Backend with TTLs and a size cap enforced
// by a background cleanup loop.
type MemoryCache struct {
	data            sync.Map
	maxSize         int
	cleanupInterval time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryCache(maxSize int, cleanupInterval time.Duration) *MemoryCache {
	mc := &MemoryCache{
		maxSize:         maxSize,
		cleanupInterval: cleanupInterval,
		stopCh:          make(chan struct{}),
	}
	go mc.cleanupLoop()
	return mc
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := m.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	entry := val.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		m.data.Delete(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.data.Store(key, &memoryEntry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.data.Delete(key)
	return nil
}

func (m *MemoryCache) Close() error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	return nil
}

func (m *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

// cleanup drops expired entries, then the soonest-to-expire ones beyond maxSize.
func (m *MemoryCache) cleanup() {
	now := time.Now()
	type live struct {
		key       string
		expiresAt time.Time
	}
	var entries []live

	m.data.Range(func(key, value interface{}) bool {
		k := key.(string)
		entry := value.(*memoryEntry)
		if now.After(entry.expiresAt) {
			m.data.Delete(k)
		} else {
			entries = append(entries, live{k, entry.expiresAt})
		}
		return true
	})

	if len(entries) > m.maxSize {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].expiresAt.Before(entries[j].expiresAt)
		})
		for _, e := range entries[:len(entries)-m.maxSize] {
			m.data.Delete(e.key)
		}
	}
}
