// Package cache holds the in-process caches for computed aggregates. Keys
// embed the revision of the store they were computed from, so entries never
// need invalidating; they only age out.
package cache

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches whose expired entries can be swept.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps every registered cache on a fixed interval.
type Manager struct {
	mu      sync.Mutex
	caches  []Cleaner
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func NewManager() *Manager {
	return &Manager{
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	m.caches = append(m.caches, c)
	m.mu.Unlock()
}

// StartCleanup launches the sweeper. Call it at most once.
func (m *Manager) StartCleanup(interval time.Duration) {
	go func() {
		defer close(m.stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				if n := m.sweep(); n > 0 {
					slog.Debug("Expired cache entries removed", "count", n)
				}
			}
		}
	}()
}

func (m *Manager) sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.caches {
		n += c.CleanExpired()
	}
	return n
}

// Stop halts the sweeper and waits for it to exit. Safe to call repeatedly,
// but only after StartCleanup.
func (m *Manager) Stop() {
	m.once.Do(func() {
		close(m.stop)
		<-m.stopped
	})
}

// RevisionKey builds "name@revision[:part...]".
func RevisionKey(name string, revision uint64, parts ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s@%d", name, revision)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}

// GetOrCompute returns the cached value for key, computing and storing it on
// a miss.
func GetOrCompute[T any](c Cache[T], key string, compute func() T) T {
	if v, ok := c.Get(key); ok {
		return v
	}
	v := compute()
	c.Set(key, v)
	return v
}
