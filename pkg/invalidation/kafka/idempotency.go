package kafka

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultDedupeSize = 4096

// versionGate admits a listing change only when its version is newer than
// the last one applied for that listing. Wire events are gated per source.
// A version is recorded only once its invalidation has succeeded, so a
// failed message stays fresh for redelivery. Evicted entries admit a replay
// again, which only costs an extra drop.
type versionGate struct {
	mu   sync.Mutex
	seen *lru.Cache[string, uint64]
}

func newVersionGate(size int, onEvict func()) *versionGate {
	if size <= 0 {
		size = defaultDedupeSize
	}
	var cb func(string, uint64)
	if onEvict != nil {
		cb = func(string, uint64) { onEvict() }
	}
	c, _ := lru.NewWithEvict(size, cb)
	return &versionGate{seen: c}
}

// fresh reports whether v is newer than the last recorded version for key.
func (g *versionGate) fresh(key string, v uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	last, ok := g.seen.Get(key)
	return !ok || v > last
}

// record marks v as applied for key. An older v never lowers the mark.
func (g *versionGate) record(key string, v uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if last, ok := g.seen.Peek(key); ok && v <= last {
		return
	}
	g.seen.Add(key, v)
}

func (g *versionGate) last(key string) (uint64, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen.Peek(key)
}
