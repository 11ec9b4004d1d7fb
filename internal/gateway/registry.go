package gateway

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultRegistryShards = 8

// Registry is the set of live projectile ids, sharded by the xxhash of the id.
type Registry struct {
	shards []registryShard
}

type registryShard struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewRegistry creates a registry with the given number of shards (8 when shards < 1).
func NewRegistry(shards int) *Registry {
	if shards < 1 {
		shards = defaultRegistryShards
	}
	r := &Registry{shards: make([]registryShard, shards)}
	for i := range r.shards {
		r.shards[i].ids = make(map[string]struct{})
	}
	return r
}

func (r *Registry) shard(id string) *registryShard {
	return &r.shards[xxhash.Sum64String(id)%uint64(len(r.shards))]
}

// Add registers id and reports whether it was new.
func (r *Registry) Add(id string) bool {
	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Remove drops id and reports whether it was present.
func (r *Registry) Remove(id string) bool {
	s := r.shard(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; !ok {
		return false
	}
	delete(s.ids, id)
	return true
}

func (r *Registry) Contains(id string) bool {
	s := r.shard(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		r.shards[i].mu.RLock()
		n += len(r.shards[i].ids)
		r.shards[i].mu.RUnlock()
	}
	return n
}

// IDs returns the live ids in sorted order.
func (r *Registry) IDs() []string {
	var out []string
	for i := range r.shards {
		r.shards[i].mu.RLock()
		for id := range r.shards[i].ids {
			out = append(out, id)
		}
		r.shards[i].mu.RUnlock()
	}
	sort.Strings(out)
	return out
}

// Clear empties the registry and returns the removed ids in sorted order.
func (r *Registry) Clear() []string {
	var out []string
	for i := range r.shards {
		s := &r.shards[i]
		s.mu.Lock()
		for id := range s.ids {
			out = append(out, id)
		}
		s.ids = make(map[string]struct{})
		s.mu.Unlock()
	}
	sort.Strings(out)
	return out
}
