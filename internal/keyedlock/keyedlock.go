// Package keyedlock provides in-process advisory locks addressed by string
// key, used to serialize work on one remote object at a time.
package keyedlock

import (
	"sync"

	"github.com/zeebo/xxh3"
)

const shardCount = 64

type shard struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// Registry hands out one mutex per key. Entries are dropped once the last
// holder releases, so the map stays bounded by concurrent activity.
type Registry struct {
	shards [shardCount]shard
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].locks = make(map[string]*entry)
	}
	return r
}

func (r *Registry) shardFor(key string) *shard {
	return &r.shards[xxh3.HashString(key)%shardCount]
}

// Acquire blocks until the key's lock is held and returns the release
// function. Release exactly once.
func (r *Registry) Acquire(key string) func() {
	s := r.shardFor(key)

	s.mu.Lock()
	e, ok := s.locks[key]
	if !ok {
		e = &entry{}
		s.locks[key] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			s.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(s.locks, key)
			}
			s.mu.Unlock()
		})
	}
}
