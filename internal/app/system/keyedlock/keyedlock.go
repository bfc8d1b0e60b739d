// internal/app/system/keyedlock/keyedlock.go

// Package keyedlock hands out one mutex per key. Keys nobody holds or waits
// on are forgotten, so the map stays as small as the set of busy keys.
package keyedlock

import "sync"

// Map is a set of keyed mutexes. The zero value is not usable; call New.
type Map struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *Map {
	return &Map{locks: make(map[string]*entry)}
}

// Lock acquires key and returns its release func. The release func must be
// called exactly once.
func (k *Map) Lock(key string) (unlock func()) {
	k.mu.Lock()
	ent, ok := k.locks[key]
	if !ok {
		ent = &entry{}
		k.locks[key] = ent
	}
	ent.refs++
	k.mu.Unlock()

	ent.mu.Lock()
	return func() {
		ent.mu.Unlock()
		k.mu.Lock()
		ent.refs--
		if ent.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Len reports how many keys are held or waited on.
func (k *Map) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
