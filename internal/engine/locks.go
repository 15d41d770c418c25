package engine

import "sync"

// #region keyed-mutex
// keyedMutex serializes work per evidence id. Work on different evidence
// proceeds fully in parallel; the lock set only grows, which is acceptable
// for the bounded number of in-flight evidence items.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// #endregion keyed-mutex
