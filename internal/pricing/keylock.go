package pricing

import "sync"

// keyLocks serializes writers per series key. Capture must treat
// append + reclassify + trend overwrite as one unit; concurrent captures
// on the same key would otherwise compute trends against a torn series.
// Reads bypass these locks entirely.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the key and returns its unlock function.
func (k *keyLocks) acquire(key string) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
