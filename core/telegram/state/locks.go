package state

import "sync"

// KeyLocks hands out one mutex per chat ID. Entries are dropped once no
// goroutine holds or waits for them, so idle chats cost nothing.
type KeyLocks struct {
	mu    sync.Mutex
	locks map[int64]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyLocks returns an empty lock table.
func NewKeyLocks() *KeyLocks {
	return &KeyLocks{locks: make(map[int64]*keyLock)}
}

// Lock blocks until the chat's lock is held and returns the matching unlock.
func (k *KeyLocks) Lock(chatID int64) (unlock func()) {
	k.mu.Lock()
	l, ok := k.locks[chatID]
	if !ok {
		l = &keyLock{}
		k.locks[chatID] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()
			k.mu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(k.locks, chatID)
			}
			k.mu.Unlock()
		})
	}
}

// Len reports how many chats currently hold or wait for a lock.
func (k *KeyLocks) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
