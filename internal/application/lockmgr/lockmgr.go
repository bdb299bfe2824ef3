package lockmgr

import (
	"context"
	"sync"
	"time"
)

// Manager serializes operations per key (wallet id, escrow hold id). Locks
// exist only while held or contended; entries are reference-counted so the
// map does not grow with the number of wallets ever seen.
type Manager struct {
	mu       sync.Mutex
	entries  map[string]*entry
	attempts int
	backoff  time.Duration
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New builds a manager that tries a lock attempts times with backoff between
// tries before giving up, bounding how long a caller can block on a busy key.
func New(attempts int, backoff time.Duration) *Manager {
	if attempts < 1 {
		attempts = 1
	}
	if backoff <= 0 {
		backoff = 10 * time.Millisecond
	}
	return &Manager{
		entries:  make(map[string]*entry),
		attempts: attempts,
		backoff:  backoff,
	}
}

// Acquire takes the lock for key, returning the unlock function. It fails
// only when the context is cancelled or the bounded attempts are exhausted;
// the caller should surface a transient conflict error in that case.
func (m *Manager) Acquire(ctx context.Context, key string) (unlock func(), ok bool) {
	e := m.retain(key)

	for i := 0; ; i++ {
		if e.mu.TryLock() {
			return func() {
				e.mu.Unlock()
				m.release(key)
			}, true
		}
		if i+1 >= m.attempts {
			m.release(key)
			return nil, false
		}
		select {
		case <-ctx.Done():
			m.release(key)
			return nil, false
		case <-time.After(m.backoff):
		}
	}
}

func (m *Manager) retain(key string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	e.refs++
	return e
}

func (m *Manager) release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(m.entries, key)
	}
}
