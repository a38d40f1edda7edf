package agent

import (
	"sync"
	"time"
)

const (
	defaultThreadTTL   = 1 * time.Hour
	threadEvictionTick = 5 * time.Minute
)

// threadEntry wraps a State with a last-accessed timestamp for TTL eviction.
// busy serializes runs against the same thread.
type threadEntry struct {
	state      *State
	lastAccess time.Time
	busy       sync.Mutex
}

// ThreadStore is an in-memory thread state checkpointer with TTL-based eviction.
// State does not survive a process restart.
type ThreadStore struct {
	mu      sync.RWMutex
	threads map[string]*threadEntry
	ttl     time.Duration
	stop    chan struct{}
	done    chan struct{}
}

// NewThreadStore creates a thread store and starts eviction. A non-positive
// ttl selects the default of one hour. Call Close to stop the eviction loop.
func NewThreadStore(ttl time.Duration) *ThreadStore {
	if ttl <= 0 {
		ttl = defaultThreadTTL
	}
	ts := &ThreadStore{
		threads: make(map[string]*threadEntry),
		ttl:     ttl,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go ts.evictLoop()
	return ts
}

// Checkout returns the state for threadID, creating it if needed, and holds
// the thread until release is called. Only one run owns a thread at a time.
func (ts *ThreadStore) Checkout(threadID string) (*State, func()) {
	ts.mu.Lock()
	entry, ok := ts.threads[threadID]
	if !ok {
		entry = &threadEntry{state: &State{
			ThreadID: threadID,
			Messages: []Message{},
			Files:    make(map[string]string),
		}}
		ts.threads[threadID] = entry
	}
	entry.lastAccess = time.Now()
	ts.mu.Unlock()

	entry.busy.Lock()
	return entry.state, func() {
		ts.mu.Lock()
		entry.lastAccess = time.Now()
		ts.mu.Unlock()
		entry.busy.Unlock()
	}
}

// Get returns the thread state or nil.
func (ts *ThreadStore) Get(threadID string) *State {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	if entry, ok := ts.threads[threadID]; ok {
		return entry.state
	}
	return nil
}

// Delete removes a thread.
func (ts *ThreadStore) Delete(threadID string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.threads, threadID)
}

// Len returns the number of stored threads.
func (ts *ThreadStore) Len() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.threads)
}

// Close stops the eviction loop.
func (ts *ThreadStore) Close() {
	select {
	case <-ts.stop:
	default:
		close(ts.stop)
	}
	<-ts.done
}

func (ts *ThreadStore) evictLoop() {
	defer close(ts.done)
	ticker := time.NewTicker(threadEvictionTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ts.evict(time.Now())
		case <-ts.stop:
			return
		}
	}
}

func (ts *ThreadStore) evict(now time.Time) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	cutoff := now.Add(-ts.ttl)
	for id, entry := range ts.threads {
		if entry.lastAccess.Before(cutoff) && entry.busy.TryLock() {
			entry.busy.Unlock()
			delete(ts.threads, id)
		}
	}
}
