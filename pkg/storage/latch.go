package storage

import "sync"

// RWLatch is a reader/writer latch guarding a single frame's contents.
// It is a thin wrapper over sync.RWMutex named the way the rest of this
// package talks about page-level concurrency control (latches, not locks —
// a latch protects in-memory structure for the duration of an operation and
// carries no deadlock-detection semantics).
type RWLatch struct {
	mu sync.RWMutex
}

func (l *RWLatch) RLatch()   { l.mu.RLock() }
func (l *RWLatch) RUnlatch() { l.mu.RUnlock() }
func (l *RWLatch) WLatch()   { l.mu.Lock() }
func (l *RWLatch) WUnlatch() { l.mu.Unlock() }
