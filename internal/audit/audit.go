// Package audit keeps a bounded in-memory trail of emitted decision
// packets and webhook receipts. The log is a ring: once full, the
// oldest entry is dropped. Readers always get copies; a packet handed
// out can never observe later mutation.
package audit

import (
	"sync"

	"github.com/pulsedeck/decisiond/internal/models"
)

// Log is the shared audit trail. Safe for concurrent use.
type Log struct {
	mu        sync.RWMutex
	decisions *ring[models.DecisionPacket]
	receipts  *ring[models.Receipt]
}

func NewLog(size int) *Log {
	if size < 1 {
		size = 1
	}
	return &Log{
		decisions: newRing[models.DecisionPacket](size),
		receipts:  newRing[models.Receipt](size),
	}
}

// RecordDecision appends a packet to the trail.
func (l *Log) RecordDecision(p models.DecisionPacket) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.decisions.push(p)
}

// RecordReceipt appends a webhook receipt.
func (l *Log) RecordReceipt(r models.Receipt) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.receipts.push(r)
}

// RecentDecisions returns up to n packets, newest first.
func (l *Log) RecentDecisions(n int) []models.DecisionPacket {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.decisions.recent(n)
}

// RecentReceipts returns up to n receipts, newest first.
func (l *Log) RecentReceipts(n int) []models.Receipt {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.receipts.recent(n)
}

// Sizes reports current entry counts for health output.
func (l *Log) Sizes() (decisions, receipts int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.decisions.len(), l.receipts.len()
}

// ring is a fixed-capacity append-only buffer that overwrites its
// oldest slot when full.
type ring[T any] struct {
	buf   []T
	next  int
	count int
}

func newRing[T any](size int) *ring[T] {
	return &ring[T]{buf: make([]T, size)}
}

func (r *ring[T]) push(v T) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

func (r *ring[T]) len() int { return r.count }

// recent copies out up to n entries, newest first.
func (r *ring[T]) recent(n int) []T {
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}
