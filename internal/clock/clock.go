// Package clock provides the injectable time and randomness sources.
// Production wiring uses the system clock and a seeded PRNG; tests pin
// both so decisions are byte-for-byte reproducible.
package clock

import (
	"math/rand"
	"sync"
	"time"
)

// Clock is the engine's only source of time.
type Clock interface {
	// Now returns the current wall time.
	Now() time.Time
	// NowMillis returns Unix milliseconds, the engine's wire format.
	NowMillis() int64
	// Since measures elapsed time against the monotonic reading.
	Since(t time.Time) time.Duration
}

// System is the production clock.
type System struct{}

func NewSystem() System { return System{} }

func (System) Now() time.Time                 { return time.Now() }
func (System) NowMillis() int64               { return time.Now().UnixMilli() }
func (System) Since(t time.Time) time.Duration { return time.Since(t) }

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake starts a fake clock at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) NowMillis() int64 {
	return f.Now().UnixMilli()
}

func (f *Fake) Since(t time.Time) time.Duration {
	return f.Now().Sub(t)
}

// Advance moves the fake clock forward.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set pins the fake clock to an instant.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// RNG is the engine's randomness source. The only consumer is retry
// backoff jitter, so the interface stays minimal.
type RNG interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

// SeededRNG wraps math/rand with a fixed seed and a mutex; a pinned
// seed makes retry schedules deterministic under test.
type SeededRNG struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewSeededRNG(seed int64) *SeededRNG {
	return &SeededRNG{r: rand.New(rand.NewSource(seed))}
}

func (s *SeededRNG) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}
