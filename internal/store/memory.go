package store

import (
	"context"
	"sync"

	"github.com/pulsedeck/decisiond/internal/clock"
	"github.com/pulsedeck/decisiond/internal/models"
)

// MemorySignalStore is the in-process SignalStore backend.
type MemorySignalStore struct {
	mu    sync.RWMutex
	clk   clock.Clock
	byKey map[string]map[models.Timeframe]models.StoredSignal
}

func NewMemorySignalStore(clk clock.Clock) *MemorySignalStore {
	return &MemorySignalStore{
		clk:   clk,
		byKey: make(map[string]map[models.Timeframe]models.StoredSignal),
	}
}

func (s *MemorySignalStore) Put(_ context.Context, sig models.EnrichedSignal, receivedAt int64, validityMinutes int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticker := sig.Instrument.Ticker
	tf := sig.Signal.Timeframe
	if existing, ok := s.byKey[ticker][tf]; ok && receivedAt < existing.ReceivedAt {
		return false
	}
	if s.byKey[ticker] == nil {
		s.byKey[ticker] = make(map[models.Timeframe]models.StoredSignal)
	}
	s.byKey[ticker][tf] = models.StoredSignal{
		Signal:          sig,
		ReceivedAt:      receivedAt,
		ExpiresAt:       expiresAt(receivedAt, validityMinutes),
		ValidityMinutes: validityMinutes,
	}
	return true
}

func (s *MemorySignalStore) Get(_ context.Context, ticker string, tf models.Timeframe) (models.StoredSignal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byKey[ticker][tf]
	if !ok {
		return models.StoredSignal{}, false
	}
	if expired(s.clk.NowMillis(), entry.ExpiresAt) {
		delete(s.byKey[ticker], tf)
		return models.StoredSignal{}, false
	}
	return entry, true
}

func (s *MemorySignalStore) Active(_ context.Context, ticker string) map[models.Timeframe]models.StoredSignal {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.NowMillis()
	out := make(map[models.Timeframe]models.StoredSignal)
	for tf, entry := range s.byKey[ticker] {
		if expired(now, entry.ExpiresAt) {
			delete(s.byKey[ticker], tf)
			continue
		}
		out[tf] = entry
	}
	return out
}

func (s *MemorySignalStore) Size(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, entries := range s.byKey {
		n += len(entries)
	}
	return n
}

// MemoryPhaseStore is the in-process PhaseStore backend.
type MemoryPhaseStore struct {
	mu      sync.RWMutex
	clk     clock.Clock
	entries map[models.PhaseKey]models.StoredPhase
}

func NewMemoryPhaseStore(clk clock.Clock) *MemoryPhaseStore {
	return &MemoryPhaseStore{
		clk:     clk,
		entries: make(map[models.PhaseKey]models.StoredPhase),
	}
}

func (s *MemoryPhaseStore) Put(_ context.Context, ph models.PhaseEvent, receivedAt int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.PhaseKey{Symbol: ph.Instrument.Ticker, Role: ph.Timeframe.Role}
	if existing, ok := s.entries[key]; ok && receivedAt < existing.ReceivedAt {
		return false
	}
	s.entries[key] = models.StoredPhase{
		Phase:      ph,
		ReceivedAt: receivedAt,
		ExpiresAt:  expiresAt(receivedAt, ph.RiskHints.TimeDecayMinutes),
	}
	return true
}

func (s *MemoryPhaseStore) Get(_ context.Context, key models.PhaseKey) (models.StoredPhase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return models.StoredPhase{}, false
	}
	if expired(s.clk.NowMillis(), entry.ExpiresAt) {
		delete(s.entries, key)
		return models.StoredPhase{}, false
	}
	return entry, true
}

func (s *MemoryPhaseStore) Active(_ context.Context, symbol string) map[models.TimeframeRole]models.StoredPhase {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.NowMillis()
	out := make(map[models.TimeframeRole]models.StoredPhase)
	for key, entry := range s.entries {
		if key.Symbol != symbol {
			continue
		}
		if expired(now, entry.ExpiresAt) {
			delete(s.entries, key)
			continue
		}
		out[key.Role] = entry
	}
	return out
}

func (s *MemoryPhaseStore) Size(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// MemoryTrendStore is the in-process TrendStore backend.
type MemoryTrendStore struct {
	mu      sync.RWMutex
	clk     clock.Clock
	entries map[string]models.StoredTrend
}

func NewMemoryTrendStore(clk clock.Clock) *MemoryTrendStore {
	return &MemoryTrendStore{
		clk:     clk,
		entries: make(map[string]models.StoredTrend),
	}
}

func (s *MemoryTrendStore) Put(_ context.Context, snap models.TrendSnapshot, receivedAt int64, ttlMinutes int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[snap.Ticker]; ok && receivedAt < existing.ReceivedAt {
		return false
	}
	s.entries[snap.Ticker] = models.StoredTrend{
		Snapshot:   snap,
		Alignment:  models.DeriveAlignment(snap),
		ReceivedAt: receivedAt,
		ExpiresAt:  expiresAt(receivedAt, ttlMinutes),
	}
	return true
}

func (s *MemoryTrendStore) Get(_ context.Context, ticker string) (models.StoredTrend, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[ticker]
	if !ok {
		return models.StoredTrend{}, false
	}
	if expired(s.clk.NowMillis(), entry.ExpiresAt) {
		delete(s.entries, ticker)
		return models.StoredTrend{}, false
	}
	return entry, true
}

func (s *MemoryTrendStore) Tickers(_ context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.NowMillis()
	out := make([]string, 0, len(s.entries))
	for ticker, entry := range s.entries {
		if expired(now, entry.ExpiresAt) {
			delete(s.entries, ticker)
			continue
		}
		out = append(out, ticker)
	}
	return out
}

func (s *MemoryTrendStore) Size(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
