package store

import (
	"context"
	"sync"

	"github.com/pulsedeck/decisiond/internal/clock"
	"github.com/pulsedeck/decisiond/internal/models"
)

// ContextStore composes per-source partial updates into a
// completeness-scored DecisionContext. Each section expires on its own
// clock; composing skips dead sections, so completeness degrades as
// producers go quiet.
type ContextStore struct {
	mu      sync.RWMutex
	clk     clock.Clock
	version string
	byTick  map[string]*contextSlots
}

type contextSlots struct {
	regime    sectionEntry[models.PhaseEvent]
	alignment sectionEntry[models.AlignmentView]
	expert    sectionEntry[models.EnrichedSignal]
	structure sectionEntry[models.StructuralSetup]
}

type sectionEntry[T any] struct {
	value      T
	receivedAt int64
	expiresAt  int64
	present    bool
}

func (e sectionEntry[T]) live(now int64) bool {
	return e.present && !expired(now, e.expiresAt)
}

func NewContextStore(clk clock.Clock, engineVersion string) *ContextStore {
	return &ContextStore{
		clk:     clk,
		version: engineVersion,
		byTick:  make(map[string]*contextSlots),
	}
}

func (s *ContextStore) slots(ticker string) *contextSlots {
	if s.byTick[ticker] == nil {
		s.byTick[ticker] = &contextSlots{}
	}
	return s.byTick[ticker]
}

// UpdateRegime records a phase event; TTL from its time-decay hint.
func (s *ContextStore) UpdateRegime(_ context.Context, ph models.PhaseEvent, receivedAt int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := &s.slots(ph.Instrument.Ticker).regime
	if slot.present && receivedAt < slot.receivedAt {
		return false
	}
	*slot = sectionEntry[models.PhaseEvent]{
		value:      ph,
		receivedAt: receivedAt,
		expiresAt:  expiresAt(receivedAt, ph.RiskHints.TimeDecayMinutes),
		present:    true,
	}
	return true
}

// UpdateAlignment records a multi-timeframe direction view, from
// either a full trend snapshot or an MTF dots payload.
func (s *ContextStore) UpdateAlignment(_ context.Context, ticker string, view models.AlignmentView, receivedAt int64, ttlMinutes int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := &s.slots(ticker).alignment
	if slot.present && receivedAt < slot.receivedAt {
		return false
	}
	view.Present = true
	*slot = sectionEntry[models.AlignmentView]{
		value:      view,
		receivedAt: receivedAt,
		expiresAt:  expiresAt(receivedAt, ttlMinutes),
		present:    true,
	}
	return true
}

// UpdateExpert records an analyzer signal; TTL matches its store
// validity so both views expire together.
func (s *ContextStore) UpdateExpert(_ context.Context, sig models.EnrichedSignal, receivedAt int64, validityMinutes int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := &s.slots(sig.Instrument.Ticker).expert
	if slot.present && receivedAt < slot.receivedAt {
		return false
	}
	*slot = sectionEntry[models.EnrichedSignal]{
		value:      sig,
		receivedAt: receivedAt,
		expiresAt:  expiresAt(receivedAt, validityMinutes),
		present:    true,
	}
	return true
}

// UpdateStructure records a structural setup; these decay in an hour.
func (s *ContextStore) UpdateStructure(_ context.Context, setup models.StructuralSetup, receivedAt int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := &s.slots(setup.Ticker).structure
	if slot.present && receivedAt < slot.receivedAt {
		return false
	}
	*slot = sectionEntry[models.StructuralSetup]{
		value:      setup,
		receivedAt: receivedAt,
		expiresAt:  expiresAt(receivedAt, 60),
		present:    true,
	}
	return true
}

// Compose assembles the current DecisionContext for a ticker.
// Completeness is the live fraction of the four sections.
func (s *ContextStore) Compose(_ context.Context, ticker string) models.DecisionContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clk.NowMillis()
	dc := models.DecisionContext{
		Meta: models.ContextMeta{
			EngineVersion: s.version,
			ReceivedAt:    now,
		},
		Instrument: models.Instrument{Ticker: ticker},
	}

	slots, ok := s.byTick[ticker]
	if !ok {
		return dc
	}

	live := 0
	if slots.regime.live(now) {
		ph := slots.regime.value
		dc.Regime = models.RegimeView{
			Phase:      ph.Event.Phase,
			PhaseName:  models.PhaseNameFor(ph.Event.Phase),
			Volatility: models.VolNormal,
			Confidence: ph.Confidence.ConfidenceScore,
			Bias:       ph.RegimeContext.LocalBias,
			Present:    true,
		}
		live++
	}
	if slots.alignment.live(now) {
		dc.Alignment = slots.alignment.value
		live++
	}
	if slots.expert.live(now) {
		sig := slots.expert.value
		dc.Instrument = sig.Instrument
		dc.Expert = models.ExpertView{
			Direction:  sig.Signal.Type,
			AIScore:    sig.Signal.AIScore,
			Quality:    sig.Signal.Quality,
			Components: sig.Scores,
			RR1:        sig.Risk.RRRatioT1,
			RR2:        sig.Risk.RRRatioT2,
			Present:    true,
		}
		live++
	}
	if slots.structure.live(now) {
		setup := slots.structure.value
		dc.Structure = &setup
		live++
	}

	dc.Meta.Completeness = float64(live) / 4
	return dc
}

// Size reports tickers with at least one live section.
func (s *ContextStore) Size(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.clk.NowMillis()
	n := 0
	for _, slots := range s.byTick {
		if slots.regime.live(now) || slots.alignment.live(now) ||
			slots.expert.live(now) || slots.structure.live(now) {
			n++
		}
	}
	return n
}
