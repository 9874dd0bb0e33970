// Package engine wires ingest, state, market context and the gate
// pipeline into the decision loop. One Engine instance serves the
// whole process; every method is safe for concurrent use because the
// stores and the audit log carry their own locking.
package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pulsedeck/decisiond/internal/apperr"
	"github.com/pulsedeck/decisiond/internal/audit"
	"github.com/pulsedeck/decisiond/internal/clock"
	"github.com/pulsedeck/decisiond/internal/config"
	"github.com/pulsedeck/decisiond/internal/confluence"
	"github.com/pulsedeck/decisiond/internal/gates"
	"github.com/pulsedeck/decisiond/internal/market"
	"github.com/pulsedeck/decisiond/internal/metrics"
	"github.com/pulsedeck/decisiond/internal/models"
	"github.com/pulsedeck/decisiond/internal/normalize"
	"github.com/pulsedeck/decisiond/internal/sizer"
	"github.com/pulsedeck/decisiond/internal/store"
)

// TTLs for payloads whose lifetime is not in the validity matrix.
const (
	trendTTLMinutes = 60
	dotsTTLMinutes  = 15
	// expertTTLMinutes covers analyzer signals with no timeframe slot.
	expertTTLMinutes = 60
)

// Stores bundles the state backends one engine reads and writes.
type Stores struct {
	Signals  store.SignalStore
	Phases   store.PhaseStore
	Trends   store.TrendStore
	Contexts *store.ContextStore
}

// Engine runs the full webhook-to-decision loop.
type Engine struct {
	cfg     *config.Registry
	m       config.Matrices
	stores  Stores
	builder *market.Builder
	pipe    *gates.Pipeline
	trail   *audit.Log
	met     *metrics.Registry
	clk     clock.Clock
	budget  time.Duration
	log     zerolog.Logger
}

// New assembles an engine. The pipeline and its calculators derive from
// the registry's frozen matrices so one config hash covers everything.
func New(
	cfg *config.Registry,
	stores Stores,
	builder *market.Builder,
	session *gates.SessionClock,
	trail *audit.Log,
	met *metrics.Registry,
	clk clock.Clock,
	softBudget time.Duration,
	logger zerolog.Logger,
) *Engine {
	m := cfg.Matrices()
	return &Engine{
		cfg:     cfg,
		m:       m,
		stores:  stores,
		builder: builder,
		pipe:    gates.NewPipeline(m, confluence.NewCalculator(m), sizer.New(m), session),
		trail:   trail,
		met:     met,
		clk:     clk,
		budget:  softBudget,
		log:     logger,
	}
}

// IngestResult reports what one webhook did to engine state.
type IngestResult struct {
	Receipt models.Receipt
	// Dropped is set when the out-of-order guard discarded the payload.
	Dropped bool
	// Packet is present when the ingest triggered an evaluation.
	Packet *models.DecisionPacket
}

// Ingest normalizes a raw webhook, routes it to its store, and for
// timeframe signals runs a decision immediately. Stale payloads are
// acknowledged but dropped; only malformed ones error.
func (e *Engine) Ingest(ctx context.Context, raw []byte, requestID string) (IngestResult, error) {
	now := e.clk.NowMillis()

	ev, err := normalize.Normalize(raw, now)
	if err != nil {
		e.met.RecordWebhookError(string(apperr.KindOf(err)))
		return IngestResult{}, err
	}

	res := IngestResult{Receipt: models.Receipt{
		RequestID:  requestID,
		Source:     ev.Source,
		Ticker:     ev.Ticker(),
		ReceivedAt: now,
	}}

	switch ev.Source {
	case models.SourceTradingView:
		sig := *ev.Signal
		validity := e.m.ValidityFor(sig.Signal.Timeframe)
		if !e.stores.Signals.Put(ctx, sig, now, validity) {
			res.Dropped = true
			e.met.RecordDrop("signals")
			break
		}
		packet := e.Evaluate(ctx, sig.Instrument.Ticker)
		res.Packet = &packet

	case models.SourceUltimateOption:
		if !e.stores.Contexts.UpdateExpert(ctx, *ev.Signal, now, expertTTLMinutes) {
			res.Dropped = true
			e.met.RecordDrop("context")
		}

	case models.SourceSatyPhase:
		ph := *ev.Phase
		if !e.stores.Phases.Put(ctx, ph, now) {
			res.Dropped = true
			e.met.RecordDrop("phases")
			break
		}
		e.stores.Contexts.UpdateRegime(ctx, ph, now)

	case models.SourceTrend:
		snap := *ev.Trend
		if !e.stores.Trends.Put(ctx, snap, now, trendTTLMinutes) {
			res.Dropped = true
			e.met.RecordDrop("trends")
			break
		}
		e.stores.Contexts.UpdateAlignment(ctx, snap.Ticker, alignmentFromSnapshot(snap), now, trendTTLMinutes)

	case models.SourceMTFDots:
		dots := *ev.Dots
		if !e.stores.Contexts.UpdateAlignment(ctx, dots.Ticker, alignmentFromDots(dots), now, dotsTTLMinutes) {
			res.Dropped = true
			e.met.RecordDrop("context")
		}

	case models.SourceStratExec:
		if !e.stores.Contexts.UpdateStructure(ctx, *ev.Setup, now) {
			res.Dropped = true
			e.met.RecordDrop("context")
		}
	}

	e.met.RecordWebhook(string(ev.Source))
	e.trail.RecordReceipt(res.Receipt)
	e.refreshGauges(ctx)

	e.log.Debug().
		Str("request_id", requestID).
		Str("source", string(ev.Source)).
		Str("ticker", res.Receipt.Ticker).
		Bool("dropped", res.Dropped).
		Msg("webhook ingested")
	return res, nil
}

// Evaluate runs one full decision for a ticker against current state.
// The market build gets the soft budget; gate evaluation itself is pure
// and effectively instant.
func (e *Engine) Evaluate(ctx context.Context, ticker string) models.DecisionPacket {
	start := e.clk.Now()
	now := e.clk.NowMillis()

	active := e.stores.Signals.Active(ctx, ticker)
	phases := e.stores.Phases.Active(ctx, ticker)
	dc := e.stores.Contexts.Compose(ctx, ticker)

	var trend *models.StoredTrend
	if st, ok := e.stores.Trends.Get(ctx, ticker); ok {
		trend = &st
	}

	buildCtx, cancel := context.WithTimeout(ctx, e.budget)
	mc, calls := e.builder.Build(buildCtx, ticker)
	cancel()
	for _, call := range calls {
		e.met.RecordProviderCall(call.Provider, string(call.Origin), call.DurationMs)
	}

	out := e.pipe.Evaluate(gates.Inputs{
		Ticker:     ticker,
		ReceivedAt: now,
		Active:     active,
		Phases:     phases,
		Trend:      trend,
		Context:    dc,
		Market:     mc,
	})

	packet := e.assemble(out, calls, now)
	e.trail.RecordDecision(packet)

	elapsed := e.clk.Since(start)
	e.met.RecordDecision(string(packet.Decision), elapsed)
	if !out.Results[len(out.Results)-1].Passed {
		e.met.RecordGateFailure(out.Results[len(out.Results)-1].Name)
	}

	e.log.Info().
		Str("ticker", ticker).
		Str("decision", string(packet.Decision)).
		Str("direction", string(packet.Direction)).
		Str("reason", packet.Reason).
		Float64("confluence", packet.ConfluenceScore).
		Dur("elapsed", elapsed).
		Msg("decision emitted")
	return packet
}

// assemble freezes a gate outcome into an immutable packet.
func (e *Engine) assemble(out gates.Outcome, calls []models.ProviderCall, now int64) models.DecisionPacket {
	p := models.DecisionPacket{
		Decision:        out.Decision,
		Direction:       out.Direction,
		Reason:          out.Reason,
		EngineVersion:   e.cfg.Version(),
		ConfigHash:      e.cfg.Hash(),
		ConfluenceScore: out.Confluence.Score,
		GateResults:     out.Results,
		ProviderCalls:   calls,
		Timestamp:       now,
	}
	if out.Decision == models.DecisionExecute {
		p.Breakdown = out.Sizing.Breakdown
		p.HTFAlignment = out.Alignment
		p.RecommendedContracts = out.Sizing.Contracts
		entry := out.Entry.Signal
		p.EntrySignal = &entry
		p.StopLoss = out.StopLoss
		p.Target1 = out.Target1
		p.Target2 = out.Target2
	}
	return p
}

func (e *Engine) refreshGauges(ctx context.Context) {
	e.met.SetStoreSize("signals", e.stores.Signals.Size(ctx))
	e.met.SetStoreSize("phases", e.stores.Phases.Size(ctx))
	e.met.SetStoreSize("trends", e.stores.Trends.Size(ctx))
	e.met.SetStoreSize("context", e.stores.Contexts.Size(ctx))
}

// alignmentFromSnapshot projects a full trend snapshot onto the
// context alignment section.
func alignmentFromSnapshot(snap models.TrendSnapshot) models.AlignmentView {
	a := models.DeriveAlignment(snap)
	states := make(map[string]models.TrendDirection, len(snap.Timeframes))
	for key, st := range snap.Timeframes {
		states[key] = st.Direction
	}
	return models.AlignmentView{
		TFStates:   states,
		BullishPct: a.BullishPct,
		BearishPct: a.BearishPct,
	}
}

// alignmentFromDots builds the partial view an MTF dots payload
// supports; percentages are over the cells it actually carries.
func alignmentFromDots(dots models.MTFDots) models.AlignmentView {
	states := make(map[string]models.TrendDirection, len(dots.Timeframes))
	bull, bear := 0, 0
	for key, dir := range dots.Timeframes {
		states[key] = dir
		switch dir {
		case models.TrendBullish:
			bull++
		case models.TrendBearish:
			bear++
		}
	}
	total := float64(len(dots.Timeframes))
	view := models.AlignmentView{TFStates: states}
	if total > 0 {
		view.BullishPct = float64(bull) / total * 100
		view.BearishPct = float64(bear) / total * 100
	}
	return view
}
