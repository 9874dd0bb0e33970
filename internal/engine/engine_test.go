package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedeck/decisiond/internal/audit"
	"github.com/pulsedeck/decisiond/internal/clock"
	"github.com/pulsedeck/decisiond/internal/config"
	"github.com/pulsedeck/decisiond/internal/gates"
	"github.com/pulsedeck/decisiond/internal/market"
	"github.com/pulsedeck/decisiond/internal/metrics"
	"github.com/pulsedeck/decisiond/internal/models"
	"github.com/pulsedeck/decisiond/internal/store"
)

// Tuesday 10:30 New York.
var evalTime = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

type harness struct {
	eng   *Engine
	clk   *clock.Fake
	trail *audit.Log
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clk := clock.NewFake(evalTime)
	reg := config.MustRegistry(config.Defaults())

	stores := Stores{
		Signals:  store.NewMemorySignalStore(clk),
		Phases:   store.NewMemoryPhaseStore(clk),
		Trends:   store.NewMemoryTrendStore(clk),
		Contexts: store.NewContextStore(clk, reg.Version()),
	}
	session, err := gates.NewSessionClock("America/New_York")
	require.NoError(t, err)

	// No providers wired: every section falls back, deterministically.
	builder := market.NewFromProviders(nil, nil, nil, config.ProviderSettings{
		CallBudget: 600 * time.Millisecond,
		MaxRetries: 2,
		RetryBase:  50 * time.Millisecond,
	}, clk, clock.NewSeededRNG(1))

	trail := audit.NewLog(64)
	eng := New(reg, stores, builder, session, trail, metrics.NewRegistry(), clk,
		2*time.Second, zerolog.Nop())
	return &harness{eng: eng, clk: clk, trail: trail}
}

func signalJSON(dir string, tf int, aiScore float64) []byte {
	return []byte(fmt.Sprintf(`{
		"signal": {"type": %q, "timeframe": %d, "quality": "EXTREME", "ai_score": %g},
		"instrument": {"ticker": "SPY", "current_price": 512},
		"entry": {"price": 512, "stop_loss": 510, "target_1": 515, "target_2": 518},
		"risk": {"rr_ratio_t1": 3.0, "recommended_contracts": 2},
		"market_context": {"volume_vs_avg": 1.6},
		"trend": {"strength": 85},
		"time_context": {"market_session": "MIDDAY", "day_of_week": "TUESDAY"}
	}`, dir, tf, aiScore))
}

func TestIngestSignalTriggersDecision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.eng.Ingest(ctx, signalJSON("LONG", 240, 9), "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.SourceTradingView, res.Receipt.Source)
	assert.Equal(t, "SPY", res.Receipt.Ticker)
	assert.False(t, res.Dropped)

	require.NotNil(t, res.Packet, "timeframe signal ingest evaluates immediately")
	assert.Equal(t, models.DecisionWait, res.Packet.Decision, "single 240M leg is below threshold")
	assert.Equal(t, config.EngineVersion, res.Packet.EngineVersion)
	assert.Len(t, res.Packet.ConfigHash, 16)
}

func TestIngestBuildsToExecute(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, tf := range []int{240, 60, 30, 15} {
		res, err := h.eng.Ingest(ctx, signalJSON("LONG", tf, 9), fmt.Sprintf("req-%d", tf))
		require.NoError(t, err)
		require.NotNil(t, res.Packet)
	}

	decisions := h.trail.RecentDecisions(1)
	require.Len(t, decisions, 1)
	p := decisions[0]
	assert.Equal(t, models.DecisionExecute, p.Decision, "reason: %s", p.Reason)
	assert.Equal(t, models.DirectionLong, p.Direction)
	assert.InDelta(t, 90, p.ConfluenceScore, 1e-9)
	assert.InDelta(t, 3.0, p.Breakdown.Final, 1e-9)
	require.NotNil(t, p.EntrySignal)
	assert.Equal(t, models.TF240, p.EntrySignal.Signal.Timeframe)
	assert.Len(t, p.ProviderCalls, 3)
	for _, call := range p.ProviderCalls {
		assert.Equal(t, models.OriginFallback, call.Origin)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, tf := range []int{240, 60, 30} {
		_, err := h.eng.Ingest(ctx, signalJSON("LONG", tf, 9), "seed")
		require.NoError(t, err)
	}

	first := h.eng.Evaluate(ctx, "SPY")
	second := h.eng.Evaluate(ctx, "SPY")

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, a, b, "same state and clock must yield byte-identical packets")
}

func TestIngestDropsStaleSignal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.eng.Ingest(ctx, signalJSON("LONG", 60, 9), "fresh")
	require.NoError(t, err)

	// A payload arriving with an older clock reading is acknowledged
	// but never overwrites the stored leg.
	h.clk.Set(evalTime.Add(-time.Minute))
	res, err := h.eng.Ingest(ctx, signalJSON("SHORT", 60, 9), "stale")
	require.NoError(t, err)
	assert.True(t, res.Dropped)
	assert.Nil(t, res.Packet)
}

func TestIngestRoutesPhaseTrendAndSetup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	phase := []byte(`{
		"meta": {"engine": "SATY_PO", "event_type": "REGIME_PHASE_ENTRY"},
		"instrument": {"ticker": "SPY"},
		"timeframe": {"interval": 240, "tf_role": "REGIME"},
		"event": {"name": "MARKUP", "directional_implication": "UPSIDE_POTENTIAL", "phase": 2},
		"confidence": {"confidence_score": 85},
		"execution_guidance": {"trade_allowed": true},
		"risk_hints": {"time_decay_minutes": 120}
	}`)
	res, err := h.eng.Ingest(ctx, phase, "ph-1")
	require.NoError(t, err)
	assert.Equal(t, models.SourceSatyPhase, res.Receipt.Source)
	assert.Nil(t, res.Packet, "phase ingest stores without deciding")

	trend := []byte(`{
		"ticker": "SPY",
		"timeframes": {
			"tf3min": {"direction": "bullish"}, "tf5min": {"direction": "bullish"},
			"tf15min": {"direction": "bullish"}, "tf30min": {"direction": "bullish"},
			"tf60min": {"direction": "bullish"}, "tf240min": {"direction": "bullish"},
			"tf1week": {"direction": "bullish"}, "tf1month": {"direction": "bullish"}
		}
	}`)
	res, err = h.eng.Ingest(ctx, trend, "tr-1")
	require.NoError(t, err)
	assert.Equal(t, models.SourceTrend, res.Receipt.Source)

	setup := []byte(`{"ticker": "SPY", "setup_valid": true, "liquidity_ok": true, "quality": "A"}`)
	res, err = h.eng.Ingest(ctx, setup, "st-1")
	require.NoError(t, err)
	assert.Equal(t, models.SourceStratExec, res.Receipt.Source)

	// The stored state now influences sizing: STRONG trend boosts the
	// multiplier and the phase backs the 4H leg.
	for _, tf := range []int{240, 60, 30} {
		_, err := h.eng.Ingest(ctx, signalJSON("LONG", tf, 9), "sig")
		require.NoError(t, err)
	}
	p := h.eng.Evaluate(ctx, "SPY")
	require.Equal(t, models.DecisionExecute, p.Decision, "reason: %s", p.Reason)
	assert.InDelta(t, 0.45, p.Breakdown.TrendAlignment, 1e-9)
	assert.InDelta(t, 0.10, p.Breakdown.PhaseConfidence, 1e-9)
}

func TestIngestRejectsUnknownPayload(t *testing.T) {
	h := newHarness(t)
	_, err := h.eng.Ingest(context.Background(), []byte(`{"what": "is this"}`), "bad")
	assert.Error(t, err)
}

func TestReceiptsRecorded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.eng.Ingest(ctx, signalJSON("LONG", 240, 9), "r-1")
	require.NoError(t, err)

	receipts := h.trail.RecentReceipts(10)
	require.Len(t, receipts, 1)
	assert.Equal(t, "r-1", receipts[0].RequestID)
	assert.Equal(t, evalTime.UnixMilli(), receipts[0].ReceivedAt)
}
