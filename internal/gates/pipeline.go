// Package gates runs the ordered decision gate pipeline. Gates never
// raise: each yields a GateResult, the first failure short-circuits to
// WAIT (recoverable, more data may arrive) or SKIP (opportunity
// rejected), and a full pass emits EXECUTE with selected stops.
package gates

import (
	"fmt"

	"github.com/pulsedeck/decisiond/internal/config"
	"github.com/pulsedeck/decisiond/internal/confluence"
	"github.com/pulsedeck/decisiond/internal/models"
	"github.com/pulsedeck/decisiond/internal/sizer"
)

// Inputs is the consistent snapshot one evaluation reads. The engine
// takes a single pass over the stores before calling Evaluate; gates
// never re-read shared state.
type Inputs struct {
	Ticker     string
	ReceivedAt int64 // Unix ms, drives wall-clock session classification

	Active  map[models.Timeframe]models.StoredSignal
	Phases  map[models.TimeframeRole]models.StoredPhase
	Trend   *models.StoredTrend
	Context models.DecisionContext
	Market  models.MarketContext
}

// Outcome is the pipeline verdict plus everything the engine needs to
// assemble a DecisionPacket.
type Outcome struct {
	Decision  models.Decision
	Direction models.Direction
	Reason    string
	Results   []models.GateResult

	Confluence confluence.Dominant
	Alignment  models.HTFAlignment
	Entry      *models.StoredSignal
	Sizing     sizer.Result

	StopLoss float64
	Target1  float64
	Target2  float64
}

// Pipeline evaluates the fixed gate order against a snapshot.
type Pipeline struct {
	m       config.Matrices
	calc    *confluence.Calculator
	sizer   *sizer.Sizer
	session *SessionClock
}

func NewPipeline(m config.Matrices, calc *confluence.Calculator, sz *sizer.Sizer, session *SessionClock) *Pipeline {
	return &Pipeline{m: m, calc: calc, sizer: sz, session: session}
}

func pass(name, reason string, score float64) models.GateResult {
	return models.GateResult{Name: name, Passed: true, Reason: reason, Score: score}
}

func fail(name, reason string, score float64) models.GateResult {
	return models.GateResult{Name: name, Passed: false, Reason: reason, Score: score}
}

// Evaluate runs every gate in order. The returned outcome always
// carries the gate trail up to and including the failing gate.
func (p *Pipeline) Evaluate(in Inputs) Outcome {
	out := Outcome{Decision: models.DecisionExecute}

	// Gate 1: any active signals at all.
	if len(in.Active) == 0 {
		out.Results = append(out.Results, fail("active_signals", "No active signals", 0))
		return p.wait(out, "No active signals")
	}
	out.Results = append(out.Results, pass("active_signals", fmt.Sprintf("%d active signals", len(in.Active)), 100))

	// Gate 2: a dominant direction must exist.
	out.Confluence = p.calc.DominantDirection(in.Active)
	if out.Confluence.LongScore == 0 && out.Confluence.ShortScore == 0 {
		out.Results = append(out.Results, fail("dominant_direction", "No clear direction", 0))
		return p.wait(out, "No clear direction")
	}
	out.Direction = out.Confluence.Direction
	out.Results = append(out.Results, pass("dominant_direction",
		fmt.Sprintf("%s dominant (long %.1f, short %.1f)", out.Direction, out.Confluence.LongScore, out.Confluence.ShortScore),
		out.Confluence.Score))

	// Gate 3: a qualifying higher-timeframe signal must back the move.
	if !p.hasHTFBias(in.Active, out.Direction) {
		out.Results = append(out.Results, fail("htf_bias",
			fmt.Sprintf("No valid HTF bias (need 240M or 60M %s with ai_score >= %.0f)", out.Direction, p.m.HTFMinAIScore), 0))
		return p.wait(out, "No valid HTF bias")
	}
	out.Results = append(out.Results, pass("htf_bias", "HTF signal backs direction", 100))

	// Gate 4: confluence threshold.
	if out.Confluence.Score < p.m.ConfluenceThreshold {
		reason := fmt.Sprintf("Confluence %.1f below %.0f%% threshold", out.Confluence.Score, p.m.ConfluenceThreshold)
		out.Results = append(out.Results, fail("confluence_threshold", reason, out.Confluence.Score))
		return p.wait(out, reason)
	}
	out.Results = append(out.Results, pass("confluence_threshold",
		fmt.Sprintf("Confluence %.1f >= %.0f", out.Confluence.Score, p.m.ConfluenceThreshold), out.Confluence.Score))

	// Gate 5: entry-signal selection, HTF first.
	out.Entry = selectEntry(in.Active, out.Direction)
	if out.Entry == nil {
		out.Results = append(out.Results, fail("entry_selection", "No matching entry signal", 0))
		return p.wait(out, "No matching entry signal")
	}
	out.Results = append(out.Results, pass("entry_selection",
		fmt.Sprintf("Entry from %s signal", out.Entry.Signal.Signal.Timeframe), 100))

	// Gate 6: regime permissioning.
	if gr := p.regimeGate(in, out.Direction); !gr.Passed {
		out.Results = append(out.Results, gr)
		return p.skip(out, gr.Reason)
	} else {
		out.Results = append(out.Results, gr)
	}

	// Gate 7: structural quality.
	if gr := p.structuralGate(in, out.Entry.Signal); !gr.Passed {
		out.Results = append(out.Results, gr)
		return p.skip(out, gr.Reason)
	} else {
		out.Results = append(out.Results, gr)
	}

	// Gate 8: market microstructure (provider-backed checks only).
	marketResults, failedReason := p.marketGate(in, out.Direction)
	out.Results = append(out.Results, marketResults...)
	if failedReason != "" {
		return p.skip(out, failedReason)
	}

	// Gate 9: wall-clock session.
	class := p.session.Classify(in.ReceivedAt)
	if class.Blocks() {
		gr := fail("session", fmt.Sprintf("Session %s blocks execution", class), 0)
		out.Results = append(out.Results, gr)
		return p.skip(out, gr.Reason)
	}
	out.Results = append(out.Results, pass("session", fmt.Sprintf("Session %s", class), 100))

	// Gate 10: multiplier floor.
	out.Alignment = p.sizer.DetermineAlignment(out.Entry.Signal, in.Active, in.Phases)
	out.Sizing = p.sizer.Compute(out.Entry.Signal, out.Confluence.Score, out.Alignment, in.Phases, in.Trend)
	if out.Sizing.ShouldSkip {
		gr := fail("multiplier_floor",
			fmt.Sprintf("Position multiplier below minimum (raw %.3f < %.2f)", out.Sizing.Breakdown.Raw, p.m.PositionMultiplierMin), 0)
		out.Results = append(out.Results, gr)
		return p.skip(out, "Position multiplier below minimum")
	}
	out.Results = append(out.Results, pass("multiplier_floor",
		fmt.Sprintf("Final multiplier %.2fx", out.Sizing.Breakdown.Final), 100))

	out.StopLoss, out.Target1, out.Target2 = selectStops(in.Active, out.Direction)
	out.Reason = fmt.Sprintf("All gates passed (%s, confluence %.1f, %s alignment)",
		out.Direction, out.Confluence.Score, out.Alignment)
	return out
}

func (p *Pipeline) wait(out Outcome, reason string) Outcome {
	out.Decision = models.DecisionWait
	out.Reason = reason
	return out
}

func (p *Pipeline) skip(out Outcome, reason string) Outcome {
	out.Decision = models.DecisionSkip
	out.Reason = reason
	return out
}

func (p *Pipeline) hasHTFBias(active map[models.Timeframe]models.StoredSignal, dir models.Direction) bool {
	for _, tf := range []models.Timeframe{models.TF240, models.TF60} {
		if entry, ok := active[tf]; ok &&
			entry.Signal.Signal.Type == dir &&
			entry.Signal.Signal.AIScore >= p.m.HTFMinAIScore {
			return true
		}
	}
	return false
}

// selectEntry picks the highest-priority active signal matching the
// dominant direction (240 -> 60 -> 30 -> 15 -> 5 -> 3).
func selectEntry(active map[models.Timeframe]models.StoredSignal, dir models.Direction) *models.StoredSignal {
	for _, tf := range models.SignalTimeframes {
		if entry, ok := active[tf]; ok && entry.Signal.Signal.Type == dir {
			e := entry
			return &e
		}
	}
	return nil
}

// regimeGate consults the active regime phase. Explicit execution
// guidance wins; otherwise the cycle phase maps to allowed directions
// (1: both, 2: long only, 3: none, 4: short only). No phase data is
// not a rejection.
func (p *Pipeline) regimeGate(in Inputs, dir models.Direction) models.GateResult {
	const name = "regime"

	ph, ok := in.Phases[models.RoleRegime]
	if !ok {
		if in.Context.Regime.Present {
			return p.regimeByPhaseNumber(in.Context.Regime, dir)
		}
		return pass(name, "No regime data available", 50)
	}

	guidance := ph.Phase.Execution
	if !guidance.TradeAllowed {
		return fail(name, fmt.Sprintf("Regime phase %s disallows trading", ph.Phase.Event.Name), 0)
	}
	if len(guidance.AllowedDirections) > 0 {
		if !guidance.Allows(dir) {
			return fail(name, fmt.Sprintf("Regime phase %s disallows %s", ph.Phase.Event.Name, dir), 0)
		}
		return pass(name, fmt.Sprintf("Regime phase %s allows %s", ph.Phase.Event.Name, dir), 100)
	}

	view := models.RegimeView{Phase: ph.Phase.Event.Phase, PhaseName: models.PhaseNameFor(ph.Phase.Event.Phase), Present: true}
	return p.regimeByPhaseNumber(view, dir)
}

func (p *Pipeline) regimeByPhaseNumber(regime models.RegimeView, dir models.Direction) models.GateResult {
	const name = "regime"
	allowed := map[int]map[models.Direction]bool{
		1: {models.DirectionLong: true, models.DirectionShort: true},
		2: {models.DirectionLong: true},
		3: {},
		4: {models.DirectionShort: true},
	}
	dirs, known := allowed[regime.Phase]
	if !known {
		return pass(name, "No regime data available", 50)
	}
	if !dirs[dir] {
		return fail(name, fmt.Sprintf("Regime phase %d (%s) disallows %s", regime.Phase, regime.PhaseName, dir), 0)
	}
	return pass(name, fmt.Sprintf("Regime phase %d (%s) allows %s", regime.Phase, regime.PhaseName, dir), 100)
}

// structuralGate enforces setup validity, liquidity, execution quality
// and the ai_score floor. Setup checks need STRAT_EXEC context; the
// score floor always applies to the entry signal.
func (p *Pipeline) structuralGate(in Inputs, entry models.EnrichedSignal) models.GateResult {
	const name = "structural"

	if entry.Signal.AIScore < p.m.StructuralMinAIScore {
		return fail(name, fmt.Sprintf("AI score %.1f below %.1f", entry.Signal.AIScore, p.m.StructuralMinAIScore), 0)
	}

	setup := in.Context.Structure
	if setup == nil {
		return pass(name, "No structural data available", 50)
	}
	if !setup.ValidSetup {
		return fail(name, "Structural setup invalid", 0)
	}
	if !setup.LiquidityOK {
		return fail(name, "Liquidity check failed", 0)
	}
	if setup.ExecutionQuality != models.ExecA && setup.ExecutionQuality != models.ExecB {
		return fail(name, fmt.Sprintf("Execution quality %s below B", setup.ExecutionQuality), 0)
	}
	return pass(name, fmt.Sprintf("Valid %s-quality setup", setup.ExecutionQuality), 100)
}

// marketGate checks only provider-backed sections. A FALLBACK section
// passes with score 50: absent data is never a rejection here. Gamma
// conflicts fail unless the snapshot alignment in the trade direction
// clears the override percentage.
func (p *Pipeline) marketGate(in Inputs, dir models.Direction) ([]models.GateResult, string) {
	var results []models.GateResult

	if in.Market.Liquidity.Origin == models.OriginFallback {
		results = append(results, pass("market_spread", "No liquidity data available", 50))
		results = append(results, pass("market_depth", "No liquidity data available", 50))
	} else {
		spread := in.Market.Liquidity.SpreadBps
		if spread > p.m.MaxSpreadBps {
			gr := fail("market_spread", fmt.Sprintf("Spread %.1f bps above %.0f", spread, p.m.MaxSpreadBps), 0)
			return append(results, gr), gr.Reason
		}
		results = append(results, pass("market_spread", fmt.Sprintf("Spread %.1f bps", spread), 100))

		depth := in.Market.Liquidity.DepthScore
		if depth < p.m.MinDepthScore {
			gr := fail("market_depth", fmt.Sprintf("Depth score %.0f below %.0f", depth, p.m.MinDepthScore), 0)
			return append(results, gr), gr.Reason
		}
		results = append(results, pass("market_depth", fmt.Sprintf("Depth score %.0f", depth), 100))
	}

	if in.Market.Stats.Origin == models.OriginFallback {
		results = append(results, pass("market_atr", "No stats data available", 50))
	} else {
		atr := in.Market.Stats.ATR14
		if atr > p.m.MaxATRSpike {
			gr := fail("market_atr", fmt.Sprintf("ATR %.2f above spike limit %.1f", atr, p.m.MaxATRSpike), 0)
			return append(results, gr), gr.Reason
		}
		results = append(results, pass("market_atr", fmt.Sprintf("ATR %.2f", atr), 100))
	}

	if in.Market.Options.Origin == models.OriginFallback {
		results = append(results, pass("market_gamma", "No options data available", 50))
	} else {
		gamma := in.Market.Options.GammaBias
		conflict := (gamma == models.GammaPositive && dir == models.DirectionShort) ||
			(gamma == models.GammaNegative && dir == models.DirectionLong)
		if conflict {
			pct := p.alignmentPct(in, dir)
			if pct >= p.m.GammaOverridePct {
				results = append(results, pass("market_gamma",
					fmt.Sprintf("Gamma %s conflicts %s but alignment %.0f%% overrides", gamma, dir, pct), 100))
			} else {
				gr := fail("market_gamma",
					fmt.Sprintf("Gamma %s conflicts %s (alignment %.0f%% below %.0f%%)", gamma, dir, pct, p.m.GammaOverridePct), 0)
				return append(results, gr), gr.Reason
			}
		} else {
			results = append(results, pass("market_gamma", fmt.Sprintf("Gamma %s", gamma), 100))
		}
	}

	return results, ""
}

// alignmentPct is the strongest multi-timeframe agreement in the trade
// direction across the trend snapshot and the composed context view.
func (p *Pipeline) alignmentPct(in Inputs, dir models.Direction) float64 {
	pct := 0.0
	if in.Trend != nil {
		if dir == models.DirectionLong {
			pct = in.Trend.Alignment.BullishPct
		} else {
			pct = in.Trend.Alignment.BearishPct
		}
	}
	if in.Context.Alignment.Present {
		ctxPct := in.Context.Alignment.BullishPct
		if dir == models.DirectionShort {
			ctxPct = in.Context.Alignment.BearishPct
		}
		if ctxPct > pct {
			pct = ctxPct
		}
	}
	return pct
}

// selectStops picks the best stop and targets across aligned signals:
// tightest stop (highest for LONG, lowest for SHORT) and the most
// ambitious targets in the trade direction.
func selectStops(active map[models.Timeframe]models.StoredSignal, dir models.Direction) (stop, t1, t2 float64) {
	first := true
	for _, entry := range active {
		if entry.Signal.Signal.Type != dir {
			continue
		}
		e := entry.Signal.Entry
		if first {
			stop, t1, t2 = e.StopLoss, e.Target1, e.Target2
			first = false
			continue
		}
		if dir == models.DirectionLong {
			stop = max(stop, e.StopLoss)
			t1 = max(t1, e.Target1)
			t2 = max(t2, e.Target2)
		} else {
			stop = min(stop, e.StopLoss)
			t1 = min(t1, e.Target1)
			t2 = min(t2, e.Target2)
		}
	}
	return stop, t1, t2
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
