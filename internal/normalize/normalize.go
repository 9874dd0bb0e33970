// Package normalize is the single boundary where untyped producer JSON
// becomes canonical typed events. It is stateless and deterministic:
// the same payload and clock reading always yield the same event.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/pulsedeck/decisiond/internal/apperr"
	"github.com/pulsedeck/decisiond/internal/models"
)

// Event is the tagged union a recognized webhook normalizes into.
// Exactly one pointer is non-nil, matching Source.
type Event struct {
	Source models.Source
	Signal *models.EnrichedSignal
	Phase  *models.PhaseEvent
	Trend  *models.TrendSnapshot
	Dots   *models.MTFDots
	Setup  *models.StructuralSetup
}

// Ticker returns the instrument key the event updates.
func (e *Event) Ticker() string {
	switch e.Source {
	case models.SourceSatyPhase:
		return e.Phase.Instrument.Ticker
	case models.SourceTrend:
		return e.Trend.Ticker
	case models.SourceMTFDots:
		return e.Dots.Ticker
	case models.SourceStratExec:
		return e.Setup.Ticker
	default:
		return e.Signal.Instrument.Ticker
	}
}

// Normalize classifies raw JSON and converts it to a typed event.
// nowMillis fills defaulted timestamps so the transformation stays
// pure with respect to the injected clock.
func Normalize(raw []byte, nowMillis int64) (*Event, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "payload is not a JSON object")
	}

	source, err := detectSource(doc)
	if err != nil {
		return nil, err
	}

	switch source {
	case models.SourceSatyPhase:
		return normalizePhase(raw, nowMillis)
	case models.SourceTrend:
		return normalizeTrend(raw, nowMillis)
	case models.SourceMTFDots:
		return normalizeDots(raw, nowMillis)
	case models.SourceStratExec:
		return normalizeSetup(raw, nowMillis)
	default:
		return normalizeSignal(raw, source, nowMillis)
	}
}

func normalizeSignal(raw []byte, source models.Source, now int64) (*Event, error) {
	var sig models.EnrichedSignal
	if err := json.Unmarshal(raw, &sig); err != nil {
		return nil, apperr.Wrap(apperr.KindSchema, err, "malformed %s envelope", source)
	}

	var details []string

	sig.Signal.Type = models.Direction(upper(string(sig.Signal.Type)))
	if _, err := models.ParseDirection(string(sig.Signal.Type)); err != nil {
		details = append(details, "signal.type: "+err.Error())
	}

	if source == models.SourceTradingView {
		if !sig.Signal.Timeframe.Valid() {
			details = append(details, "signal.timeframe: not one of 3/5/15/30/60/240")
		}
		if sig.Instrument.Ticker == "" {
			details = append(details, "instrument.ticker: required")
		}
	}

	sig.Signal.Quality = models.Quality(upper(string(sig.Signal.Quality)))
	if sig.Signal.Quality == "" {
		sig.Signal.Quality = models.QualityMedium
	} else if _, err := models.ParseQuality(string(sig.Signal.Quality)); err != nil {
		details = append(details, "signal.quality: "+err.Error())
	}

	sig.Signal.AIScore = clamp(sig.Signal.AIScore, 0, 10.5)
	if sig.Signal.Timestamp == 0 {
		sig.Signal.Timestamp = now
	}

	sig.MarketContext.CandleDir = models.CandleDirection(upper(string(sig.MarketContext.CandleDir)))
	switch sig.MarketContext.CandleDir {
	case "", models.CandleGreen, models.CandleRed:
	default:
		details = append(details, "market_context.candle_direction: invalid")
	}

	sig.Trend.Alignment = normalizeBias(sig.Trend.Alignment)
	sig.Trend.Strength = clamp(sig.Trend.Strength, 0, 100)
	sig.Trend.RSI = clamp(sig.Trend.RSI, 0, 100)
	sig.MTFContext.Bias4H = normalizeBias(sig.MTFContext.Bias4H)
	sig.MTFContext.Bias1H = normalizeBias(sig.MTFContext.Bias1H)

	sig.TimeContext.MarketSession = models.MarketSession(upper(string(sig.TimeContext.MarketSession)))
	if sig.TimeContext.MarketSession == "" {
		sig.TimeContext.MarketSession = models.SessionOpen
	} else if _, err := models.ParseMarketSession(string(sig.TimeContext.MarketSession)); err != nil {
		details = append(details, "time_context.market_session: "+err.Error())
	}

	sig.TimeContext.DayOfWeek = models.Weekday(upper(string(sig.TimeContext.DayOfWeek)))
	if sig.TimeContext.DayOfWeek != "" {
		if _, err := models.ParseWeekday(string(sig.TimeContext.DayOfWeek)); err != nil {
			details = append(details, "time_context.day_of_week: "+err.Error())
		}
	}

	if len(details) > 0 {
		return nil, apperr.New(apperr.KindSchema, "%s failed field validation", source).WithDetails(details...)
	}
	return &Event{Source: source, Signal: &sig}, nil
}

func normalizePhase(raw []byte, now int64) (*Event, error) {
	var ph models.PhaseEvent
	if err := json.Unmarshal(raw, &ph); err != nil {
		return nil, apperr.Wrap(apperr.KindSchema, err, "malformed SATY_PHASE envelope")
	}

	var details []string

	ph.Meta.EventType = models.PhaseEventType(upper(string(ph.Meta.EventType)))
	switch ph.Meta.EventType {
	case models.PhaseEntry, models.PhaseExit, models.PhaseReversal:
	default:
		details = append(details, "meta.event_type: invalid")
	}
	if ph.Meta.GeneratedAt == 0 {
		ph.Meta.GeneratedAt = now
	}
	if ph.Instrument.Ticker == "" {
		details = append(details, "instrument.ticker: required")
	}

	ph.Timeframe.Role = models.TimeframeRole(upper(string(ph.Timeframe.Role)))
	switch ph.Timeframe.Role {
	case models.RoleRegime, models.RoleBias, models.RoleSetupFormation, models.RoleStructural:
	default:
		details = append(details, "timeframe.tf_role: invalid")
	}

	ph.Event.Implication = models.DirectionalImplication(upper(string(ph.Event.Implication)))
	switch ph.Event.Implication {
	case models.ImplUpside, models.ImplDownside, models.ImplNeutral:
	default:
		details = append(details, "event.directional_implication: invalid")
	}
	ph.Event.Oscillator = clamp(ph.Event.Oscillator, -100, 100)
	if ph.Event.Phase < 0 || ph.Event.Phase > 4 {
		details = append(details, "event.phase: must be 0..4")
	}

	ph.RegimeContext.LocalBias = normalizeBias(ph.RegimeContext.LocalBias)
	ph.RegimeContext.HTFBias = normalizeBias(ph.RegimeContext.HTFBias)
	ph.RegimeContext.MacroBias = normalizeBias(ph.RegimeContext.MacroBias)

	ph.Confidence.ConfidenceScore = clamp(ph.Confidence.ConfidenceScore, 0, 100)

	for i, d := range ph.Execution.AllowedDirections {
		ph.Execution.AllowedDirections[i] = models.Direction(upper(string(d)))
		if _, err := models.ParseDirection(string(ph.Execution.AllowedDirections[i])); err != nil {
			details = append(details, "execution_guidance.allowed_directions: "+err.Error())
		}
	}

	if ph.RiskHints.TimeDecayMinutes <= 0 {
		ph.RiskHints.TimeDecayMinutes = 60
	}

	if len(details) > 0 {
		return nil, apperr.New(apperr.KindSchema, "SATY_PHASE failed field validation").WithDetails(details...)
	}
	return &Event{Source: models.SourceSatyPhase, Phase: &ph}, nil
}

func normalizeTrend(raw []byte, now int64) (*Event, error) {
	var snap models.TrendSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, apperr.Wrap(apperr.KindSchema, err, "malformed TREND envelope")
	}

	var details []string
	if snap.Ticker == "" {
		details = append(details, "ticker: required")
	}
	if snap.Timestamp == 0 {
		snap.Timestamp = now
	}

	for _, key := range models.TrendTimeframeKeys {
		state, ok := snap.Timeframes[key]
		if !ok {
			details = append(details, "timeframes."+key+": required")
			continue
		}
		dir, err := normalizeTrendDirection(state.Direction)
		if err != nil {
			details = append(details, "timeframes."+key+".direction: "+err.Error())
			continue
		}
		state.Direction = dir
		snap.Timeframes[key] = state
	}

	if len(details) > 0 {
		return nil, apperr.New(apperr.KindSchema, "TREND failed field validation").WithDetails(details...)
	}
	return &Event{Source: models.SourceTrend, Trend: &snap}, nil
}

func normalizeDots(raw []byte, now int64) (*Event, error) {
	var dots models.MTFDots
	if err := json.Unmarshal(raw, &dots); err != nil {
		return nil, apperr.Wrap(apperr.KindSchema, err, "malformed MTF_DOTS envelope")
	}

	var details []string
	if dots.Timestamp == 0 {
		dots.Timestamp = now
	}
	for key, dir := range dots.Timeframes {
		nd, err := normalizeTrendDirection(dir)
		if err != nil {
			details = append(details, "timeframes."+key+": "+err.Error())
			continue
		}
		dots.Timeframes[key] = nd
	}

	if len(details) > 0 {
		return nil, apperr.New(apperr.KindSchema, "MTF_DOTS failed field validation").WithDetails(details...)
	}
	return &Event{Source: models.SourceMTFDots, Dots: &dots}, nil
}

func normalizeSetup(raw []byte, now int64) (*Event, error) {
	var setup models.StructuralSetup
	if err := json.Unmarshal(raw, &setup); err != nil {
		return nil, apperr.Wrap(apperr.KindSchema, err, "malformed STRAT_EXEC envelope")
	}

	var details []string
	setup.ExecutionQuality = models.ExecutionQuality(upper(string(setup.ExecutionQuality)))
	switch setup.ExecutionQuality {
	case models.ExecA, models.ExecB, models.ExecC:
	default:
		details = append(details, "quality: must be A, B or C")
	}
	if setup.Direction != "" {
		setup.Direction = models.Direction(upper(string(setup.Direction)))
		if _, err := models.ParseDirection(string(setup.Direction)); err != nil {
			details = append(details, "direction: "+err.Error())
		}
	}
	if setup.Timestamp == 0 {
		setup.Timestamp = now
	}

	if len(details) > 0 {
		return nil, apperr.New(apperr.KindSchema, "STRAT_EXEC failed field validation").WithDetails(details...)
	}
	return &Event{Source: models.SourceStratExec, Setup: &setup}, nil
}

func normalizeBias(b models.Bias) models.Bias {
	up := models.Bias(upper(string(b)))
	switch up {
	case models.BiasBullish, models.BiasBearish, models.BiasNeutral:
		return up
	}
	return models.BiasNeutral
}

func normalizeTrendDirection(d models.TrendDirection) (models.TrendDirection, error) {
	low := models.TrendDirection(strings.ToLower(strings.TrimSpace(string(d))))
	switch low {
	case models.TrendBullish, models.TrendBearish, models.TrendNeutral:
		return low, nil
	}
	return "", apperr.New(apperr.KindSchema, "invalid trend direction %q", d)
}

func upper(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
