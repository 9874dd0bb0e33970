// Package sizer turns a passed gate run into a position multiplier.
// The pipeline is purely multiplicative and clamped; every factor is
// recorded in the breakdown so a decision can be replayed by hand.
package sizer

import (
	"math"

	"github.com/pulsedeck/decisiond/internal/config"
	"github.com/pulsedeck/decisiond/internal/models"
)

// Sizer applies the frozen multiplier matrices.
type Sizer struct {
	m config.Matrices
}

func New(m config.Matrices) *Sizer {
	return &Sizer{m: m}
}

// DetermineAlignment grades higher-timeframe backing for an entry.
// The 4H leg counts a stored 240M signal (same direction, qualifying
// ai_score), the producer's own 4h bias, or a matching REGIME/BIAS
// phase; the 1H leg works the same off the 60M slot.
func (s *Sizer) DetermineAlignment(
	entry models.EnrichedSignal,
	active map[models.Timeframe]models.StoredSignal,
	phases map[models.TimeframeRole]models.StoredPhase,
) models.HTFAlignment {
	dir := entry.Signal.Type

	aligned4H := s.storedAligned(active, models.TF240, dir) ||
		entry.MTFContext.Bias4H.MatchesDirection(dir) ||
		phaseBacks(phases, dir)

	aligned1H := s.storedAligned(active, models.TF60, dir) ||
		entry.MTFContext.Bias1H.MatchesDirection(dir)

	// Both producer biases opposing the trade overrides any stored
	// backing: the entry is counter-trend by its own producer's read.
	switch {
	case entry.MTFContext.Bias4H.CountersDirection(dir) && entry.MTFContext.Bias1H.CountersDirection(dir):
		return models.AlignCounter
	case aligned4H && aligned1H:
		return models.AlignPerfect
	case aligned4H || aligned1H:
		return models.AlignGood
	default:
		return models.AlignWeak
	}
}

func (s *Sizer) storedAligned(active map[models.Timeframe]models.StoredSignal, tf models.Timeframe, dir models.Direction) bool {
	entry, ok := active[tf]
	return ok && entry.Signal.Signal.Type == dir && entry.Signal.Signal.AIScore >= s.m.HTFMinAIScore
}

func phaseBacks(phases map[models.TimeframeRole]models.StoredPhase, dir models.Direction) bool {
	for _, role := range []models.TimeframeRole{models.RoleRegime, models.RoleBias} {
		if ph, ok := phases[role]; ok && ph.Phase.Event.Implication.MatchesDirection(dir) {
			return true
		}
	}
	return false
}

// Result is the sizing outcome for one evaluation.
type Result struct {
	Breakdown  models.MultiplierBreakdown
	ShouldSkip bool
	Contracts  int
}

// Compute runs the multiplier pipeline for an entry signal.
// Boosts are the per-source maximum across active phases and trends;
// within one trend the STRONG position boost and the HTF confidence
// boost add before joining the pipeline.
func (s *Sizer) Compute(
	entry models.EnrichedSignal,
	confluenceScore float64,
	alignment models.HTFAlignment,
	phases map[models.TimeframeRole]models.StoredPhase,
	trend *models.StoredTrend,
) Result {
	b := models.MultiplierBreakdown{
		Confluence:   s.m.ConfluenceMultiplier(confluenceScore),
		Quality:      s.qualityMultiplier(entry.Signal.Quality),
		HTFAlignment: s.htfMultiplier(alignment),
		RR:           s.m.RRMultiplier(entry.Risk.RRRatioT1),
		Volume:       s.m.VolumeMultiplier(entry.MarketContext.VolumeVsAvg),
		Trend:        s.m.TrendMultiplier(entry.Trend.Strength),
		Session:      s.sessionMultiplier(entry.TimeContext.MarketSession),
		Day:          s.dayMultiplier(entry.TimeContext.DayOfWeek),
	}

	b.PhaseConfidence, b.PhasePosition = s.phaseBoosts(phases)
	b.TrendAlignment = s.trendBoost(entry.Signal.Type, trend)

	b.Raw = 1 *
		b.Confluence *
		b.Quality *
		b.HTFAlignment *
		b.RR *
		b.Volume *
		b.Trend *
		b.Session *
		b.Day *
		(1 + b.PhaseConfidence) *
		(1 + b.PhasePosition) *
		(1 + b.TrendAlignment)

	b.Final = clamp(b.Raw, s.m.PositionMultiplierMin, s.m.PositionMultiplierMax)

	res := Result{
		Breakdown:  b,
		ShouldSkip: b.Raw < s.m.PositionMultiplierMin,
	}
	if !res.ShouldSkip {
		res.Contracts = recommendedContracts(entry.Risk.RecommendedContracts, b.Final)
	}
	return res
}

// phaseBoosts takes the maximum boost each phase source offers.
func (s *Sizer) phaseBoosts(phases map[models.TimeframeRole]models.StoredPhase) (confidence, position float64) {
	for _, ph := range phases {
		c := ph.Phase.Confidence
		if boost := s.m.PhaseConfidenceBoost(c.ConfidenceScore); boost > confidence {
			confidence = boost
		}
		if c.ConfidenceScore >= s.m.PhasePositionMinConfidence && c.HTFAlignment {
			if s.m.PhasePositionBoost > position {
				position = s.m.PhasePositionBoost
			}
		}
	}
	return confidence, position
}

// trendBoost sums the snapshot's two possible boosts: STRONG alignment
// backs position, an HTF bias in the trade direction backs confidence.
func (s *Sizer) trendBoost(dir models.Direction, trend *models.StoredTrend) float64 {
	if trend == nil {
		return 0
	}
	boost := 0.0
	if trend.Alignment.Strength == models.StrengthStrong {
		boost += s.m.TrendStrongPositionBoost
	}
	if trend.Alignment.HTFBias.MatchesDirection(dir) {
		boost += s.m.TrendHTFConfidenceBoost
	}
	return boost
}

func (s *Sizer) qualityMultiplier(q models.Quality) float64 {
	if v, ok := s.m.QualityMultipliers[q]; ok {
		return v
	}
	return 1.0
}

func (s *Sizer) htfMultiplier(a models.HTFAlignment) float64 {
	if v, ok := s.m.HTFMultipliers[a]; ok {
		return v
	}
	return 1.0
}

func (s *Sizer) sessionMultiplier(sess models.MarketSession) float64 {
	if v, ok := s.m.SessionMultipliers[sess]; ok {
		return v
	}
	return 1.0
}

func (s *Sizer) dayMultiplier(day models.Weekday) float64 {
	if v, ok := s.m.DayMultipliers[day]; ok {
		return v
	}
	// Signals without a day context size as a neutral weekday.
	return 1.0
}

func recommendedContracts(base, final float64) int {
	n := int(math.Round(base * final))
	if n < 1 {
		return 1
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
