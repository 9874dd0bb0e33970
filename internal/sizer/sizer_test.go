package sizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedeck/decisiond/internal/config"
	"github.com/pulsedeck/decisiond/internal/models"
)

func entrySignal(dir models.Direction) models.EnrichedSignal {
	return models.EnrichedSignal{
		Signal:        models.SignalCore{Type: dir, Timeframe: models.TF15, Quality: models.QualityHigh, AIScore: 8},
		Instrument:    models.Instrument{Ticker: "SPY"},
		Risk:          models.RiskBlock{RRRatioT1: 2.5, RecommendedContracts: 2},
		MarketContext: models.SignalMarket{VolumeVsAvg: 1.0},
		Trend:         models.SignalTrend{Strength: 70},
		TimeContext:   models.TimeContext{MarketSession: models.SessionMidday, DayOfWeek: models.Wednesday},
	}
}

func storedAt(tf models.Timeframe, dir models.Direction, aiScore float64) models.StoredSignal {
	return models.StoredSignal{Signal: models.EnrichedSignal{
		Signal:     models.SignalCore{Type: dir, Timeframe: tf, AIScore: aiScore},
		Instrument: models.Instrument{Ticker: "SPY"},
	}}
}

func TestDetermineAlignment(t *testing.T) {
	s := New(config.Defaults())

	tests := []struct {
		name   string
		entry  models.EnrichedSignal
		active map[models.Timeframe]models.StoredSignal
		want   models.HTFAlignment
	}{
		{
			name:  "both legs stored",
			entry: entrySignal(models.DirectionLong),
			active: map[models.Timeframe]models.StoredSignal{
				models.TF240: storedAt(models.TF240, models.DirectionLong, 8),
				models.TF60:  storedAt(models.TF60, models.DirectionLong, 7),
			},
			want: models.AlignPerfect,
		},
		{
			name:  "4h leg only",
			entry: entrySignal(models.DirectionLong),
			active: map[models.Timeframe]models.StoredSignal{
				models.TF240: storedAt(models.TF240, models.DirectionLong, 8),
			},
			want: models.AlignGood,
		},
		{
			name:   "no backing",
			entry:  entrySignal(models.DirectionLong),
			active: nil,
			want:   models.AlignWeak,
		},
		{
			name:  "low score 240 does not count",
			entry: entrySignal(models.DirectionLong),
			active: map[models.Timeframe]models.StoredSignal{
				models.TF240: storedAt(models.TF240, models.DirectionLong, 4),
			},
			want: models.AlignWeak,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.DetermineAlignment(tt.entry, tt.active, nil))
		})
	}
}

func TestDetermineAlignmentProducerBiases(t *testing.T) {
	s := New(config.Defaults())

	entry := entrySignal(models.DirectionLong)
	entry.MTFContext.Bias4H = models.BiasBullish
	entry.MTFContext.Bias1H = models.BiasBullish
	assert.Equal(t, models.AlignPerfect, s.DetermineAlignment(entry, nil, nil))

	counter := entrySignal(models.DirectionLong)
	counter.MTFContext.Bias4H = models.BiasBearish
	counter.MTFContext.Bias1H = models.BiasBearish
	assert.Equal(t, models.AlignCounter, s.DetermineAlignment(counter, nil, nil))
}

func TestDetermineAlignmentPhaseBacks4H(t *testing.T) {
	s := New(config.Defaults())
	phases := map[models.TimeframeRole]models.StoredPhase{
		models.RoleRegime: {Phase: models.PhaseEvent{
			Event: models.PhaseDetail{Implication: models.ImplUpside},
		}},
	}
	entry := entrySignal(models.DirectionLong)
	entry.MTFContext.Bias1H = models.BiasBullish
	assert.Equal(t, models.AlignPerfect, s.DetermineAlignment(entry, nil, phases))
}

func TestComputeFinalClampedToBounds(t *testing.T) {
	m := config.Defaults()
	s := New(m)

	// Everything maxed: raw far exceeds the cap.
	entry := entrySignal(models.DirectionLong)
	entry.Signal.Quality = models.QualityExtreme
	entry.Risk.RRRatioT1 = 5.0
	entry.MarketContext.VolumeVsAvg = 1.6
	entry.Trend.Strength = 85
	entry.TimeContext.DayOfWeek = models.Tuesday

	res := s.Compute(entry, 95, models.AlignPerfect, nil, nil)
	assert.Greater(t, res.Breakdown.Raw, m.PositionMultiplierMax)
	assert.InDelta(t, m.PositionMultiplierMax, res.Breakdown.Final, 1e-9)
	assert.False(t, res.ShouldSkip)
	assert.GreaterOrEqual(t, res.Contracts, 1)
}

func TestComputeShouldSkipBelowFloor(t *testing.T) {
	m := config.Defaults()
	s := New(m)

	entry := entrySignal(models.DirectionLong)
	entry.Signal.Quality = models.QualityMedium
	entry.Risk.RRRatioT1 = 1.0     // 0.5
	entry.MarketContext.VolumeVsAvg = 0.5 // 0.7
	entry.Trend.Strength = 30      // 0.8
	entry.TimeContext.MarketSession = models.SessionAfterHours

	res := s.Compute(entry, 55, models.AlignCounter, nil, nil)
	require.Less(t, res.Breakdown.Raw, m.PositionMultiplierMin)
	assert.True(t, res.ShouldSkip)
	assert.Zero(t, res.Contracts, "skipped evaluations size nothing")
	assert.InDelta(t, m.PositionMultiplierMin, res.Breakdown.Final, 1e-9, "final still clamps for the audit trail")
}

func TestComputeTrendBoostsAdd(t *testing.T) {
	s := New(config.Defaults())
	entry := entrySignal(models.DirectionLong)

	trend := &models.StoredTrend{Alignment: models.TrendAlignment{
		Strength: models.StrengthStrong,
		HTFBias:  models.TrendBullish,
	}}
	res := s.Compute(entry, 70, models.AlignGood, nil, trend)
	assert.InDelta(t, 0.45, res.Breakdown.TrendAlignment, 1e-9, "STRONG 0.30 and HTF match 0.15 add")

	weak := &models.StoredTrend{Alignment: models.TrendAlignment{
		Strength: models.StrengthModerate,
		HTFBias:  models.TrendBearish,
	}}
	res = s.Compute(entry, 70, models.AlignGood, nil, weak)
	assert.Zero(t, res.Breakdown.TrendAlignment)
}

func TestComputePhaseBoostsTakePerSourceMax(t *testing.T) {
	s := New(config.Defaults())
	entry := entrySignal(models.DirectionLong)

	phases := map[models.TimeframeRole]models.StoredPhase{
		models.RoleRegime: {Phase: models.PhaseEvent{Confidence: models.PhaseConfidence{
			ConfidenceScore: 92, HTFAlignment: true,
		}}},
		models.RoleBias: {Phase: models.PhaseEvent{Confidence: models.PhaseConfidence{
			ConfidenceScore: 72, HTFAlignment: false,
		}}},
	}
	res := s.Compute(entry, 70, models.AlignGood, phases, nil)
	assert.InDelta(t, 0.15, res.Breakdown.PhaseConfidence, 1e-9, "max across phases, not sum")
	assert.InDelta(t, 0.10, res.Breakdown.PhasePosition, 1e-9)
}

func TestComputeBreakdownMultipliesExactly(t *testing.T) {
	s := New(config.Defaults())
	entry := entrySignal(models.DirectionLong)

	res := s.Compute(entry, 75, models.AlignGood, nil, nil)
	b := res.Breakdown
	product := b.Confluence * b.Quality * b.HTFAlignment * b.RR * b.Volume *
		b.Trend * b.Session * b.Day *
		(1 + b.PhaseConfidence) * (1 + b.PhasePosition) * (1 + b.TrendAlignment)
	assert.InDelta(t, product, b.Raw, 1e-9)
}
