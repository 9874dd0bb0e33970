package confluence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pulsedeck/decisiond/internal/config"
	"github.com/pulsedeck/decisiond/internal/models"
)

func signalAt(tf models.Timeframe, dir models.Direction) models.StoredSignal {
	return models.StoredSignal{Signal: models.EnrichedSignal{
		Signal:     models.SignalCore{Type: dir, Timeframe: tf},
		Instrument: models.Instrument{Ticker: "SPY"},
	}}
}

func active(dirs map[models.Timeframe]models.Direction) map[models.Timeframe]models.StoredSignal {
	out := make(map[models.Timeframe]models.StoredSignal, len(dirs))
	for tf, dir := range dirs {
		out[tf] = signalAt(tf, dir)
	}
	return out
}

func TestScoreSumLaw(t *testing.T) {
	calc := NewCalculator(config.Defaults())

	tests := []struct {
		name string
		dirs map[models.Timeframe]models.Direction
		long float64
	}{
		{"all long", map[models.Timeframe]models.Direction{
			models.TF240: models.DirectionLong, models.TF60: models.DirectionLong,
			models.TF30: models.DirectionLong, models.TF15: models.DirectionLong,
			models.TF5: models.DirectionLong, models.TF3: models.DirectionLong,
		}, 100},
		{"htf long only", map[models.Timeframe]models.Direction{
			models.TF240: models.DirectionLong, models.TF60: models.DirectionLong,
		}, 65},
		{"mixed", map[models.Timeframe]models.Direction{
			models.TF240: models.DirectionLong, models.TF60: models.DirectionShort,
			models.TF30: models.DirectionLong,
		}, 55},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := active(tt.dirs)
			assert.InDelta(t, tt.long, calc.Score(snap, models.DirectionLong), 1e-9)

			// The two sides can never jointly exceed the weight budget.
			total := calc.Score(snap, models.DirectionLong) + calc.Score(snap, models.DirectionShort)
			assert.LessOrEqual(t, total, 100.0+1e-9)
		})
	}
}

func TestDominantDirection(t *testing.T) {
	calc := NewCalculator(config.Defaults())

	d := calc.DominantDirection(active(map[models.Timeframe]models.Direction{
		models.TF240: models.DirectionLong,
		models.TF60:  models.DirectionShort,
	}))
	assert.Equal(t, models.DirectionLong, d.Direction)
	assert.InDelta(t, 40, d.Score, 1e-9)
	assert.InDelta(t, 40, d.LongScore, 1e-9)
	assert.InDelta(t, 25, d.ShortScore, 1e-9)
}

func TestDominantDirectionEmptySnapshot(t *testing.T) {
	calc := NewCalculator(config.Defaults())
	d := calc.DominantDirection(nil)
	assert.Equal(t, models.DirectionNone, d.Direction)
	assert.Zero(t, d.Score)
}

func TestDominantDirectionTieBreak(t *testing.T) {
	m := config.Defaults()
	// 30M+15M long = 0.25, 60M short = 0.25: exact tie.
	snap := active(map[models.Timeframe]models.Direction{
		models.TF30: models.DirectionLong,
		models.TF15: models.DirectionLong,
		models.TF60: models.DirectionShort,
	})

	d := NewCalculator(m).DominantDirection(snap)
	assert.Equal(t, models.DirectionLong, d.Direction, "default tie break is LONG")

	m.TieBreakDirection = models.DirectionShort
	d = NewCalculator(m).DominantDirection(snap)
	assert.Equal(t, models.DirectionShort, d.Direction)
}

func TestExplainContributionsSumToScore(t *testing.T) {
	calc := NewCalculator(config.Defaults())
	snap := active(map[models.Timeframe]models.Direction{
		models.TF240: models.DirectionLong,
		models.TF60:  models.DirectionLong,
		models.TF15:  models.DirectionShort,
	})

	b := calc.Explain(snap, models.DirectionLong)
	sum := 0.0
	for _, row := range b.Contributions {
		sum += row.Contribution
	}
	assert.InDelta(t, b.Score, sum, 1e-9)
	assert.InDelta(t, calc.Score(snap, models.DirectionLong), b.Score, 1e-9)

	// HTF rows come first.
	assert.Equal(t, models.TF240, b.Contributions[0].Timeframe)
	assert.Equal(t, []models.Timeframe{models.TF240, models.TF60}, b.AlignedTimeframes)
	assert.Equal(t, []models.Timeframe{models.TF15}, b.MisalignedTimeframes)
}
