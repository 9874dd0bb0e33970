// Package confluence computes the weighted multi-timeframe directional
// score. Pure arithmetic over an active-signal snapshot; the sum law
// score(D) = 100 * Σ w(tf)·[active[tf].type = D] holds exactly.
package confluence

import (
	"sort"

	"github.com/pulsedeck/decisiond/internal/config"
	"github.com/pulsedeck/decisiond/internal/models"
)

// Calculator scores active signals against the frozen weight matrix.
type Calculator struct {
	weights  map[models.Timeframe]float64
	tieBreak models.Direction
}

func NewCalculator(m config.Matrices) *Calculator {
	return &Calculator{
		weights:  m.ConfluenceWeights,
		tieBreak: m.TieBreakDirection,
	}
}

// Score returns 100 x the weight sum of timeframes agreeing with d.
func (c *Calculator) Score(active map[models.Timeframe]models.StoredSignal, d models.Direction) float64 {
	sum := 0.0
	for tf, entry := range active {
		if entry.Signal.Signal.Type == d {
			sum += c.weights[tf]
		}
	}
	return sum * 100
}

// Dominant is the outcome of the direction race.
type Dominant struct {
	Direction  models.Direction `json:"direction"`
	Score      float64          `json:"score"`
	LongScore  float64          `json:"long_score"`
	ShortScore float64          `json:"short_score"`
}

// DominantDirection picks whichever side scores higher; exact ties go
// to the configured tie-break side. An empty snapshot has no direction.
func (c *Calculator) DominantDirection(active map[models.Timeframe]models.StoredSignal) Dominant {
	if len(active) == 0 {
		return Dominant{Direction: models.DirectionNone}
	}

	long := c.Score(active, models.DirectionLong)
	short := c.Score(active, models.DirectionShort)

	d := Dominant{LongScore: long, ShortScore: short}
	switch {
	case long > short:
		d.Direction, d.Score = models.DirectionLong, long
	case short > long:
		d.Direction, d.Score = models.DirectionShort, short
	default:
		d.Direction = c.tieBreak
		d.Score = long
	}
	return d
}

// TimeframeContribution is one row of the breakdown report.
type TimeframeContribution struct {
	Timeframe    models.Timeframe `json:"timeframe"`
	Aligned      bool             `json:"aligned"`
	Weight       float64          `json:"weight"`
	Contribution float64          `json:"contribution"`
}

// Breakdown is the per-timeframe audit of a score. The contributions
// of aligned rows sum to Score exactly.
type Breakdown struct {
	Direction            models.Direction        `json:"direction"`
	Score                float64                 `json:"score"`
	Contributions        []TimeframeContribution `json:"contributions"`
	AlignedTimeframes    []models.Timeframe      `json:"aligned_timeframes"`
	MisalignedTimeframes []models.Timeframe      `json:"misaligned_timeframes"`
}

// Explain reports per-timeframe alignment for direction d, HTF first.
func (c *Calculator) Explain(active map[models.Timeframe]models.StoredSignal, d models.Direction) Breakdown {
	b := Breakdown{Direction: d}

	tfs := make([]models.Timeframe, 0, len(active))
	for tf := range active {
		tfs = append(tfs, tf)
	}
	sort.Slice(tfs, func(i, j int) bool { return tfs[i] > tfs[j] })

	for _, tf := range tfs {
		entry := active[tf]
		aligned := entry.Signal.Signal.Type == d
		row := TimeframeContribution{
			Timeframe: tf,
			Aligned:   aligned,
			Weight:    c.weights[tf],
		}
		if aligned {
			row.Contribution = c.weights[tf] * 100
			b.Score += row.Contribution
			b.AlignedTimeframes = append(b.AlignedTimeframes, tf)
		} else {
			b.MisalignedTimeframes = append(b.MisalignedTimeframes, tf)
		}
		b.Contributions = append(b.Contributions, row)
	}
	return b
}
