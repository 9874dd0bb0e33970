package config

import (
	"github.com/pulsedeck/decisiond/internal/models"
)

// EngineVersion tags every decision packet and response body.
const EngineVersion = "2.1.0"

// Tier is one row of a first-match-wins threshold table. Rows are
// ordered descending by Min; lookup returns the first row whose Min
// the value meets.
type Tier struct {
	Min   float64 `json:"min"`
	Value float64 `json:"value"`
}

// Lookup resolves v against descending tiers, falling back to def.
func Lookup(tiers []Tier, v float64, def float64) float64 {
	for _, t := range tiers {
		if v >= t.Min {
			return t.Value
		}
	}
	return def
}

// Matrices is the complete decision configuration. It is frozen and
// content-hashed at load; the hash rides on every DecisionPacket.
type Matrices struct {
	// ConfluenceWeights maps signal timeframe (minutes) to its share
	// of the confluence score. Weights sum to 1.
	ConfluenceWeights map[models.Timeframe]float64 `json:"confluence_weights"`

	// ConfluenceMultipliers tiers the confluence score into a factor.
	ConfluenceMultipliers []Tier  `json:"confluence_multipliers"`
	ConfluenceDefault     float64 `json:"confluence_default"`

	QualityMultipliers map[models.Quality]float64      `json:"quality_multipliers"`
	HTFMultipliers     map[models.HTFAlignment]float64 `json:"htf_alignment_multipliers"`

	RRTiers       []Tier  `json:"rr_thresholds"`
	RRDefault     float64 `json:"rr_default"`
	VolumeTiers   []Tier  `json:"volume_thresholds"`
	VolumeDefault float64 `json:"volume_default"`
	TrendTiers    []Tier  `json:"trend_thresholds"`
	TrendDefault  float64 `json:"trend_default"`

	SessionMultipliers map[models.MarketSession]float64 `json:"session_multipliers"`
	DayMultipliers     map[models.Weekday]float64       `json:"day_multipliers"`

	// PhaseConfidenceTiers boost by phase confidence score (tiered
	// table; the flat htf-alignment shortcut is deliberately not used).
	PhaseConfidenceTiers []Tier `json:"phase_confidence_boosts"`

	// PhasePositionBoost applies when confidence >= PhasePositionMinConfidence
	// and the phase reports HTF alignment.
	PhasePositionBoost         float64 `json:"phase_position_boost"`
	PhasePositionMinConfidence float64 `json:"phase_position_min_confidence"`

	// Trend boosts: strong snapshot alignment adds to position, an HTF
	// bias matching the entry direction adds to confidence.
	TrendStrongPositionBoost float64 `json:"trend_strong_position_boost"`
	TrendHTFConfidenceBoost  float64 `json:"trend_htf_confidence_boost"`

	// ValidityMinutes fixes each signal timeframe's store TTL.
	ValidityMinutes map[models.Timeframe]int `json:"validity_minutes"`
	// TrendTTLMinutes is the trend snapshot store TTL.
	TrendTTLMinutes int `json:"trend_ttl_minutes"`

	// Bounds and gate parameters.
	PositionMultiplierMin float64 `json:"position_multiplier_min"`
	PositionMultiplierMax float64 `json:"position_multiplier_max"`
	ConfluenceThreshold   float64 `json:"confluence_threshold"`
	HTFMinAIScore         float64 `json:"htf_min_ai_score"`
	StructuralMinAIScore  float64 `json:"structural_min_ai_score"`
	MaxSpreadBps          float64 `json:"max_spread_bps"`
	MaxATRSpike           float64 `json:"max_atr_spike"`
	MinDepthScore         float64 `json:"min_depth_score"`
	GammaOverridePct      float64 `json:"gamma_override_pct"`

	ConfidenceThresholds struct {
		Execute float64 `json:"execute"`
		Wait    float64 `json:"wait"`
		Skip    float64 `json:"skip"`
	} `json:"confidence_thresholds"`

	// TieBreakDirection resolves equal long/short confluence scores.
	TieBreakDirection models.Direction `json:"tie_break_direction"`
}

// Defaults returns the canonical decision configuration.
func Defaults() Matrices {
	m := Matrices{
		ConfluenceWeights: map[models.Timeframe]float64{
			models.TF240: 0.40,
			models.TF60:  0.25,
			models.TF30:  0.15,
			models.TF15:  0.10,
			models.TF5:   0.07,
			models.TF3:   0.03,
		},
		ConfluenceMultipliers: []Tier{
			{Min: 90, Value: 2.5},
			{Min: 80, Value: 2.0},
			{Min: 70, Value: 1.5},
			{Min: 60, Value: 1.0},
			{Min: 50, Value: 0.7},
		},
		ConfluenceDefault: 0.5,

		QualityMultipliers: map[models.Quality]float64{
			models.QualityExtreme: 1.3,
			models.QualityHigh:    1.1,
			models.QualityMedium:  1.0,
		},
		HTFMultipliers: map[models.HTFAlignment]float64{
			models.AlignPerfect: 1.3,
			models.AlignGood:    1.15,
			models.AlignWeak:    0.85,
			models.AlignCounter: 0.5,
		},

		RRTiers: []Tier{
			{Min: 5.0, Value: 1.2},
			{Min: 4.0, Value: 1.15},
			{Min: 3.0, Value: 1.1},
			{Min: 2.0, Value: 1.0},
			{Min: 1.5, Value: 0.85},
		},
		RRDefault: 0.5,
		VolumeTiers: []Tier{
			{Min: 1.5, Value: 1.1},
			{Min: 0.8, Value: 1.0},
		},
		VolumeDefault: 0.7,
		TrendTiers: []Tier{
			{Min: 80, Value: 1.2},
			{Min: 60, Value: 1.0},
		},
		TrendDefault: 0.8,

		SessionMultipliers: map[models.MarketSession]float64{
			models.SessionOpen:       0.9,
			models.SessionMidday:     1.0,
			models.SessionPowerHour:  0.85,
			models.SessionAfterHours: 0.5,
		},
		DayMultipliers: map[models.Weekday]float64{
			models.Monday:    0.95,
			models.Tuesday:   1.1,
			models.Wednesday: 1.0,
			models.Thursday:  0.95,
			models.Friday:    0.85,
		},

		PhaseConfidenceTiers: []Tier{
			{Min: 90, Value: 0.15},
			{Min: 80, Value: 0.10},
			{Min: 70, Value: 0.05},
		},
		PhasePositionBoost:         0.10,
		PhasePositionMinConfidence: 70,

		TrendStrongPositionBoost: 0.30,
		TrendHTFConfidenceBoost:  0.15,

		ValidityMinutes: map[models.Timeframe]int{
			models.TF3:   6,
			models.TF5:   10,
			models.TF15:  30,
			models.TF30:  60,
			models.TF60:  120,
			models.TF240: 480,
		},
		TrendTTLMinutes: 60,

		PositionMultiplierMin: 0.5,
		PositionMultiplierMax: 3.0,
		ConfluenceThreshold:   60,
		HTFMinAIScore:         6,
		StructuralMinAIScore:  7.0,
		MaxSpreadBps:          12,
		MaxATRSpike:           2.5,
		MinDepthScore:         30,
		GammaOverridePct:      85,

		TieBreakDirection: models.DirectionLong,
	}
	m.ConfidenceThresholds.Execute = 80
	m.ConfidenceThresholds.Wait = 65
	m.ConfidenceThresholds.Skip = 0
	return m
}

// ValidityFor returns the TTL minutes for a signal timeframe.
func (m *Matrices) ValidityFor(tf models.Timeframe) int {
	if v, ok := m.ValidityMinutes[tf]; ok {
		return v
	}
	// Unknown timeframes decay at twice their own length.
	return int(tf) * 2
}

// ConfluenceMultiplier resolves the tiered confluence factor.
func (m *Matrices) ConfluenceMultiplier(score float64) float64 {
	return Lookup(m.ConfluenceMultipliers, score, m.ConfluenceDefault)
}

// RRMultiplier resolves the reward/risk factor.
func (m *Matrices) RRMultiplier(rr float64) float64 {
	return Lookup(m.RRTiers, rr, m.RRDefault)
}

// VolumeMultiplier resolves the relative-volume factor.
func (m *Matrices) VolumeMultiplier(volVsAvg float64) float64 {
	return Lookup(m.VolumeTiers, volVsAvg, m.VolumeDefault)
}

// TrendMultiplier resolves the trend-strength factor.
func (m *Matrices) TrendMultiplier(strength float64) float64 {
	return Lookup(m.TrendTiers, strength, m.TrendDefault)
}

// PhaseConfidenceBoost resolves the tiered phase confidence boost.
func (m *Matrices) PhaseConfidenceBoost(confidence float64) float64 {
	return Lookup(m.PhaseConfidenceTiers, confidence, 0)
}
