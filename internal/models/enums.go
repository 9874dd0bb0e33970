package models

import "fmt"

// Direction is the trade side carried by signals and decisions.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionNone  Direction = "NONE"
)

// ParseDirection validates an uppercased direction string.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionLong, DirectionShort:
		return Direction(s), nil
	}
	return DirectionNone, fmt.Errorf("invalid direction %q", s)
}

// Opposite returns the counter side; NONE maps to itself.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	}
	return DirectionNone
}

// Timeframe is a bar interval in minutes. Only the six trading
// timeframes are valid on inbound signals.
type Timeframe int

const (
	TF3   Timeframe = 3
	TF5   Timeframe = 5
	TF15  Timeframe = 15
	TF30  Timeframe = 30
	TF60  Timeframe = 60
	TF240 Timeframe = 240
)

// SignalTimeframes lists the valid signal timeframes in HTF-first
// priority order (entry selection walks this slice).
var SignalTimeframes = []Timeframe{TF240, TF60, TF30, TF15, TF5, TF3}

// Valid reports whether tf is one of the six signal timeframes.
func (tf Timeframe) Valid() bool {
	switch tf {
	case TF3, TF5, TF15, TF30, TF60, TF240:
		return true
	}
	return false
}

func (tf Timeframe) String() string {
	return fmt.Sprintf("%dM", int(tf))
}

// Quality is the analyzer-assigned grade on a signal.
type Quality string

const (
	QualityExtreme Quality = "EXTREME"
	QualityHigh    Quality = "HIGH"
	QualityMedium  Quality = "MEDIUM"
)

func ParseQuality(s string) (Quality, error) {
	switch Quality(s) {
	case QualityExtreme, QualityHigh, QualityMedium:
		return Quality(s), nil
	}
	return "", fmt.Errorf("invalid quality %q", s)
}

// CandleDirection is the color of the triggering candle.
type CandleDirection string

const (
	CandleGreen CandleDirection = "GREEN"
	CandleRed   CandleDirection = "RED"
)

// MarketSession buckets the trading day.
type MarketSession string

const (
	SessionOpen       MarketSession = "OPEN"
	SessionMidday     MarketSession = "MIDDAY"
	SessionPowerHour  MarketSession = "POWER_HOUR"
	SessionAfterHours MarketSession = "AFTERHOURS"
)

func ParseMarketSession(s string) (MarketSession, error) {
	switch MarketSession(s) {
	case SessionOpen, SessionMidday, SessionPowerHour, SessionAfterHours:
		return MarketSession(s), nil
	}
	return "", fmt.Errorf("invalid market session %q", s)
}

// Weekday is the trading day of week (weekends never carry signals).
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
)

func ParseWeekday(s string) (Weekday, error) {
	switch Weekday(s) {
	case Monday, Tuesday, Wednesday, Thursday, Friday:
		return Weekday(s), nil
	}
	return "", fmt.Errorf("invalid day of week %q", s)
}

// Bias is a directional lean used by trend and MTF context blocks.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

// MatchesDirection reports whether the bias agrees with a trade side.
func (b Bias) MatchesDirection(d Direction) bool {
	return (b == BiasBullish && d == DirectionLong) ||
		(b == BiasBearish && d == DirectionShort)
}

// CountersDirection reports whether the bias actively disagrees with a
// trade side. Neutral neither matches nor counters.
func (b Bias) CountersDirection(d Direction) bool {
	return (b == BiasBullish && d == DirectionShort) ||
		(b == BiasBearish && d == DirectionLong)
}

// HTFAlignment grades how well the higher timeframes back the entry.
type HTFAlignment string

const (
	AlignPerfect HTFAlignment = "PERFECT"
	AlignGood    HTFAlignment = "GOOD"
	AlignWeak    HTFAlignment = "WEAK"
	AlignCounter HTFAlignment = "COUNTER"
)

// TrendDirection is the per-timeframe direction in a trend snapshot.
// Producers emit these lowercase.
type TrendDirection string

const (
	TrendBullish TrendDirection = "bullish"
	TrendBearish TrendDirection = "bearish"
	TrendNeutral TrendDirection = "neutral"
)

// AlignmentStrength classifies a trend snapshot's agreement score.
type AlignmentStrength string

const (
	StrengthStrong   AlignmentStrength = "STRONG"
	StrengthModerate AlignmentStrength = "MODERATE"
	StrengthWeak     AlignmentStrength = "WEAK"
	StrengthChoppy   AlignmentStrength = "CHOPPY"
)

// Decision is the terminal verdict of one evaluation.
type Decision string

const (
	DecisionExecute Decision = "EXECUTE"
	DecisionWait    Decision = "WAIT"
	DecisionSkip    Decision = "SKIP"
)

// Source identifies which upstream producer a raw webhook came from.
type Source string

const (
	SourceSatyPhase      Source = "SATY_PHASE"
	SourceMTFDots        Source = "MTF_DOTS"
	SourceUltimateOption Source = "ULTIMATE_OPTIONS"
	SourceTradingView    Source = "TRADINGVIEW_SIGNAL"
	SourceStratExec      Source = "STRAT_EXEC"
	SourceTrend          Source = "TREND"
)

// GammaBias is the options dealer positioning read.
type GammaBias string

const (
	GammaPositive GammaBias = "POSITIVE"
	GammaNegative GammaBias = "NEGATIVE"
	GammaNeutral  GammaBias = "NEUTRAL"
)

// DataOrigin marks whether a market-context section came from a live
// provider or from the frozen fallback table.
type DataOrigin string

const (
	OriginAPI      DataOrigin = "API"
	OriginFallback DataOrigin = "FALLBACK"
)

// PhaseName is the market-cycle label for a regime phase number.
type PhaseName string

const (
	PhaseAccumulation PhaseName = "ACCUMULATION"
	PhaseMarkup       PhaseName = "MARKUP"
	PhaseDistribution PhaseName = "DISTRIBUTION"
	PhaseMarkdown     PhaseName = "MARKDOWN"
)

// PhaseNameFor maps phase numbers 1..4 to their cycle labels.
func PhaseNameFor(phase int) PhaseName {
	switch phase {
	case 1:
		return PhaseAccumulation
	case 2:
		return PhaseMarkup
	case 3:
		return PhaseDistribution
	case 4:
		return PhaseMarkdown
	}
	return ""
}

// VolatilityLevel buckets realized volatility for the regime view.
type VolatilityLevel string

const (
	VolLow     VolatilityLevel = "LOW"
	VolNormal  VolatilityLevel = "NORMAL"
	VolHigh    VolatilityLevel = "HIGH"
	VolExtreme VolatilityLevel = "EXTREME"
)

// ExecutionQuality grades a structural setup A (best) to C.
type ExecutionQuality string

const (
	ExecA ExecutionQuality = "A"
	ExecB ExecutionQuality = "B"
	ExecC ExecutionQuality = "C"
)

// TimeframeRole is the role a phase event's timeframe plays.
type TimeframeRole string

const (
	RoleRegime         TimeframeRole = "REGIME"
	RoleBias           TimeframeRole = "BIAS"
	RoleSetupFormation TimeframeRole = "SETUP_FORMATION"
	RoleStructural     TimeframeRole = "STRUCTURAL"
)

// DirectionalImplication is the lean a phase event implies.
type DirectionalImplication string

const (
	ImplUpside   DirectionalImplication = "UPSIDE_POTENTIAL"
	ImplDownside DirectionalImplication = "DOWNSIDE_POTENTIAL"
	ImplNeutral  DirectionalImplication = "NEUTRAL"
)

// MatchesDirection reports whether the implication backs a trade side.
func (di DirectionalImplication) MatchesDirection(d Direction) bool {
	return (di == ImplUpside && d == DirectionLong) ||
		(di == ImplDownside && d == DirectionShort)
}

// PhaseEventType classifies regime transitions.
type PhaseEventType string

const (
	PhaseEntry    PhaseEventType = "REGIME_PHASE_ENTRY"
	PhaseExit     PhaseEventType = "REGIME_PHASE_EXIT"
	PhaseReversal PhaseEventType = "REGIME_REVERSAL"
)
