package models

// MarketContext is the provider-backed view assembled per decision.
// Every section is always populated; Origin says whether it came from
// a live call or the frozen fallback table.
type MarketContext struct {
	Options   OptionsData   `json:"options_data"`
	Stats     MarketStats   `json:"market_stats"`
	Liquidity LiquidityData `json:"liquidity_data"`
}

// OptionsData is the dealer-positioning section.
type OptionsData struct {
	PutCallRatio float64    `json:"put_call_ratio"`
	IVPercentile float64    `json:"iv_percentile"` // [0, 100]
	GammaBias    GammaBias  `json:"gamma_bias"`
	Origin       DataOrigin `json:"source"`
}

// MarketStats is the volatility / trend section.
type MarketStats struct {
	ATR14      float64    `json:"atr14"`
	RV20       float64    `json:"rv20"`
	TrendSlope float64    `json:"trend_slope"` // [-1, 1]
	Origin     DataOrigin `json:"source"`
}

// LiquidityData is the microstructure section.
type LiquidityData struct {
	SpreadBps     float64    `json:"spread_bps"`
	DepthScore    float64    `json:"depth_score"` // [0, 100]
	TradeVelocity string     `json:"trade_velocity"`
	Origin        DataOrigin `json:"source"`
}

// ProviderCall is the per-provider metadata the builder reports
// alongside every assembled MarketContext.
type ProviderCall struct {
	Provider   string     `json:"provider"`
	Success    bool       `json:"success"`
	Origin     DataOrigin `json:"source"`
	Error      string     `json:"error,omitempty"`
	Attempts   int        `json:"attempts"`
	DurationMs int64      `json:"duration_ms"`
}

// DecisionContext is the completeness-scored composite the gates read
// when per-source partial updates are merged through the ContextStore.
type DecisionContext struct {
	Meta       ContextMeta      `json:"meta"`
	Instrument Instrument       `json:"instrument"`
	Regime     RegimeView       `json:"regime"`
	Alignment  AlignmentView    `json:"alignment"`
	Expert     ExpertView       `json:"expert"`
	Structure  *StructuralSetup `json:"structure,omitempty"`
}

// ContextMeta versions and scores the composite.
type ContextMeta struct {
	EngineVersion string  `json:"engine_version"`
	ReceivedAt    int64   `json:"received_at"`
	Completeness  float64 `json:"completeness"` // [0, 1]
}

// RegimeView is the regime section of a DecisionContext.
type RegimeView struct {
	Phase      int             `json:"phase"` // 1..4
	PhaseName  PhaseName       `json:"phase_name"`
	Volatility VolatilityLevel `json:"volatility"`
	Confidence float64         `json:"confidence"`
	Bias       Bias            `json:"bias"`
	Present    bool            `json:"present"`
}

// AlignmentView is the multi-timeframe alignment section.
type AlignmentView struct {
	TFStates   map[string]TrendDirection `json:"tf_states"`
	BullishPct float64                   `json:"bullish_pct"`
	BearishPct float64                   `json:"bearish_pct"`
	Present    bool                      `json:"present"`
}

// ExpertView is the analyzer-signal section.
type ExpertView struct {
	Direction  Direction      `json:"direction"`
	AIScore    float64        `json:"ai_score"`
	Quality    Quality        `json:"quality"`
	Components ScoreBreakdown `json:"components"`
	RR1        float64        `json:"rr1"`
	RR2        float64        `json:"rr2"`
	Present    bool           `json:"present"`
}
