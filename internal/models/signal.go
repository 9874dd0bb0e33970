package models

// EnrichedSignal is one atomic trading idea from an upstream analyzer,
// fully typed after normalization. All timestamps are Unix milliseconds.
type EnrichedSignal struct {
	Signal        SignalCore     `json:"signal"`
	Instrument    Instrument     `json:"instrument"`
	Entry         EntryPlan      `json:"entry"`
	Risk          RiskBlock      `json:"risk"`
	MarketContext SignalMarket   `json:"market_context"`
	Trend         SignalTrend    `json:"trend"`
	MTFContext    MTFContext     `json:"mtf_context"`
	Scores        ScoreBreakdown `json:"score_breakdown"`
	TimeContext   TimeContext    `json:"time_context"`
}

// SignalCore carries the identity of the signal itself.
type SignalCore struct {
	Type      Direction `json:"type"`
	Timeframe Timeframe `json:"timeframe"`
	Quality   Quality   `json:"quality"`
	AIScore   float64   `json:"ai_score"` // [0, 10.5]
	Timestamp int64     `json:"timestamp"`
	BarTime   int64     `json:"bar_time"`
}

// Instrument identifies the traded symbol.
type Instrument struct {
	Exchange     string  `json:"exchange"`
	Ticker       string  `json:"ticker"`
	CurrentPrice float64 `json:"current_price"`
}

// EntryPlan is the proposed entry, stop and targets.
type EntryPlan struct {
	Price      float64 `json:"price"`
	StopLoss   float64 `json:"stop_loss"`
	Target1    float64 `json:"target_1"`
	Target2    float64 `json:"target_2"`
	StopReason string  `json:"stop_reason"`
}

// RiskBlock is the producer's sizing math for the signal.
type RiskBlock struct {
	Amount               float64 `json:"amount"`
	RRRatioT1            float64 `json:"rr_ratio_t1"`
	RRRatioT2            float64 `json:"rr_ratio_t2"`
	StopDistancePct      float64 `json:"stop_distance_pct"`
	RecommendedShares    float64 `json:"recommended_shares"`
	RecommendedContracts float64 `json:"recommended_contracts"`
	PositionMultiplier   float64 `json:"position_multiplier"`
	AccountRiskPct       float64 `json:"account_risk_pct"`
	MaxLossDollars       float64 `json:"max_loss_dollars"`
}

// SignalMarket is the intraday market context attached to a signal.
type SignalMarket struct {
	VWAP           float64         `json:"vwap"`
	PMH            float64         `json:"pmh"`
	PML            float64         `json:"pml"`
	DayOpen        float64         `json:"day_open"`
	DayChangePct   float64         `json:"day_change_pct"`
	PriceVsVWAPPct float64         `json:"price_vs_vwap_pct"`
	DistanceToPMH  float64         `json:"distance_to_pmh"`
	DistanceToPML  float64         `json:"distance_to_pml"`
	ATR            float64         `json:"atr"`
	VolumeVsAvg    float64         `json:"volume_vs_avg"`
	CandleDir      CandleDirection `json:"candle_direction"`
	CandleSizeATR  float64         `json:"candle_size_atr"`
}

// SignalTrend is the EMA/RSI trend block attached to a signal.
type SignalTrend struct {
	EMA8       float64 `json:"ema_8"`
	EMA21      float64 `json:"ema_21"`
	EMA50      float64 `json:"ema_50"`
	Alignment  Bias    `json:"alignment"`
	Strength   float64 `json:"strength"` // [0, 100]
	RSI        float64 `json:"rsi"`      // [0, 100]
	MACDSignal string  `json:"macd_signal"`
}

// MTFContext carries the producer's own higher-timeframe read.
type MTFContext struct {
	Bias4H Bias    `json:"4h_bias"`
	RSI4H  float64 `json:"4h_rsi"`
	Bias1H Bias    `json:"1h_bias"`
}

// ScoreBreakdown is the producer's component scores.
type ScoreBreakdown struct {
	Strat float64 `json:"strat"`
	Trend float64 `json:"trend"`
	Gamma float64 `json:"gamma"`
	VWAP  float64 `json:"vwap"`
	MTF   float64 `json:"mtf"`
	Golf  float64 `json:"golf"`
}

// TimeContext pins the signal to a session and weekday.
type TimeContext struct {
	MarketSession MarketSession `json:"market_session"`
	DayOfWeek     Weekday       `json:"day_of_week"`
}

// StoredSignal is an EnrichedSignal with its store lifetime attached.
// ExpiresAt = ReceivedAt + ValidityMinutes*60_000.
type StoredSignal struct {
	Signal          EnrichedSignal `json:"signal"`
	ReceivedAt      int64          `json:"received_at"`
	ExpiresAt       int64          `json:"expires_at"`
	ValidityMinutes int            `json:"validity_minutes"`
}

// StructuralSetup is a STRAT_EXEC envelope after normalization: a
// yes/no on setup structure plus execution quality for one ticker.
type StructuralSetup struct {
	Ticker           string           `json:"ticker"`
	ValidSetup       bool             `json:"setup_valid"`
	LiquidityOK      bool             `json:"liquidity_ok"`
	ExecutionQuality ExecutionQuality `json:"quality"`
	Direction        Direction        `json:"direction,omitempty"`
	Timestamp        int64            `json:"timestamp"`
}
