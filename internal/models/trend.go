package models

// TrendTimeframeKeys lists the eight snapshot timeframe keys in
// ascending order. Wire payloads must carry all of them.
var TrendTimeframeKeys = []string{
	"tf3min", "tf5min", "tf15min", "tf30min",
	"tf60min", "tf240min", "tf1week", "tf1month",
}

// TrendState is one timeframe's direction cell in a snapshot.
type TrendState struct {
	Direction TrendDirection `json:"direction"`
	Open      float64        `json:"open"`
	Close     float64        `json:"close"`
}

// TrendSnapshot is eight timeframes of direction state for one ticker.
type TrendSnapshot struct {
	Ticker     string                `json:"ticker"`
	Exchange   string                `json:"exchange"`
	Timestamp  int64                 `json:"timestamp"`
	Price      float64               `json:"price"`
	Timeframes map[string]TrendState `json:"timeframes"`
}

// TrendAlignment is the derivation cached with each stored snapshot.
type TrendAlignment struct {
	Score             float64           `json:"score"` // [0, 100]
	Strength          AlignmentStrength `json:"strength"`
	HTFBias           TrendDirection    `json:"htf_bias"` // tf240min direction
	LTFBias           TrendDirection    `json:"ltf_bias"` // tf3min direction
	DominantDirection TrendDirection    `json:"dominant_direction"`
	BullishCount      int               `json:"bullish_count"`
	BearishCount      int               `json:"bearish_count"`
	NeutralCount      int               `json:"neutral_count"`
	BullishPct        float64           `json:"bullish_pct"`
	BearishPct        float64           `json:"bearish_pct"`
}

// DeriveAlignment computes the alignment block for a snapshot. Pure;
// stores call it once at write time and cache the result.
func DeriveAlignment(snap TrendSnapshot) TrendAlignment {
	a := TrendAlignment{}
	for _, key := range TrendTimeframeKeys {
		switch snap.Timeframes[key].Direction {
		case TrendBullish:
			a.BullishCount++
		case TrendBearish:
			a.BearishCount++
		default:
			a.NeutralCount++
		}
	}

	total := float64(len(TrendTimeframeKeys))
	a.BullishPct = float64(a.BullishCount) / total * 100
	a.BearishPct = float64(a.BearishCount) / total * 100

	dominant := a.BullishCount
	a.DominantDirection = TrendBullish
	if a.BearishCount > a.BullishCount {
		dominant = a.BearishCount
		a.DominantDirection = TrendBearish
	}
	if a.NeutralCount > dominant {
		dominant = a.NeutralCount
		a.DominantDirection = TrendNeutral
	}

	a.Score = float64(dominant) / total * 100
	switch {
	case a.Score >= 75:
		a.Strength = StrengthStrong
	case a.Score >= 62.5:
		a.Strength = StrengthModerate
	case a.Score >= 50:
		a.Strength = StrengthWeak
	default:
		a.Strength = StrengthChoppy
	}

	a.HTFBias = snap.Timeframes["tf240min"].Direction
	a.LTFBias = snap.Timeframes["tf3min"].Direction
	return a
}

// MatchesDirection reports whether a trend direction backs a trade side.
func (td TrendDirection) MatchesDirection(d Direction) bool {
	return (td == TrendBullish && d == DirectionLong) ||
		(td == TrendBearish && d == DirectionShort)
}

// StoredTrend is a snapshot plus its cached alignment and lifetime.
type StoredTrend struct {
	Snapshot   TrendSnapshot  `json:"snapshot"`
	Alignment  TrendAlignment `json:"alignment"`
	ReceivedAt int64          `json:"received_at"`
	ExpiresAt  int64          `json:"expires_at"`
}

// MTFDots is the lightweight multi-timeframe dots payload: a partial
// direction map without the week/month cells a full snapshot carries.
type MTFDots struct {
	Ticker     string                    `json:"ticker"`
	Timestamp  int64                     `json:"timestamp"`
	Timeframes map[string]TrendDirection `json:"timeframes"`
}
