package models

// PhaseEvent is a regime / bias transition from the oscillator
// producer (SATY_PO engine).
type PhaseEvent struct {
	Meta          PhaseMeta         `json:"meta"`
	Instrument    Instrument        `json:"instrument"`
	Timeframe     PhaseTimeframe    `json:"timeframe"`
	Event         PhaseDetail       `json:"event"`
	RegimeContext RegimeContext     `json:"regime_context"`
	Confidence    PhaseConfidence   `json:"confidence"`
	Execution     ExecutionGuidance `json:"execution_guidance"`
	RiskHints     RiskHints         `json:"risk_hints"`
}

// PhaseMeta identifies the producing engine and event.
type PhaseMeta struct {
	Engine      string         `json:"engine"`
	EventID     string         `json:"event_id"`
	EventType   PhaseEventType `json:"event_type"`
	GeneratedAt int64          `json:"generated_at"`
}

// PhaseTimeframe is the event's timeframe plus its role in the
// regime hierarchy.
type PhaseTimeframe struct {
	Interval Timeframe     `json:"interval"`
	Role     TimeframeRole `json:"tf_role"`
}

// PhaseDetail names the transition and its directional lean. Phase is
// the market-cycle number 1..4; Oscillator is the raw phase oscillator
// reading, clamped to [-100, 100] at normalization.
type PhaseDetail struct {
	Name        string                 `json:"name"`
	Implication DirectionalImplication `json:"directional_implication"`
	Priority    int                    `json:"event_priority"`
	Phase       int                    `json:"phase"`
	Oscillator  float64                `json:"oscillator"`
}

// RegimeContext is the producer's bias stack at event time.
type RegimeContext struct {
	LocalBias Bias `json:"local_bias"`
	HTFBias   Bias `json:"htf_bias"`
	MacroBias Bias `json:"macro_bias"`
}

// PhaseConfidence scores the event.
type PhaseConfidence struct {
	RawStrength     float64 `json:"raw_strength"`
	HTFAlignment    bool    `json:"htf_alignment"`
	ConfidenceScore float64 `json:"confidence_score"` // [0, 100]
	ConfidenceTier  string  `json:"confidence_tier"`
}

// ExecutionGuidance is the producer's explicit trade permissioning.
type ExecutionGuidance struct {
	TradeAllowed      bool        `json:"trade_allowed"`
	AllowedDirections []Direction `json:"allowed_directions"`
}

// RiskHints carries decay and cooldown hints; TimeDecayMinutes
// determines the stored event's TTL.
type RiskHints struct {
	TimeDecayMinutes int       `json:"time_decay_minutes"`
	CooldownTF       Timeframe `json:"cooldown_tf"`
}

// Allows reports whether the guidance permits trading in direction d.
// Empty allowed_directions with trade_allowed=true permits both sides.
func (g ExecutionGuidance) Allows(d Direction) bool {
	if !g.TradeAllowed {
		return false
	}
	if len(g.AllowedDirections) == 0 {
		return true
	}
	for _, ad := range g.AllowedDirections {
		if ad == d {
			return true
		}
	}
	return false
}

// StoredPhase is a PhaseEvent with its store lifetime attached.
type StoredPhase struct {
	Phase      PhaseEvent `json:"phase"`
	ReceivedAt int64      `json:"received_at"`
	ExpiresAt  int64      `json:"expires_at"`
}

// PhaseKey is the (symbol, timeframe-role) store key for phase events.
type PhaseKey struct {
	Symbol string        `json:"symbol"`
	Role   TimeframeRole `json:"role"`
}
