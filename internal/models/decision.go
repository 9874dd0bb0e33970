package models

// MultiplierBreakdown is the full audit trail of the sizing pipeline.
// Factors multiply in declaration order; boosts apply as (1 + boost).
type MultiplierBreakdown struct {
	Confluence      float64 `json:"confluence_multiplier"`
	Quality         float64 `json:"quality_multiplier"`
	HTFAlignment    float64 `json:"htf_alignment_multiplier"`
	RR              float64 `json:"rr_multiplier"`
	Volume          float64 `json:"volume_multiplier"`
	Trend           float64 `json:"trend_multiplier"`
	Session         float64 `json:"session_multiplier"`
	Day             float64 `json:"day_multiplier"`
	PhaseConfidence float64 `json:"phase_confidence_boost"`
	PhasePosition   float64 `json:"phase_position_boost"`
	TrendAlignment  float64 `json:"trend_alignment_boost"`
	Raw             float64 `json:"raw_multiplier"`
	Final           float64 `json:"final_multiplier"`
}

// GateResult is one gate's verdict. Gates never raise; a failed gate
// reports its reason here.
type GateResult struct {
	Name   string  `json:"name"`
	Passed bool    `json:"passed"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score,omitempty"`
}

// DecisionPacket is the immutable output of one evaluation. Never
// mutated after emission; copies are returned from the audit log.
type DecisionPacket struct {
	Decision             Decision            `json:"decision"`
	Direction            Direction           `json:"direction"`
	Reason               string              `json:"reason"`
	Breakdown            MultiplierBreakdown `json:"breakdown"`
	EngineVersion        string              `json:"engine_version"`
	ConfigHash           string              `json:"config_hash"`
	ConfluenceScore      float64             `json:"confluence_score"`
	HTFAlignment         HTFAlignment        `json:"htf_alignment,omitempty"`
	RecommendedContracts int                 `json:"recommended_contracts"`
	EntrySignal          *EnrichedSignal     `json:"entry_signal,omitempty"`
	StopLoss             float64             `json:"stop_loss,omitempty"`
	Target1              float64             `json:"target_1,omitempty"`
	Target2              float64             `json:"target_2,omitempty"`
	GateResults          []GateResult        `json:"gate_results"`
	ProviderCalls        []ProviderCall      `json:"provider_calls,omitempty"`
	Timestamp            int64               `json:"timestamp"`
}

// Receipt acknowledges one accepted webhook.
type Receipt struct {
	RequestID  string `json:"request_id"`
	Source     Source `json:"source"`
	Ticker     string `json:"ticker"`
	ReceivedAt int64  `json:"received_at"`
}
