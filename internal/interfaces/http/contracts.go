package http

import (
	"encoding/json"
	"net/http"

	"github.com/pulsedeck/decisiond/internal/apperr"
	"github.com/pulsedeck/decisiond/internal/models"
)

// WebhookResponse acknowledges one accepted webhook.
type WebhookResponse struct {
	Success          bool                   `json:"success"`
	Source           models.Source          `json:"source"`
	ProcessingTimeMs int64                  `json:"processingTime"`
	RequestID        string                 `json:"requestId"`
	EngineVersion    string                 `json:"engineVersion"`
	Dropped          bool                   `json:"dropped,omitempty"`
	Decision         *models.DecisionPacket `json:"decision,omitempty"`
}

// ErrorResponse is the sanitized error envelope. Never carries stacks
// or provider secrets.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Message   string   `json:"message"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"requestId,omitempty"`
}

// versioned is embedded in every query response body.
type versioned struct {
	EngineVersion string `json:"engine_version"`
	ConfigHash    string `json:"config_hash"`
}

type signalsResponse struct {
	versioned
	Ticker  string                `json:"ticker"`
	Signals []models.StoredSignal `json:"signals"`
	Count   int                   `json:"count"`
}

type phaseResponse struct {
	versioned
	Symbol    string                                      `json:"symbol"`
	Phases    map[models.TimeframeRole]models.StoredPhase `json:"phases"`
	Regime    models.RegimeView                           `json:"regime"`
	Alignment models.AlignmentView                        `json:"alignment"`
}

type trendResponse struct {
	versioned
	Ticker        string                `json:"ticker"`
	Snapshot      models.TrendSnapshot  `json:"snapshot"`
	Alignment     models.TrendAlignment `json:"alignment"`
	TTLMinutes    int                   `json:"ttl_minutes"`
	ActiveTickers []string              `json:"active_tickers"`
	LastUpdate    int64                 `json:"last_update"`
}

type decisionsResponse struct {
	versioned
	Decisions []models.DecisionPacket `json:"decisions"`
	Count     int                     `json:"count"`
}

type healthResponse struct {
	versioned
	Status    string            `json:"status"`
	UptimeSec int64             `json:"uptime_seconds"`
	Stores    map[string]int    `json:"stores"`
	Breakers  map[string]string `json:"breakers"`
	Audit     map[string]int    `json:"audit"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps an application error onto the wire taxonomy.
func writeError(w http.ResponseWriter, requestID string, err error) {
	kind := apperr.KindOf(err)
	writeJSON(w, apperr.HTTPStatus(kind), ErrorResponse{
		Error:     string(kind),
		Message:   err.Error(),
		Details:   apperr.DetailsOf(err),
		RequestID: requestID,
	})
}
