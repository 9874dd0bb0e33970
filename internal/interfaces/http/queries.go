package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pulsedeck/decisiond/internal/models"
)

func (s *Server) version() versioned {
	return versioned{EngineVersion: s.reg.Version(), ConfigHash: s.reg.Hash()}
}

func missingParam(w http.ResponseWriter, name string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: "query parameter " + name + " is required",
	})
}

// handleSignalsCurrent lists a ticker's active signals, HTF first.
func (s *Server) handleSignalsCurrent(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		missingParam(w, "ticker")
		return
	}

	active := s.stores.Signals.Active(r.Context(), ticker)
	signals := make([]models.StoredSignal, 0, len(active))
	for _, tf := range models.SignalTimeframes {
		if entry, ok := active[tf]; ok {
			signals = append(signals, entry)
		}
	}

	writeJSON(w, http.StatusOK, signalsResponse{
		versioned: s.version(),
		Ticker:    ticker,
		Signals:   signals,
		Count:     len(signals),
	})
}

// handlePhaseCurrent reports the per-role phase stack plus the composed
// regime and alignment views.
func (s *Server) handlePhaseCurrent(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		missingParam(w, "symbol")
		return
	}

	dc := s.stores.Contexts.Compose(r.Context(), symbol)
	writeJSON(w, http.StatusOK, phaseResponse{
		versioned: s.version(),
		Symbol:    symbol,
		Phases:    s.stores.Phases.Active(r.Context(), symbol),
		Regime:    dc.Regime,
		Alignment: dc.Alignment,
	})
}

// handleTrendCurrent serves the stored snapshot with its cached
// alignment derivation; 404 when nothing live exists for the ticker.
func (s *Server) handleTrendCurrent(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		missingParam(w, "ticker")
		return
	}

	st, ok := s.stores.Trends.Get(r.Context(), ticker)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "NOT_FOUND",
			Message: "no trend snapshot for " + ticker,
		})
		return
	}

	writeJSON(w, http.StatusOK, trendResponse{
		versioned:     s.version(),
		Ticker:        ticker,
		Snapshot:      st.Snapshot,
		Alignment:     st.Alignment,
		TTLMinutes:    60,
		ActiveTickers: s.stores.Trends.Tickers(r.Context()),
		LastUpdate:    st.ReceivedAt,
	})
}

// handleDecisionsRecent pages the audit trail, newest first.
func (s *Server) handleDecisionsRecent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "VALIDATION_ERROR",
				Message: "limit must be an integer in [1, 500]",
			})
			return
		}
		limit = n
	}

	decisions := s.trail.RecentDecisions(limit)
	writeJSON(w, http.StatusOK, decisionsResponse{
		versioned: s.version(),
		Decisions: decisions,
		Count:     len(decisions),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nDecisions, nReceipts := s.trail.Sizes()

	writeJSON(w, http.StatusOK, healthResponse{
		versioned: s.version(),
		Status:    "healthy",
		UptimeSec: int64(time.Since(s.started).Seconds()),
		Stores: map[string]int{
			"signals": s.stores.Signals.Size(ctx),
			"phases":  s.stores.Phases.Size(ctx),
			"trends":  s.stores.Trends.Size(ctx),
			"context": s.stores.Contexts.Size(ctx),
		},
		Breakers: s.builder.BreakerStates(),
		Audit: map[string]int{
			"decisions": nDecisions,
			"receipts":  nReceipts,
		},
	})
}
