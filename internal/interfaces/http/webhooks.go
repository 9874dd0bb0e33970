package http

import (
	"io"
	"net/http"
	"time"

	"github.com/pulsedeck/decisiond/internal/apperr"
)

// handleWebhook serves every POST /webhooks/* route. Source routing
// happens in the normalizer, not the URL: a phase event posted to the
// signals path still lands in the phase store.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := requestID(r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes))
	if err != nil {
		writeError(w, reqID, apperr.Wrap(apperr.KindValidation, err, "unreadable body"))
		return
	}
	if len(body) == 0 {
		writeError(w, reqID, apperr.New(apperr.KindValidation, "empty body"))
		return
	}

	res, err := s.eng.Ingest(r.Context(), body, reqID)
	if err != nil {
		writeError(w, reqID, err)
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{
		Success:          true,
		Source:           res.Receipt.Source,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		RequestID:        reqID,
		EngineVersion:    s.reg.Version(),
		Dropped:          res.Dropped,
		Decision:         res.Packet,
	})
}
