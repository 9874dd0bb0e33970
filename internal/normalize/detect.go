package normalize

import (
	"github.com/pulsedeck/decisiond/internal/apperr"
	"github.com/pulsedeck/decisiond/internal/models"
)

// detectSource classifies a decoded payload by the presence of
// discriminating fields. Recognition is structural, never declared:
// producers do not tag their envelopes.
//
// Order matters: the full 8-timeframe trend snapshot is checked before
// the partial MTF dots shape, and the timeframed TradingView signal
// before the timeframe-less options signal.
func detectSource(doc map[string]interface{}) (models.Source, error) {
	if engine, ok := dig(doc, "meta", "engine").(string); ok && engine == "SATY_PO" {
		return models.SourceSatyPhase, nil
	}

	if hasAllTrendKeys(doc) {
		if _, ok := doc["ticker"]; ok {
			return models.SourceTrend, nil
		}
	}

	if tfs, ok := doc["timeframes"].(map[string]interface{}); ok {
		_, has3 := tfs["tf3min"]
		_, has5 := tfs["tf5min"]
		if has3 && has5 {
			return models.SourceMTFDots, nil
		}
	}

	if sig, ok := doc["signal"].(map[string]interface{}); ok {
		_, hasType := sig["type"]
		_, hasTF := sig["timeframe"]
		if hasType && hasTF {
			if ticker, ok := dig(doc, "instrument", "ticker").(string); ok && ticker != "" {
				return models.SourceTradingView, nil
			}
		}
		_, hasScore := sig["ai_score"]
		if hasType && hasScore && !hasTF {
			return models.SourceUltimateOption, nil
		}
	}

	_, hasSetup := doc["setup_valid"]
	_, hasLiq := doc["liquidity_ok"]
	_, hasQuality := doc["quality"]
	if hasSetup && hasLiq && hasQuality {
		return models.SourceStratExec, nil
	}

	return "", apperr.New(apperr.KindUnknownSrc, "payload matches no known producer shape")
}

func hasAllTrendKeys(doc map[string]interface{}) bool {
	tfs, ok := doc["timeframes"].(map[string]interface{})
	if !ok {
		return false
	}
	for _, key := range models.TrendTimeframeKeys {
		if _, present := tfs[key]; !present {
			return false
		}
	}
	return true
}

// dig walks nested maps; returns nil when any hop is missing.
func dig(doc map[string]interface{}, path ...string) interface{} {
	var cur interface{} = doc
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}
