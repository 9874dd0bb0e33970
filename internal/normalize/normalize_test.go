package normalize

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedeck/decisiond/internal/apperr"
	"github.com/pulsedeck/decisiond/internal/models"
)

const testNow = int64(1772400000000)

func tvPayload(dir string, tf int) string {
	return fmt.Sprintf(`{
		"signal": {"type": %q, "timeframe": %d, "quality": "high", "ai_score": 8.2},
		"instrument": {"ticker": "SPY", "exchange": "AMEX", "current_price": 512.4},
		"entry": {"price": 512.4, "stop_loss": 510.0, "target_1": 515.0, "target_2": 518.0},
		"risk": {"rr_ratio_t1": 2.1, "recommended_contracts": 2},
		"time_context": {"market_session": "midday", "day_of_week": "TUESDAY"}
	}`, dir, tf)
}

func TestNormalizeTradingViewSignal(t *testing.T) {
	ev, err := Normalize([]byte(tvPayload("long", 15)), testNow)
	require.NoError(t, err)

	assert.Equal(t, models.SourceTradingView, ev.Source)
	require.NotNil(t, ev.Signal)
	assert.Equal(t, "SPY", ev.Ticker())
	assert.Equal(t, models.DirectionLong, ev.Signal.Signal.Type)
	assert.Equal(t, models.QualityHigh, ev.Signal.Signal.Quality)
	assert.Equal(t, models.SessionMidday, ev.Signal.TimeContext.MarketSession)
	assert.Equal(t, testNow, ev.Signal.Signal.Timestamp, "missing timestamp defaults to now")
}

func TestNormalizeClampsRanges(t *testing.T) {
	raw := []byte(`{
		"signal": {"type": "LONG", "timeframe": 5, "ai_score": 42},
		"instrument": {"ticker": "SPY"},
		"trend": {"strength": 250, "rsi": -3}
	}`)
	ev, err := Normalize(raw, testNow)
	require.NoError(t, err)
	assert.InDelta(t, 10.5, ev.Signal.Signal.AIScore, 1e-9)
	assert.InDelta(t, 100, ev.Signal.Trend.Strength, 1e-9)
	assert.InDelta(t, 0, ev.Signal.Trend.RSI, 1e-9)
}

func TestNormalizeDefaultsQualityAndSession(t *testing.T) {
	raw := []byte(`{"signal": {"type": "short", "timeframe": 60}, "instrument": {"ticker": "QQQ"}}`)
	ev, err := Normalize(raw, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.QualityMedium, ev.Signal.Signal.Quality)
	assert.Equal(t, models.SessionOpen, ev.Signal.TimeContext.MarketSession)
}

func TestNormalizeRejectsBadDirection(t *testing.T) {
	raw := []byte(`{"signal": {"type": "SIDEWAYS", "timeframe": 15}, "instrument": {"ticker": "SPY"}}`)
	_, err := Normalize(raw, testNow)
	require.Error(t, err)
	assert.Equal(t, apperr.KindSchema, apperr.KindOf(err))
	assert.NotEmpty(t, apperr.DetailsOf(err))
}

func TestNormalizeUltimateOptionsWithoutTimeframe(t *testing.T) {
	raw := []byte(`{
		"signal": {"type": "LONG", "ai_score": 9.1, "quality": "EXTREME"},
		"instrument": {"ticker": "SPX"}
	}`)
	ev, err := Normalize(raw, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.SourceUltimateOption, ev.Source)
}

func TestNormalizePhaseEvent(t *testing.T) {
	raw := []byte(`{
		"meta": {"engine": "SATY_PO", "event_type": "regime_phase_entry", "event_id": "abc"},
		"instrument": {"ticker": "SPY"},
		"timeframe": {"interval": 240, "tf_role": "regime"},
		"event": {"name": "MARKUP_BEGIN", "directional_implication": "upside_potential", "phase": 2, "oscillator": 180},
		"confidence": {"confidence_score": 140, "htf_alignment": true},
		"execution_guidance": {"trade_allowed": true, "allowed_directions": ["long"]},
		"risk_hints": {}
	}`)
	ev, err := Normalize(raw, testNow)
	require.NoError(t, err)

	assert.Equal(t, models.SourceSatyPhase, ev.Source)
	require.NotNil(t, ev.Phase)
	assert.Equal(t, models.RoleRegime, ev.Phase.Timeframe.Role)
	assert.InDelta(t, 100, ev.Phase.Event.Oscillator, 1e-9, "oscillator clamps to [-100, 100]")
	assert.InDelta(t, 100, ev.Phase.Confidence.ConfidenceScore, 1e-9)
	assert.Equal(t, []models.Direction{models.DirectionLong}, ev.Phase.Execution.AllowedDirections)
	assert.Equal(t, 60, ev.Phase.RiskHints.TimeDecayMinutes, "missing decay defaults to 60")
}

func TestNormalizePhaseRejectsShorthandEnums(t *testing.T) {
	// Only the full enum values are canonical; abbreviated producer
	// variants fail validation instead of being guessed at.
	raw := []byte(`{
		"meta": {"engine": "SATY_PO", "event_type": "ENTRY"},
		"instrument": {"ticker": "SPY"},
		"timeframe": {"interval": 240, "tf_role": "REGIME"},
		"event": {"name": "MARKUP", "directional_implication": "UPSIDE", "phase": 2},
		"confidence": {"confidence_score": 85}
	}`)
	_, err := Normalize(raw, testNow)
	require.Error(t, err)
	assert.Equal(t, apperr.KindSchema, apperr.KindOf(err))
	details := apperr.DetailsOf(err)
	assert.Contains(t, details, "meta.event_type: invalid")
	assert.Contains(t, details, "event.directional_implication: invalid")
}

func TestNormalizeTrendSnapshot(t *testing.T) {
	raw := []byte(`{
		"ticker": "SPY", "price": 512.0,
		"timeframes": {
			"tf3min": {"direction": "BULLISH"}, "tf5min": {"direction": "bullish"},
			"tf15min": {"direction": "bullish"}, "tf30min": {"direction": "bearish"},
			"tf60min": {"direction": "bullish"}, "tf240min": {"direction": "bullish"},
			"tf1week": {"direction": "neutral"}, "tf1month": {"direction": "bullish"}
		}
	}`)
	ev, err := Normalize(raw, testNow)
	require.NoError(t, err)

	assert.Equal(t, models.SourceTrend, ev.Source)
	assert.Equal(t, models.TrendBullish, ev.Trend.Timeframes["tf3min"].Direction, "directions lowercase")
	assert.Equal(t, testNow, ev.Trend.Timestamp)
}

func TestNormalizeTrendInvalidDirectionFails(t *testing.T) {
	raw := []byte(`{
		"ticker": "SPY",
		"timeframes": {
			"tf3min": {"direction": "sideways"}, "tf5min": {"direction": "bullish"},
			"tf15min": {"direction": "bullish"}, "tf30min": {"direction": "bullish"},
			"tf60min": {"direction": "bullish"}, "tf240min": {"direction": "bullish"},
			"tf1week": {"direction": "bullish"}, "tf1month": {"direction": "bullish"}
		}
	}`)
	_, err := Normalize(raw, testNow)
	require.Error(t, err)
	assert.Equal(t, apperr.KindSchema, apperr.KindOf(err))
	assert.Contains(t, apperr.DetailsOf(err)[0], "tf3min")
}

func TestNormalizeMTFDots(t *testing.T) {
	// Partial maps without ticker-level snapshot shape route to dots.
	raw := []byte(`{
		"ticker": "SPY",
		"timeframes": {"tf3min": "bullish", "tf5min": "BEARISH", "tf15min": "neutral"}
	}`)
	ev, err := Normalize(raw, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.SourceMTFDots, ev.Source)
	assert.Equal(t, models.TrendBearish, ev.Dots.Timeframes["tf5min"])
}

func TestNormalizeStructuralSetup(t *testing.T) {
	raw := []byte(`{"ticker": "SPY", "setup_valid": true, "liquidity_ok": true, "quality": "a"}`)
	ev, err := Normalize(raw, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.SourceStratExec, ev.Source)
	assert.Equal(t, models.ExecA, ev.Setup.ExecutionQuality)
}

func TestNormalizeUnknownSourceFails(t *testing.T) {
	_, err := Normalize([]byte(`{"hello": "world"}`), testNow)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnknownSrc, apperr.KindOf(err))
}

func TestNormalizeNonObjectFails(t *testing.T) {
	_, err := Normalize([]byte(`[1, 2, 3]`), testNow)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
