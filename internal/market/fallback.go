package market

import "github.com/pulsedeck/decisiond/internal/models"

// Frozen fallback sections. These are fixed values, not configuration:
// every FALLBACK-tagged section in any decision carries exactly these
// numbers, which is what makes partial-failure runs reproducible.

func fallbackOptions() models.OptionsData {
	return models.OptionsData{
		PutCallRatio: 1.0,
		IVPercentile: 50,
		GammaBias:    models.GammaNeutral,
		Origin:       models.OriginFallback,
	}
}

func fallbackStats() models.MarketStats {
	return models.MarketStats{
		ATR14:      2.0,
		RV20:       0.2,
		TrendSlope: 0,
		Origin:     models.OriginFallback,
	}
}

func fallbackLiquidity() models.LiquidityData {
	return models.LiquidityData{
		SpreadBps:     15,
		DepthScore:    50,
		TradeVelocity: "NORMAL",
		Origin:        models.OriginFallback,
	}
}
