package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pulsedeck/decisiond/internal/config"
	"github.com/pulsedeck/decisiond/internal/models"
)

// httpProvider is the shared transport for the three provider clients.
// Per-call deadlines come from the builder's context; the client
// itself carries no timeout so the budget is the single authority.
type httpProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

func newHTTPProvider(name string, cfg config.ProviderConfig) httpProvider {
	return httpProvider{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{},
	}
}

// fetch performs one GET and decodes the body, translating transport
// and status failures into the provider error taxonomy.
func (p httpProvider) fetch(ctx context.Context, path, ticker string, out interface{}) error {
	u := fmt.Sprintf("%s%s?ticker=%s", p.baseURL, path, url.QueryEscape(ticker))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return newProviderError(p.name, ErrMalformed, err)
	}
	req.Header.Set("X-API-Key", p.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return newProviderError(p.name, ErrTimeout, err)
		}
		return newProviderError(p.name, ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return newProviderError(p.name, ErrRateLimited, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return newProviderError(p.name, ErrAPI, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return newProviderError(p.name, ErrMalformed, fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return newProviderError(p.name, ErrNetwork, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return newProviderError(p.name, ErrMalformed, err)
	}
	return nil
}

type httpOptionsProvider struct{ httpProvider }

func newHTTPOptionsProvider(cfg config.ProviderConfig) *httpOptionsProvider {
	return &httpOptionsProvider{newHTTPProvider(ProviderOptions, cfg)}
}

func (p *httpOptionsProvider) Options(ctx context.Context, ticker string) (models.OptionsData, error) {
	var wire struct {
		PutCallRatio float64 `json:"putCallRatio"`
		IVPercentile float64 `json:"ivPercentile"`
		GammaBias    string  `json:"gammaBias"`
	}
	if err := p.fetch(ctx, "/v1/options", ticker, &wire); err != nil {
		return models.OptionsData{}, err
	}

	bias := models.GammaBias(strings.ToUpper(wire.GammaBias))
	switch bias {
	case models.GammaPositive, models.GammaNegative, models.GammaNeutral:
	default:
		return models.OptionsData{}, newProviderError(p.name, ErrMalformed, fmt.Errorf("gamma bias %q", wire.GammaBias))
	}
	if wire.IVPercentile < 0 || wire.IVPercentile > 100 {
		return models.OptionsData{}, newProviderError(p.name, ErrMalformed, fmt.Errorf("iv percentile %v out of range", wire.IVPercentile))
	}

	return models.OptionsData{
		PutCallRatio: wire.PutCallRatio,
		IVPercentile: wire.IVPercentile,
		GammaBias:    bias,
		Origin:       models.OriginAPI,
	}, nil
}

type httpStatsProvider struct{ httpProvider }

func newHTTPStatsProvider(cfg config.ProviderConfig) *httpStatsProvider {
	return &httpStatsProvider{newHTTPProvider(ProviderStats, cfg)}
}

func (p *httpStatsProvider) Stats(ctx context.Context, ticker string) (models.MarketStats, error) {
	var wire struct {
		ATR struct {
			Value float64 `json:"value"`
		} `json:"atr"`
		RealizedVolatility struct {
			Value float64 `json:"value"`
		} `json:"realizedVolatility"`
		TrendSlope float64 `json:"trendSlope"`
	}
	if err := p.fetch(ctx, "/v1/stats", ticker, &wire); err != nil {
		return models.MarketStats{}, err
	}
	if wire.TrendSlope < -1 || wire.TrendSlope > 1 {
		return models.MarketStats{}, newProviderError(p.name, ErrMalformed, fmt.Errorf("trend slope %v out of range", wire.TrendSlope))
	}

	return models.MarketStats{
		ATR14:      wire.ATR.Value,
		RV20:       wire.RealizedVolatility.Value,
		TrendSlope: wire.TrendSlope,
		Origin:     models.OriginAPI,
	}, nil
}

type httpLiquidityProvider struct{ httpProvider }

func newHTTPLiquidityProvider(cfg config.ProviderConfig) *httpLiquidityProvider {
	return &httpLiquidityProvider{newHTTPProvider(ProviderLiquidity, cfg)}
}

func (p *httpLiquidityProvider) Liquidity(ctx context.Context, ticker string) (models.LiquidityData, error) {
	// The liquidity venue ships two envelope generations; accept both.
	var wire struct {
		Spread *struct {
			Bps float64 `json:"bps"`
		} `json:"spread"`
		SpreadBps *float64 `json:"spreadBps"`
		Depth     *struct {
			Score float64 `json:"score"`
		} `json:"depth"`
		DepthScore    *float64 `json:"depthScore"`
		Velocity      string   `json:"velocity"`
		TradeVelocity string   `json:"tradeVelocity"`
	}
	if err := p.fetch(ctx, "/v1/liquidity", ticker, &wire); err != nil {
		return models.LiquidityData{}, err
	}

	out := models.LiquidityData{Origin: models.OriginAPI}
	switch {
	case wire.Spread != nil:
		out.SpreadBps = wire.Spread.Bps
	case wire.SpreadBps != nil:
		out.SpreadBps = *wire.SpreadBps
	default:
		return models.LiquidityData{}, newProviderError(p.name, ErrMalformed, errors.New("missing spread"))
	}
	switch {
	case wire.Depth != nil:
		out.DepthScore = wire.Depth.Score
	case wire.DepthScore != nil:
		out.DepthScore = *wire.DepthScore
	default:
		return models.LiquidityData{}, newProviderError(p.name, ErrMalformed, errors.New("missing depth"))
	}
	if out.DepthScore < 0 || out.DepthScore > 100 {
		return models.LiquidityData{}, newProviderError(p.name, ErrMalformed, fmt.Errorf("depth score %v out of range", out.DepthScore))
	}

	out.TradeVelocity = wire.TradeVelocity
	if out.TradeVelocity == "" {
		out.TradeVelocity = wire.Velocity
	}
	if out.TradeVelocity == "" {
		out.TradeVelocity = "NORMAL"
	}
	return out, nil
}
