package market

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedeck/decisiond/internal/clock"
	"github.com/pulsedeck/decisiond/internal/config"
	"github.com/pulsedeck/decisiond/internal/models"
)

func testSettings() config.ProviderSettings {
	return config.ProviderSettings{
		CallBudget: 600 * time.Millisecond,
		MaxRetries: 2,
		RetryBase:  time.Millisecond,
	}
}

type stubOptions struct {
	calls int32
	data  models.OptionsData
	err   error
}

func (s *stubOptions) Options(ctx context.Context, ticker string) (models.OptionsData, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.err != nil {
		return models.OptionsData{}, s.err
	}
	return s.data, nil
}

type stubStats struct {
	data models.MarketStats
	err  error
}

func (s *stubStats) Stats(ctx context.Context, ticker string) (models.MarketStats, error) {
	if s.err != nil {
		return models.MarketStats{}, s.err
	}
	return s.data, nil
}

type stubLiquidity struct {
	delay time.Duration
	data  models.LiquidityData
}

func (s *stubLiquidity) Liquidity(ctx context.Context, ticker string) (models.LiquidityData, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return models.LiquidityData{}, ctx.Err()
		}
	}
	return s.data, nil
}

func newTestBuilder(opts OptionsProvider, stats StatsProvider, liq LiquidityProvider) *Builder {
	return NewFromProviders(opts, stats, liq, testSettings(), clock.NewSystem(), clock.NewSeededRNG(1))
}

func TestBuildAllProvidersSucceed(t *testing.T) {
	b := newTestBuilder(
		&stubOptions{data: models.OptionsData{PutCallRatio: 0.8, IVPercentile: 40, GammaBias: models.GammaPositive, Origin: models.OriginAPI}},
		&stubStats{data: models.MarketStats{ATR14: 1.5, RV20: 0.3, Origin: models.OriginAPI}},
		&stubLiquidity{data: models.LiquidityData{SpreadBps: 4, DepthScore: 80, TradeVelocity: "HIGH", Origin: models.OriginAPI}},
	)

	mc, calls := b.Build(context.Background(), "SPY")
	assert.Equal(t, models.OriginAPI, mc.Options.Origin)
	assert.Equal(t, models.OriginAPI, mc.Stats.Origin)
	assert.Equal(t, models.OriginAPI, mc.Liquidity.Origin)

	require.Len(t, calls, 3)
	for _, call := range calls {
		assert.True(t, call.Success)
		assert.Equal(t, 1, call.Attempts)
	}
}

func TestBuildSubstitutesFallbackPerSection(t *testing.T) {
	b := newTestBuilder(
		&stubOptions{err: newProviderError(ProviderOptions, ErrAPI, errors.New("boom"))},
		&stubStats{data: models.MarketStats{ATR14: 1.5, Origin: models.OriginAPI}},
		nil, // disabled
	)

	mc, calls := b.Build(context.Background(), "SPY")

	// A failed provider yields the frozen fallback values, never zeros.
	assert.Equal(t, models.OriginFallback, mc.Options.Origin)
	assert.InDelta(t, 1.0, mc.Options.PutCallRatio, 1e-9)
	assert.InDelta(t, 50, mc.Options.IVPercentile, 1e-9)
	assert.Equal(t, models.GammaNeutral, mc.Options.GammaBias)

	assert.Equal(t, models.OriginAPI, mc.Stats.Origin, "one failure never poisons the others")

	assert.Equal(t, models.OriginFallback, mc.Liquidity.Origin)
	assert.InDelta(t, 15, mc.Liquidity.SpreadBps, 1e-9)
	assert.InDelta(t, 50, mc.Liquidity.DepthScore, 1e-9)
	assert.Equal(t, "NORMAL", mc.Liquidity.TradeVelocity)

	require.Len(t, calls, 3)
	assert.False(t, calls[0].Success)
	assert.Contains(t, calls[2].Error, "disabled")
}

func TestBuildRetriesRetryableErrors(t *testing.T) {
	opts := &stubOptions{err: newProviderError(ProviderOptions, ErrTimeout, errors.New("deadline"))}
	b := newTestBuilder(opts, nil, nil)

	_, calls := b.Build(context.Background(), "SPY")
	assert.Equal(t, int32(3), atomic.LoadInt32(&opts.calls), "initial call plus two retries")
	assert.Equal(t, 3, calls[0].Attempts)
}

func TestBuildDoesNotRetryNonRetryable(t *testing.T) {
	opts := &stubOptions{err: newProviderError(ProviderOptions, ErrMalformed, errors.New("bad json"))}
	b := newTestBuilder(opts, nil, nil)

	_, calls := b.Build(context.Background(), "SPY")
	assert.Equal(t, int32(1), atomic.LoadInt32(&opts.calls))
	assert.Equal(t, 1, calls[0].Attempts)
}

func TestBuildRunsProvidersInParallel(t *testing.T) {
	// Three providers each sleeping 80ms must finish well under the
	// 240ms a serial walk would need.
	slow := 80 * time.Millisecond
	b := newTestBuilder(
		slowOptions{slow},
		slowStats{slow},
		&stubLiquidity{delay: slow, data: models.LiquidityData{Origin: models.OriginAPI}},
	)

	start := time.Now()
	b.Build(context.Background(), "SPY")
	assert.Less(t, time.Since(start), 2*slow)
}

type slowOptions struct{ d time.Duration }

func (s slowOptions) Options(ctx context.Context, ticker string) (models.OptionsData, error) {
	time.Sleep(s.d)
	return models.OptionsData{Origin: models.OriginAPI}, nil
}

type slowStats struct{ d time.Duration }

func (s slowStats) Stats(ctx context.Context, ticker string) (models.MarketStats, error) {
	time.Sleep(s.d)
	return models.MarketStats{Origin: models.OriginAPI}, nil
}

func TestBuildBudgetCutsSlowProvider(t *testing.T) {
	ps := testSettings()
	ps.CallBudget = 30 * time.Millisecond
	b := NewFromProviders(nil, nil,
		&stubLiquidity{delay: time.Second, data: models.LiquidityData{Origin: models.OriginAPI}},
		ps, clock.NewSystem(), clock.NewSeededRNG(1))

	start := time.Now()
	mc, _ := b.Build(context.Background(), "SPY")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, models.OriginFallback, mc.Liquidity.Origin)
}

func TestClassifyErrors(t *testing.T) {
	pe := classify("options", context.DeadlineExceeded)
	assert.Equal(t, ErrTimeout, pe.Kind)
	assert.True(t, pe.Retryable)

	pe = classify("options", errors.New("connection refused"))
	assert.Equal(t, ErrNetwork, pe.Kind)
	assert.True(t, pe.Retryable)

	wrapped := newProviderError("stats", ErrRateLimited, errors.New("429"))
	pe = classify("stats", wrapped)
	assert.Equal(t, ErrRateLimited, pe.Kind)
	assert.True(t, pe.Retryable)
}

func TestBreakerStatesReported(t *testing.T) {
	b := newTestBuilder(nil, nil, nil)
	states := b.BreakerStates()
	require.Len(t, states, 3)
	for _, state := range states {
		assert.Equal(t, "closed", state)
	}
}
