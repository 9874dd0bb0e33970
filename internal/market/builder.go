package market

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/pulsedeck/decisiond/internal/clock"
	"github.com/pulsedeck/decisiond/internal/config"
	"github.com/pulsedeck/decisiond/internal/models"
)

// Builder fans out to the three market-data providers in parallel and
// assembles a complete MarketContext. A failed provider never fails
// the build; its section comes from the fallback table.
type Builder struct {
	options   OptionsProvider
	stats     StatsProvider
	liquidity LiquidityProvider

	budget     time.Duration
	maxRetries int
	retryBase  time.Duration

	clk clock.Clock
	rng clock.RNG

	breakers map[string]*gobreaker.CircuitBreaker
}

// NewFromProviders wires an explicit provider bundle; nil providers
// are treated as disabled (their sections always fall back). This is
// the constructor tests and the CLI use.
func NewFromProviders(opts OptionsProvider, stats StatsProvider, liq LiquidityProvider, ps config.ProviderSettings, clk clock.Clock, rng clock.RNG) *Builder {
	b := &Builder{
		options:    opts,
		stats:      stats,
		liquidity:  liq,
		budget:     ps.CallBudget,
		maxRetries: ps.MaxRetries,
		retryBase:  ps.RetryBase,
		clk:        clk,
		rng:        rng,
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
	for _, name := range []string{ProviderOptions, ProviderStats, ProviderLiquidity} {
		b.breakers[name] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}
	return b
}

// NewFromSettings builds HTTP-backed providers from service settings.
// Providers with no API key are disabled at init and never dialed.
func NewFromSettings(ps config.ProviderSettings, clk clock.Clock, rng clock.RNG) *Builder {
	var (
		opts OptionsProvider
		st   StatsProvider
		liq  LiquidityProvider
	)
	if ps.Options.Enabled() {
		opts = newHTTPOptionsProvider(ps.Options)
	}
	if ps.Stats.Enabled() {
		st = newHTTPStatsProvider(ps.Stats)
	}
	if ps.Liquidity.Enabled() {
		liq = newHTTPLiquidityProvider(ps.Liquidity)
	}
	return NewFromProviders(opts, st, liq, ps, clk, rng)
}

// BreakerStates reports each provider breaker for health output.
func (b *Builder) BreakerStates() map[string]string {
	out := make(map[string]string, len(b.breakers))
	for name, cb := range b.breakers {
		out[name] = cb.State().String()
	}
	return out
}

// Build assembles the MarketContext for a ticker. All three provider
// calls launch before any is awaited; each writes its own slot, so the
// assembler reads without locking once the group is done. Cancelling
// ctx cancels every outstanding call.
func (b *Builder) Build(ctx context.Context, ticker string) (models.MarketContext, []models.ProviderCall) {
	var (
		mc    models.MarketContext
		calls [3]models.ProviderCall
		wg    sync.WaitGroup
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		mc.Options, calls[0] = callSection(b, ctx, ProviderOptions, b.options == nil, fallbackOptions,
			func(ctx context.Context) (models.OptionsData, error) { return b.options.Options(ctx, ticker) })
	}()
	go func() {
		defer wg.Done()
		mc.Stats, calls[1] = callSection(b, ctx, ProviderStats, b.stats == nil, fallbackStats,
			func(ctx context.Context) (models.MarketStats, error) { return b.stats.Stats(ctx, ticker) })
	}()
	go func() {
		defer wg.Done()
		mc.Liquidity, calls[2] = callSection(b, ctx, ProviderLiquidity, b.liquidity == nil, fallbackLiquidity,
			func(ctx context.Context) (models.LiquidityData, error) { return b.liquidity.Liquidity(ctx, ticker) })
	}()
	wg.Wait()

	return mc, calls[:]
}

// callSection runs one provider call with its own budget, retry policy
// and circuit breaker, substituting the fallback on any failure.
func callSection[T any](b *Builder, parent context.Context, provider string, disabled bool, fallback func() T, call func(context.Context) (T, error)) (T, models.ProviderCall) {
	meta := models.ProviderCall{Provider: provider, Origin: models.OriginFallback}

	if disabled {
		meta.Error = "provider disabled (no API key)"
		return fallback(), meta
	}

	start := b.clk.Now()
	ctx, cancel := context.WithTimeout(parent, b.budget)
	defer cancel()

	var lastErr *ProviderError
	for attempt := 0; attempt <= b.maxRetries; attempt++ {
		meta.Attempts = attempt + 1

		result, err := throughBreaker(b.breakers[provider], ctx, call)
		if err == nil {
			meta.Success = true
			meta.Origin = models.OriginAPI
			meta.DurationMs = b.clk.Since(start).Milliseconds()
			return result, meta
		}

		lastErr = classify(provider, err)
		if !lastErr.Retryable {
			break
		}
		if !sleepBackoff(ctx, b.backoff(attempt)) {
			break
		}
	}

	meta.Error = lastErr.Error()
	meta.DurationMs = b.clk.Since(start).Milliseconds()
	log.Debug().Str("provider", provider).Str("kind", string(lastErr.Kind)).
		Int("attempts", meta.Attempts).Msg("market: provider failed, using fallback")
	return fallback(), meta
}

func throughBreaker[T any](cb *gobreaker.CircuitBreaker, ctx context.Context, call func(context.Context) (T, error)) (T, error) {
	var zero T
	out, err := cb.Execute(func() (interface{}, error) {
		return call(ctx)
	})
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}

// backoff is exponential with multiplicative jitter from the injected
// RNG, so retry schedules are reproducible under a pinned seed.
func (b *Builder) backoff(attempt int) time.Duration {
	base := b.retryBase << uint(attempt)
	jitter := 1 + 0.5*b.rng.Float64()
	return time.Duration(float64(base) * jitter)
}

// sleepBackoff waits out the delay unless the call budget dies first.
func sleepBackoff(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// classify maps arbitrary call errors onto the provider taxonomy.
func classify(provider string, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return newProviderError(provider, ErrTimeout, err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &ProviderError{Kind: ErrAPI, Provider: provider, Retryable: false, cause: err}
	default:
		return newProviderError(provider, ErrNetwork, err)
	}
}
