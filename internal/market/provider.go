// Package market assembles the provider-backed MarketContext. Three
// independent providers are called concurrently with per-call budgets;
// any failure is absorbed into a frozen fallback section so a decision
// always gets a complete context.
package market

import (
	"context"
	"fmt"

	"github.com/pulsedeck/decisiond/internal/models"
)

// Provider names used in metadata, metrics and logs.
const (
	ProviderOptions   = "options"
	ProviderStats     = "stats"
	ProviderLiquidity = "liquidity"
)

// OptionsProvider returns dealer-positioning data for a ticker.
type OptionsProvider interface {
	Options(ctx context.Context, ticker string) (models.OptionsData, error)
}

// StatsProvider returns volatility and trend statistics.
type StatsProvider interface {
	Stats(ctx context.Context, ticker string) (models.MarketStats, error)
}

// LiquidityProvider returns microstructure readings.
type LiquidityProvider interface {
	Liquidity(ctx context.Context, ticker string) (models.LiquidityData, error)
}

// ErrorKind classifies provider failures for retry policy.
type ErrorKind string

const (
	ErrTimeout     ErrorKind = "TIMEOUT"
	ErrNetwork     ErrorKind = "NETWORK"
	ErrRateLimited ErrorKind = "RATE_LIMITED"
	ErrAPI         ErrorKind = "API"
	ErrMalformed   ErrorKind = "MALFORMED"
)

// ProviderError is the typed failure a provider call yields. It never
// escapes the builder; it is recorded in call metadata and replaced by
// the fallback section.
type ProviderError struct {
	Kind      ErrorKind
	Provider  string
	Retryable bool
	cause     error
}

func (e *ProviderError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s provider %s: %v", e.Provider, e.Kind, e.cause)
	}
	return fmt.Sprintf("%s provider %s", e.Provider, e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.cause }

func newProviderError(provider string, kind ErrorKind, cause error) *ProviderError {
	retryable := kind == ErrTimeout || kind == ErrNetwork || kind == ErrRateLimited
	return &ProviderError{Kind: kind, Provider: provider, Retryable: retryable, cause: cause}
}
