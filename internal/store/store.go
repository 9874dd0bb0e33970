// Package store holds the three short-TTL per-key stores. All engine
// "memory" lives here: write-latest-wins entries that expire lazily on
// read and never raise. Two backends, in-process maps and Redis with
// native key expiry, sit behind the same interfaces.
package store

import (
	"context"

	"github.com/pulsedeck/decisiond/internal/models"
)

// SignalStore maps (ticker, timeframe) to the latest enriched signal.
type SignalStore interface {
	// Put records a signal; returns false when dropped by the
	// out-of-order guard (receivedAt older than the stored entry).
	Put(ctx context.Context, sig models.EnrichedSignal, receivedAt int64, validityMinutes int) bool
	// Get returns the entry if now < expires_at; expired entries are
	// removed and reported absent.
	Get(ctx context.Context, ticker string, tf models.Timeframe) (models.StoredSignal, bool)
	// Active returns all non-expired entries for a ticker.
	Active(ctx context.Context, ticker string) map[models.Timeframe]models.StoredSignal
	// Size reports the live entry count (post-expiry may lag until the
	// next read touches a key).
	Size(ctx context.Context) int
}

// PhaseStore maps (symbol, timeframe-role) to the latest regime phase.
type PhaseStore interface {
	Put(ctx context.Context, ph models.PhaseEvent, receivedAt int64) bool
	Get(ctx context.Context, key models.PhaseKey) (models.StoredPhase, bool)
	Active(ctx context.Context, symbol string) map[models.TimeframeRole]models.StoredPhase
	Size(ctx context.Context) int
}

// TrendStore maps ticker to the latest 8-timeframe trend snapshot.
// The alignment derivation is computed once at write and cached.
type TrendStore interface {
	Put(ctx context.Context, snap models.TrendSnapshot, receivedAt int64, ttlMinutes int) bool
	Get(ctx context.Context, ticker string) (models.StoredTrend, bool)
	// Tickers lists tickers with a non-expired snapshot.
	Tickers(ctx context.Context) []string
	Size(ctx context.Context) int
}

// expired is the shared lazy-expiry predicate.
func expired(nowMillis, expiresAt int64) bool {
	return nowMillis >= expiresAt
}

func expiresAt(receivedAt int64, minutes int) int64 {
	return receivedAt + int64(minutes)*60_000
}
