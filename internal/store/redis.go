package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/pulsedeck/decisiond/internal/clock"
	"github.com/pulsedeck/decisiond/internal/models"
)

// Redis key layout. Timeframes and roles are enumerable, so reads
// never need SCAN on the hot path.
const (
	sigKeyFmt   = "decisiond:sig:%s:%d"
	phaseKeyFmt = "decisiond:phase:%s:%s"
	trendKeyFmt = "decisiond:trend:%s"
)

// NewRedisClient dials the store backend with defaults suited to
// short-TTL lookups on the webhook hot path.
func NewRedisClient(addr string, db int) *redis.Client {
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})
}

// RedisSignalStore backs SignalStore with Redis native expiry. Entries
// carry their own expires_at as well; reads re-check it against the
// injected clock so behavior matches the memory backend exactly.
type RedisSignalStore struct {
	rdb *redis.Client
	clk clock.Clock
}

func NewRedisSignalStore(rdb *redis.Client, clk clock.Clock) *RedisSignalStore {
	return &RedisSignalStore{rdb: rdb, clk: clk}
}

func (s *RedisSignalStore) Put(ctx context.Context, sig models.EnrichedSignal, receivedAt int64, validityMinutes int) bool {
	key := fmt.Sprintf(sigKeyFmt, sig.Instrument.Ticker, int(sig.Signal.Timeframe))
	entry := models.StoredSignal{
		Signal:          sig,
		ReceivedAt:      receivedAt,
		ExpiresAt:       expiresAt(receivedAt, validityMinutes),
		ValidityMinutes: validityMinutes,
	}
	return redisPut(ctx, s.rdb, s.clk, key, entry, receivedAt,
		func(e models.StoredSignal) int64 { return e.ReceivedAt },
		func(e models.StoredSignal) int64 { return e.ExpiresAt })
}

func (s *RedisSignalStore) Get(ctx context.Context, ticker string, tf models.Timeframe) (models.StoredSignal, bool) {
	key := fmt.Sprintf(sigKeyFmt, ticker, int(tf))
	return redisGet[models.StoredSignal](ctx, s.rdb, s.clk, key, func(e models.StoredSignal) int64 { return e.ExpiresAt })
}

func (s *RedisSignalStore) Active(ctx context.Context, ticker string) map[models.Timeframe]models.StoredSignal {
	out := make(map[models.Timeframe]models.StoredSignal)
	for _, tf := range models.SignalTimeframes {
		if entry, ok := s.Get(ctx, ticker, tf); ok {
			out[tf] = entry
		}
	}
	return out
}

func (s *RedisSignalStore) Size(ctx context.Context) int {
	return redisCount(ctx, s.rdb, "decisiond:sig:*")
}

// RedisPhaseStore backs PhaseStore with Redis.
type RedisPhaseStore struct {
	rdb *redis.Client
	clk clock.Clock
}

func NewRedisPhaseStore(rdb *redis.Client, clk clock.Clock) *RedisPhaseStore {
	return &RedisPhaseStore{rdb: rdb, clk: clk}
}

func (s *RedisPhaseStore) Put(ctx context.Context, ph models.PhaseEvent, receivedAt int64) bool {
	key := fmt.Sprintf(phaseKeyFmt, ph.Instrument.Ticker, ph.Timeframe.Role)
	entry := models.StoredPhase{
		Phase:      ph,
		ReceivedAt: receivedAt,
		ExpiresAt:  expiresAt(receivedAt, ph.RiskHints.TimeDecayMinutes),
	}
	return redisPut(ctx, s.rdb, s.clk, key, entry, receivedAt,
		func(e models.StoredPhase) int64 { return e.ReceivedAt },
		func(e models.StoredPhase) int64 { return e.ExpiresAt })
}

func (s *RedisPhaseStore) Get(ctx context.Context, key models.PhaseKey) (models.StoredPhase, bool) {
	rkey := fmt.Sprintf(phaseKeyFmt, key.Symbol, key.Role)
	return redisGet[models.StoredPhase](ctx, s.rdb, s.clk, rkey, func(e models.StoredPhase) int64 { return e.ExpiresAt })
}

func (s *RedisPhaseStore) Active(ctx context.Context, symbol string) map[models.TimeframeRole]models.StoredPhase {
	roles := []models.TimeframeRole{models.RoleRegime, models.RoleBias, models.RoleSetupFormation, models.RoleStructural}
	out := make(map[models.TimeframeRole]models.StoredPhase)
	for _, role := range roles {
		if entry, ok := s.Get(ctx, models.PhaseKey{Symbol: symbol, Role: role}); ok {
			out[role] = entry
		}
	}
	return out
}

func (s *RedisPhaseStore) Size(ctx context.Context) int {
	return redisCount(ctx, s.rdb, "decisiond:phase:*")
}

// RedisTrendStore backs TrendStore with Redis. The alignment block is
// derived at write and stored with the snapshot, same as memory.
type RedisTrendStore struct {
	rdb *redis.Client
	clk clock.Clock
}

func NewRedisTrendStore(rdb *redis.Client, clk clock.Clock) *RedisTrendStore {
	return &RedisTrendStore{rdb: rdb, clk: clk}
}

func (s *RedisTrendStore) Put(ctx context.Context, snap models.TrendSnapshot, receivedAt int64, ttlMinutes int) bool {
	key := fmt.Sprintf(trendKeyFmt, snap.Ticker)
	entry := models.StoredTrend{
		Snapshot:   snap,
		Alignment:  models.DeriveAlignment(snap),
		ReceivedAt: receivedAt,
		ExpiresAt:  expiresAt(receivedAt, ttlMinutes),
	}
	return redisPut(ctx, s.rdb, s.clk, key, entry, receivedAt,
		func(e models.StoredTrend) int64 { return e.ReceivedAt },
		func(e models.StoredTrend) int64 { return e.ExpiresAt })
}

func (s *RedisTrendStore) Get(ctx context.Context, ticker string) (models.StoredTrend, bool) {
	key := fmt.Sprintf(trendKeyFmt, ticker)
	return redisGet[models.StoredTrend](ctx, s.rdb, s.clk, key, func(e models.StoredTrend) int64 { return e.ExpiresAt })
}

func (s *RedisTrendStore) Tickers(ctx context.Context) []string {
	keys := redisKeys(ctx, s.rdb, "decisiond:trend:*")
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, "decisiond:trend:"))
	}
	return out
}

func (s *RedisTrendStore) Size(ctx context.Context) int {
	return redisCount(ctx, s.rdb, "decisiond:trend:*")
}

// redisPut serializes the entry and writes it with the remaining TTL,
// applying the same out-of-order guard as the memory backend. Redis
// failures drop the write and log; stores never raise.
func redisPut[T any](ctx context.Context, rdb *redis.Client, clk clock.Clock, key string, entry T, receivedAt int64, receivedOf func(T) int64, expiresOf func(T) int64) bool {
	if old, ok := redisGet(ctx, rdb, clk, key, expiresOf); ok {
		if receivedAt < receivedOf(old) {
			return false
		}
	}

	ttl := time.Duration(expiresOf(entry)-clk.NowMillis()) * time.Millisecond
	if ttl <= 0 {
		return false
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("store: marshal entry")
		return false
	}
	if err := rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("store: redis write dropped")
		return false
	}
	return true
}

func redisGet[T any](ctx context.Context, rdb *redis.Client, clk clock.Clock, key string, expiresOf func(T) int64) (T, bool) {
	var zero T
	raw, err := rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return zero, false
	}
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("store: redis read failed")
		return zero, false
	}
	var entry T
	if err := json.Unmarshal(raw, &entry); err != nil {
		log.Error().Err(err).Str("key", key).Msg("store: corrupt entry dropped")
		rdb.Del(ctx, key)
		return zero, false
	}
	if expired(clk.NowMillis(), expiresOf(entry)) {
		rdb.Del(ctx, key)
		return zero, false
	}
	return entry, true
}

func redisKeys(ctx context.Context, rdb *redis.Client, pattern string) []string {
	var out []string
	iter := rdb.Scan(ctx, 0, pattern, 256).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		log.Warn().Err(err).Str("pattern", pattern).Msg("store: redis scan failed")
	}
	return out
}

func redisCount(ctx context.Context, rdb *redis.Client, pattern string) int {
	return len(redisKeys(ctx, rdb, pattern))
}
