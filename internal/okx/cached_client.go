package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CandleKeyPrefix is the prefix for cached candle windows.
// Format: okxmon:candles:{instID}:{limit}
const CandleKeyPrefix = "okxmon:candles"

// CachedClient wraps a MarketDataProvider with a Redis candle cache so that
// one cycle's repeated window fetches hit the exchange once. Account
// endpoints pass through uncached; position and balance state must be fresh.
type CachedClient struct {
	Provider
	rdb    *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedClient wraps the provider. A nil redis client disables caching.
func NewCachedClient(provider Provider, rdb *redis.Client, ttl time.Duration, logger zerolog.Logger) *CachedClient {
	return &CachedClient{
		Provider: provider,
		rdb:      rdb,
		ttl:      ttl,
		logger:   logger.With().Str("component", "CandleCache").Logger(),
	}
}

// GetCandles serves from Redis when a fresh window exists, otherwise fetches
// and stores. Cache failures degrade to a direct fetch.
func (c *CachedClient) GetCandles(instID string, limit int) ([]Candle, error) {
	if c.rdb == nil {
		return c.Provider.GetCandles(instID, limit)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("%s:%s:%d", CandleKeyPrefix, instID, limit)

	if raw, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var candles []Candle
		if err := json.Unmarshal(raw, &candles); err == nil {
			return candles, nil
		}
		// Corrupt entry; fall through to refetch
		c.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		c.logger.Warn().Err(err).Str("inst_id", instID).Msg("Candle cache read failed")
	}

	candles, err := c.Provider.GetCandles(instID, limit)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(candles); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Str("inst_id", instID).Msg("Candle cache write failed")
		}
	}

	return candles, nil
}
