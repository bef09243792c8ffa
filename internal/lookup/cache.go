package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"save-the-fridge/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	cachePrefix = "savethefridge:lookup:"
	// notFoundMarker caches a negative result.
	notFoundMarker = "-"
)

type cachedLookup struct {
	next   Lookup
	rdb    redis.Cmdable
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCachedLookup caches found and not-found results of next in Redis for ttl.
// Transient failures are never cached. Cache errors are logged and bypassed.
func NewCachedLookup(next Lookup, rdb redis.Cmdable, ttl time.Duration, logger zerolog.Logger) Lookup {
	return &cachedLookup{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With().Str("component", "lookup-cache").Logger(),
	}
}

func (c *cachedLookup) Lookup(ctx context.Context, barcode string) (*model.ProductInfo, error) {
	barcode = strings.TrimSpace(barcode)
	key := cachePrefix + barcode

	if barcode != "" {
		cached, err := c.rdb.Get(ctx, key).Result()
		switch {
		case err == nil:
			if cached == notFoundMarker {
				return nil, nil
			}
			var info model.ProductInfo
			if err := json.Unmarshal([]byte(cached), &info); err == nil {
				return &info, nil
			}
			c.logger.Warn().Str("barcode", barcode).Msg("discarding undecodable cache entry")
		case !errors.Is(err, redis.Nil):
			c.logger.Warn().Err(err).Str("barcode", barcode).Msg("lookup cache read failed")
		}
	}

	info, err := c.next.Lookup(ctx, barcode)
	if err != nil {
		return nil, err
	}

	value := notFoundMarker
	if info != nil {
		encoded, err := json.Marshal(info)
		if err != nil {
			return info, nil
		}
		value = string(encoded)
	}

	if err := c.rdb.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("barcode", barcode).Msg("lookup cache write failed")
	}

	return info, nil
}
