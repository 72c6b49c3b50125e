package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Cache stores computed quote lists in Redis. A nil cache (or nil client)
// degrades to pass-through computation.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func quoteKey(req QuoteRequest) string {
	asOf := "today"
	if req.AsOfDate != nil {
		asOf = req.AsOfDate.Format("2006-01-02")
	}
	weight := "-"
	if req.Weight != nil {
		weight = fmt.Sprintf("%g", *req.Weight)
	}
	cbm := "-"
	if req.CBM != nil {
		cbm = fmt.Sprintf("%g", *req.CBM)
	}
	return strings.Join([]string{
		"rates", "quote", req.Mode, req.LaneType, req.Origin, req.Destination,
		asOf, weight, cbm, req.ContainerType,
	}, ":")
}

func (c *Cache) get(ctx context.Context, key string) ([]QuoteOption, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var options []QuoteOption
	if err := json.Unmarshal(payload, &options); err != nil {
		return nil, false
	}
	return options, true
}

func (c *Cache) set(ctx context.Context, key string, options []QuoteOption) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, raw, c.ttl).Err()
}

// Invalidate drops all cached quotes, used when contract master data
// changes.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	iter := c.client.Scan(ctx, 0, "rates:quote:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Service fronts the engine with the quote cache and collapses concurrent
// identical requests through singleflight.
type Service struct {
	engine *Engine
	cache  *Cache
	group  singleflight.Group
}

func NewService(engine *Engine, cache *Cache) *Service {
	return &Service{engine: engine, cache: cache}
}

// FindRates serves from cache when possible. Requests without an explicit
// as-of date are never cached since "today" shifts under the key.
func (s *Service) FindRates(ctx context.Context, req QuoteRequest) ([]QuoteOption, error) {
	if req.AsOfDate == nil {
		return s.engine.FindRates(ctx, req)
	}

	key := quoteKey(req)
	if options, ok := s.cache.get(ctx, key); ok {
		return options, nil
	}

	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		options, err := s.engine.FindRates(ctx, req)
		if err != nil {
			return nil, err
		}
		s.cache.set(ctx, key, options)
		return options, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]QuoteOption), nil
	}
}
