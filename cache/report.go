// Package cache keeps the generated status report in redis between snapshots.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"lab_inventory/inventory"
)

const (
	reportKey    = "lab:report:status"
	reportGenKey = "lab:report:gen"
	buildTimeout = 30 * time.Second
)

type BuildFunc func(ctx context.Context) (*inventory.StatusReport, error)

// ReportCache stores the report under a generation-numbered key. Invalidate bumps the
// generation, so a rebuild that started before a write can only fill the old key.
type ReportCache struct {
	rdb   *redis.Client
	ttl   time.Duration
	build BuildFunc
	group singleflight.Group
}

func NewReportCache(rdb *redis.Client, ttl time.Duration, build BuildFunc) *ReportCache {
	return &ReportCache{rdb: rdb, ttl: ttl, build: build}
}

func genKey(gen int64) string { return fmt.Sprintf("%s:%d", reportKey, gen) }

func (c *ReportCache) generation(ctx context.Context) int64 {
	gen, err := c.rdb.Get(ctx, reportGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		zap.L().Warn("report generation read failed", zap.Error(err))
	}
	return gen
}

// Get returns the cached report, building it once for all concurrent callers on a miss.
// A redis outage degrades to building on every call.
func (c *ReportCache) Get(ctx context.Context) (*inventory.StatusReport, error) {
	gen := c.generation(ctx)
	key := genKey(gen)
	b, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var r inventory.StatusReport
		if err := json.Unmarshal(b, &r); err == nil {
			return &r, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		zap.L().Warn("report cache read failed", zap.Error(err))
	}

	// 构建不跟随单个请求的取消
	ch := c.group.DoChan(key, func() (interface{}, error) {
		bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), buildTimeout)
		defer cancel()
		return c.refresh(bctx, gen)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*inventory.StatusReport), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Warm rebuilds and stores the report for the current generation.
func (c *ReportCache) Warm(ctx context.Context) error {
	_, err := c.refresh(ctx, c.generation(ctx))
	return err
}

// Invalidate moves readers to a new generation after a mutation.
func (c *ReportCache) Invalidate(ctx context.Context) {
	gen, err := c.rdb.Incr(ctx, reportGenKey).Result()
	if err != nil {
		zap.L().Warn("report cache invalidate failed", zap.Error(err))
		return
	}
	c.rdb.Del(ctx, genKey(gen-1))
}

func (c *ReportCache) refresh(ctx context.Context, gen int64) (*inventory.StatusReport, error) {
	r, err := c.build(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "encode report")
	}
	if err := c.rdb.Set(ctx, genKey(gen), b, c.ttl).Err(); err != nil {
		zap.L().Warn("report cache write failed", zap.Error(err))
	}
	return r, nil
}
