package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lab_inventory/inventory"
)

func newCache(t *testing.T, build BuildFunc) (*ReportCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewReportCache(rdb, time.Minute, build), mr
}

func TestReportCache_BuildsOnceThenServesCache(t *testing.T) {
	var calls int32
	c, mr := newCache(t, func(context.Context) (*inventory.StatusReport, error) {
		n := atomic.AddInt32(&calls, 1)
		return &inventory.StatusReport{Overview: "v" + string(rune('0'+n))}, nil
	})
	ctx := context.Background()

	r, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", r.Overview)
	assert.True(t, mr.Exists(genKey(0)))

	r, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v1", r.Overview)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

	c.Invalidate(ctx)
	r, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", r.Overview)
	assert.False(t, mr.Exists(genKey(0)))
	assert.True(t, mr.Exists(genKey(1)))

	require.NoError(t, c.Warm(ctx))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))

	mr.FastForward(2 * time.Minute)
	assert.False(t, mr.Exists(genKey(1)))
}

func TestReportCache_ConcurrentMissesShareOneBuild(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	c, _ := newCache(t, func(context.Context) (*inventory.StatusReport, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &inventory.StatusReport{Overview: "ok"}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "ok", r.Overview)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestReportCache_BuildError(t *testing.T) {
	boom := errors.New("snapshot failed")
	c, mr := newCache(t, func(context.Context) (*inventory.StatusReport, error) { return nil, boom })

	_, err := c.Get(context.Background())
	assert.Equal(t, boom, err)
	assert.False(t, mr.Exists(genKey(0)))
}

func TestReportCache_InvalidateDuringBuildIsNotOverwritten(t *testing.T) {
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	c, mr := newCache(t, func(context.Context) (*inventory.StatusReport, error) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			close(started)
			<-release
			return &inventory.StatusReport{Overview: "stale"}, nil
		}
		return &inventory.StatusReport{Overview: "fresh"}, nil
	})
	ctx := context.Background()

	done := make(chan *inventory.StatusReport)
	go func() {
		r, err := c.Get(ctx)
		assert.NoError(t, err)
		done <- r
	}()
	<-started
	// 构建过程中发生写操作
	c.Invalidate(ctx)
	close(release)
	assert.Equal(t, "stale", (<-done).Overview)

	r, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", r.Overview)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	assert.True(t, mr.Exists(genKey(1)))
}

func TestReportCache_CancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	c, mr := newCache(t, func(ctx context.Context) (*inventory.StatusReport, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &inventory.StatusReport{Overview: "ok"}, nil
	})

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error)
	go func() {
		_, err := c.Get(first)
		firstErr <- err
	}()
	<-started

	second := make(chan *inventory.StatusReport)
	go func() {
		r, err := c.Get(context.Background())
		assert.NoError(t, err)
		second <- r
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	assert.Equal(t, "ok", (<-second).Overview)
	assert.True(t, mr.Exists(genKey(0)))
}
