// Package cache 订阅者列表的 Redis 读穿缓存
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/pkg/logger"
)

// LoadFunc 缓存未命中时回源
type LoadFunc func(ctx context.Context) ([]model.Subscriber, error)

// SubscriberCache 整份订阅者列表以 JSON 存一个 key；订阅/退订/删书/改资料时失效。
// 每本小说另有一个版本号 key，Invalidate 自增版本，回填只在版本未变时写入，
// 回源期间发生的失效不会被旧列表覆盖。
// Redis 调用经过熔断器，熔断期间直接回源。
type SubscriberCache struct {
	client  *redis.Client
	ttl     time.Duration
	verTTL  time.Duration
	breaker *gobreaker.CircuitBreaker

	hits   atomic.Int64
	misses atomic.Int64
}

func NewSubscriberCache(client *redis.Client, ttl time.Duration) *SubscriberCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &SubscriberCache{
		client:  client,
		ttl:     ttl,
		verTTL:  max(24*time.Hour, 2*ttl),
		breaker: newBreaker(),
	}
}

// KEYS[1] 版本号 KEYS[2] 列表；ARGV[1] 回源前读到的版本 ARGV[2] 数据 ARGV[3] 毫秒 ttl
var setIfVersion = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if (cur or '') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

func newBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "subscriber-cache",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// 失败率 >= 60% 且请求数 >= 5
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && ratio >= 0.6
		},
		// key 不存在不算故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

func subscribersKey(novelID string) string {
	return fmt.Sprintf("novel:subscribers:%s", novelID)
}

func versionKey(novelID string) string {
	return fmt.Sprintf("novel:subscribers:ver:%s", novelID)
}

func isBreakerErr(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (c *SubscriberCache) do(fn func() error) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

// Get 先读缓存，未命中或反序列化失败则回源并回填。Redis 不可用时直接回源。
func (c *SubscriberCache) Get(ctx context.Context, novelID string, load LoadFunc) ([]model.Subscriber, error) {
	key := subscribersKey(novelID)
	var data []byte
	err := c.do(func() error {
		var gErr error
		data, gErr = c.client.Get(ctx, key).Bytes()
		return gErr
	})
	switch {
	case err == nil:
		var out []model.Subscriber
		if uErr := json.Unmarshal(data, &out); uErr == nil {
			c.hits.Add(1)
			return out, nil
		}
	case errors.Is(err, redis.Nil):
	case isBreakerErr(err):
		// 熔断中，不再打日志
	default:
		logger.Warn("subscriber cache get failed", zap.String("novel_id", novelID), zap.Error(err))
	}
	c.misses.Add(1)

	// 版本号必须在回源之前读
	var ver string
	verErr := c.do(func() error {
		v, gErr := c.client.Get(ctx, versionKey(novelID)).Result()
		if errors.Is(gErr, redis.Nil) {
			v, gErr = "", nil
		}
		ver = v
		return gErr
	})

	rows, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.Subscriber{}
	}
	if verErr != nil {
		return rows, nil
	}
	if payload, mErr := json.Marshal(rows); mErr == nil {
		sErr := c.do(func() error {
			return setIfVersion.Run(ctx, c.client,
				[]string{versionKey(novelID), key},
				ver, payload, c.ttl.Milliseconds()).Err()
		})
		if sErr != nil && !isBreakerErr(sErr) {
			logger.Warn("subscriber cache set failed", zap.String("novel_id", novelID), zap.Error(sErr))
		}
	}
	return rows, nil
}

// Invalidate 自增版本号并删除列表；失败只记日志，缓存最多在 ttl 后自愈
func (c *SubscriberCache) Invalidate(ctx context.Context, novelID string) {
	vk := versionKey(novelID)
	err := c.do(func() error {
		_, pErr := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Incr(ctx, vk)
			pipe.Expire(ctx, vk, c.verTTL)
			pipe.Del(ctx, subscribersKey(novelID))
			return nil
		})
		return pErr
	})
	if err != nil {
		logger.Warn("subscriber cache invalidate failed", zap.String("novel_id", novelID), zap.Error(err))
	}
}

// InvalidateMany 用户资料变化时，其订阅的每本小说都要失效
func (c *SubscriberCache) InvalidateMany(ctx context.Context, novelIDs []string) {
	for _, id := range novelIDs {
		c.Invalidate(ctx, id)
	}
}

// Counters 命中/未命中次数
func (c *SubscriberCache) Counters() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState 熔断器当前状态
func (c *SubscriberCache) BreakerState() string {
	return c.breaker.State().String()
}
