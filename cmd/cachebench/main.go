package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/novel-engine/config"
	"github.com/d60-Lab/novel-engine/internal/cache"
	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/internal/service"
	"github.com/d60-Lab/novel-engine/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	return xs[k]
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range vs {
		sum += d
	}
	return sum / time.Duration(len(vs))
}

// 订阅者列表：直接查库 vs Redis 读穿缓存；CHURN 控制每多少次读发生一次订阅变更（触发失效）
func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	mustDo(database.Migrate(db))

	NOVELS := envInt("NOVELS", 3)
	SUBS := envInt("SUBS", 3000)
	READS := envInt("READS", 3000)
	CHURN := envInt("CHURN", 100)

	addr := cfg.Redis.Addr
	if s := os.Getenv("REDIS_ADDR"); s != "" {
		addr = s
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		panic(fmt.Sprintf("failed to connect to redis at %s: %v", addr, err))
	}

	fmt.Println("Setting up test data...")
	editor := model.User{Email: uuid.NewString() + "@example.com", FullName: "bench editor", PasswordHash: "x", Role: model.RoleEditor}
	mustDo(db.Create(&editor).Error)
	readers := make([]model.User, SUBS)
	for i := range readers {
		readers[i] = model.User{Email: uuid.NewString() + "@example.com", FullName: fmt.Sprintf("reader_%d", i), PasswordHash: "x", Role: model.RoleUser}
	}
	mustDo(db.CreateInBatches(&readers, 500).Error)

	relations := repository.NewRelationRepository(db)
	plain := service.NewInteractionService(relations, nil)
	novels := service.NewNovelService(repository.NewNovelRepository(db), nil)
	ids := make([]string, NOVELS)
	for i := range ids {
		n := must(novels.CreateNovel(ctx, service.Caller{ID: editor.ID, Role: editor.Role}, service.CreateNovelInput{
			Title:      fmt.Sprintf("cachebench %d", i),
			AuthorName: "bench",
			Summary:    "benchmark fixture novel",
			Categories: []string{"bench"},
		}))
		ids[i] = n.PublicID
		// 相邻小说的订阅者有一半重叠
		for j := 0; j < SUBS/2; j++ {
			u := readers[(j+i*SUBS/4)%SUBS]
			mustDo(plain.Subscribe(ctx, u.ID, n.PublicID))
		}
	}
	fmt.Printf("Test data ready: %d novels, %d readers\n", NOVELS, SUBS)

	rng := rand.New(rand.NewSource(42))
	plan := make([]string, READS)
	for i := range plan {
		plan[i] = ids[rng.Intn(len(ids))]
	}

	subscriberCache := cache.NewSubscriberCache(client, cfg.Redis.TTL)
	cached := service.NewInteractionService(relations, subscriberCache)

	run := func(svc service.InteractionService) []time.Duration {
		mustDo(client.FlushDB(ctx).Err())
		out := make([]time.Duration, 0, len(plan))
		churn := readers[len(readers)-1]
		for i, id := range plan {
			if i > 0 && i%CHURN == 0 {
				// 订阅/取消交替，保证每次都真正改变集合
				if err := svc.Subscribe(ctx, churn.ID, id); err != nil {
					mustDo(svc.Unsubscribe(ctx, churn.ID, id))
				}
			}
			st := time.Now()
			_ = must(svc.GetNovelSubscribers(ctx, id))
			out = append(out, time.Since(st))
		}
		return out
	}

	noCache := run(plain)
	withCache := run(cached)
	hits, misses := subscriberCache.Counters()
	keys := must(client.DBSize(ctx).Result())

	fmt.Printf("\nSubscriber list latency (%d reads over %d novels, churn every %d reads)\n", READS, NOVELS, CHURN)
	fmt.Printf("%-12s avg=%v p95=%v p99=%v\n", "No cache", avg(noCache), pct(noCache, 0.95), pct(noCache, 0.99))
	fmt.Printf("%-12s avg=%v p95=%v p99=%v hits=%d misses=%d keys=%d\n", "Redis cache",
		avg(withCache), pct(withCache, 0.95), pct(withCache, 0.99), hits, misses, keys)
}
