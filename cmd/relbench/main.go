package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/novel-engine/config"
	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/internal/service"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
	"github.com/d60-Lab/novel-engine/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
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
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

// 并发收藏同一本小说：每个读者发两次请求，只能成功一次；最后核对计数列与实际记录
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	if err := database.Migrate(db); err != nil {
		panic(err)
	}
	ctx := context.Background()

	N := envInt("N", 2000)
	CONC := envInt("CONC", 16)
	PAGE := envInt("PAGE", 50)

	users := repository.NewUserRepository(db)
	novelRepo := repository.NewNovelRepository(db)
	relations := repository.NewRelationRepository(db)
	interactions := service.NewInteractionService(relations, nil)
	novels := service.NewNovelService(novelRepo, nil)

	editor := &model.User{Email: "bench-editor-" + uuid.NewString()[:8] + "@example.com", FullName: "bench editor", PasswordHash: "x", Role: model.RoleEditor}
	if err := users.Create(ctx, editor); err != nil {
		panic(err)
	}
	novel := must(novels.CreateNovel(ctx, service.Caller{ID: editor.ID, Role: editor.Role}, service.CreateNovelInput{
		Title:      "relbench " + time.Now().Format(time.RFC3339),
		AuthorName: "bench",
		Summary:    "benchmark fixture novel",
		Categories: []string{"bench"},
	}))

	readers := make([]model.User, N)
	for i := range readers {
		id := uuid.NewString()
		readers[i] = model.User{Email: id[:8] + "-" + strconv.Itoa(i) + "@example.com", FullName: "reader " + id[:8], PasswordHash: "x", Role: model.RoleUser}
	}
	if err := db.CreateInBatches(&readers, 500).Error; err != nil {
		panic(err)
	}

	workers := CONC
	if workers > N {
		workers = N
	}
	feed := make(chan int, 2*N)
	for i := 0; i < N; i++ {
		feed <- i
		feed <- i
	}
	close(feed)

	var ok, conflicts, failed int64
	lat := make(chan time.Duration, 2*N)
	var wg sync.WaitGroup
	t0 := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				st := time.Now()
				err := interactions.Bookmark(ctx, readers[i].ID, novel.PublicID)
				lat <- time.Since(st)
				switch {
				case err == nil:
					atomic.AddInt64(&ok, 1)
				case errors.Is(err, apperr.ErrConflict):
					atomic.AddInt64(&conflicts, 1)
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}
	wg.Wait()
	total := time.Since(t0)
	close(lat)
	recs := make([]time.Duration, 0, 2*N)
	for d := range lat {
		recs = append(recs, d)
	}

	// 订阅后按游标翻页
	for i := 0; i < N; i++ {
		_ = interactions.Subscribe(ctx, readers[i].ID, novel.PublicID)
	}
	q0 := time.Now()
	_, _ = relations.ListSubscriberIDs(ctx, novel.PublicID, 0, PAGE)
	pageDur := time.Since(q0)
	q1 := time.Now()
	all, _ := relations.ListSubscribers(ctx, novel.PublicID)
	listDur := time.Since(q1)

	after := must(novelRepo.GetByPublicID(ctx, novel.PublicID))
	var live int64
	if err := db.Model(&model.NovelBookmark{}).Where("novel_id = ?", novel.PublicID).Count(&live).Error; err != nil {
		panic(err)
	}

	fmt.Printf("N=%d, CONC=%d, PAGE=%d\n", N, CONC, PAGE)
	fmt.Printf("Bookmark x2 per reader: total=%v per op=%v p50=%v p95=%v p99=%v\n",
		total, total/time.Duration(2*N), pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99))
	fmt.Printf("Outcome: ok=%d conflict=%d failed=%d\n", ok, conflicts, failed)
	fmt.Printf("Counter check: bookmark_count=%d live_bookmarks=%d match=%v\n", after.BookmarkCount, live, after.BookmarkCount == live && live == ok)
	fmt.Printf("Query subscriber ids(%d): %v, full subscriber list(%d): %v\n", PAGE, pageDur, len(all), listDur)
}
