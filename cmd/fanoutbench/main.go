package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/novel-engine/config"
	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/internal/service"
	"github.com/d60-Lab/novel-engine/pkg/database"
)

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
	k := int(float64(len(xs)) * p)
	if k >= len(xs) {
		k = len(xs) - 1
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

type result struct {
	mode    string
	publish []time.Duration // CreateChapter 返回耗时
	landing []time.Duration // 提交到通知落库
	written int64
}

// 章节发布扇出：同一批订阅者下分别跑 inline / async / outbox 三种投递方式
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	db, err := database.InitDB(cfg)
	if err != nil {
		panic(err)
	}
	if err := database.Migrate(db); err != nil {
		panic(err)
	}

	SUBS := envInt("SUBS", 5000)
	REPEAT := envInt("REPEAT", 20)
	ctx := context.Background()

	editor := seedUsers(db, 1, model.RoleEditor)[0]
	readers := seedUsers(db, SUBS, model.RoleUser)

	var results []result
	for _, mode := range []string{config.NotifyModeInline, config.NotifyModeAsync, config.NotifyModeOutbox} {
		results = append(results, run(ctx, db, cfg, mode, editor, readers, REPEAT))
	}

	fmt.Printf("SUBS=%d REPEAT=%d driver=%s\n", SUBS, REPEAT, cfg.Database.Driver)
	for _, r := range results {
		fmt.Printf("%-7s publish avg=%v p95=%v p99=%v | landing avg=%v p95=%v | notifications=%d\n",
			r.mode, avg(r.publish), pct(r.publish, 0.95), pct(r.publish, 0.99),
			avg(r.landing), pct(r.landing, 0.95), r.written)
	}
}

func seedUsers(db *gorm.DB, n int, role model.Role) []model.User {
	users := make([]model.User, n)
	for i := range users {
		id := uuid.NewString()
		users[i] = model.User{Email: id + "@example.com", FullName: "bench " + id[:8], PasswordHash: "x", Role: role}
	}
	if err := db.CreateInBatches(&users, 500).Error; err != nil {
		panic(err)
	}
	return users
}

func run(ctx context.Context, db *gorm.DB, cfg *config.Config, mode string, editor model.User, readers []model.User, repeat int) result {
	novelRepo := repository.NewNovelRepository(db)
	relations := repository.NewRelationRepository(db)
	outbox := repository.NewOutboxRepository(db)
	notifier := service.NewNotificationService(repository.NewNotificationRepository(db), relations, novelRepo, cfg.Notify.BatchSize)

	var dispatcher *service.Dispatcher
	var stop func(context.Context) error
	if mode == config.NotifyModeAsync {
		dispatcher = service.NewDispatcher(notifier, cfg.Notify.QueueSize, cfg.Notify.Timeout)
		stop = dispatcher.Start(cfg.Notify.Workers)
	}
	publisher := service.NewPublisher(mode, notifier, dispatcher, cfg.Notify.Timeout)
	chapters := service.NewChapterService(repository.NewChapterRepository(db), publisher)
	novels := service.NewNovelService(novelRepo, nil)
	interactions := service.NewInteractionService(relations, nil)

	caller := service.Caller{ID: editor.ID, Role: editor.Role}
	novel, err := novels.CreateNovel(ctx, caller, service.CreateNovelInput{
		Title:      "fanoutbench " + mode,
		AuthorName: "bench",
		Summary:    "benchmark fixture novel",
		Categories: []string{"bench"},
	})
	if err != nil {
		panic(err)
	}
	for _, u := range readers {
		if err := interactions.Subscribe(ctx, u.ID, novel.PublicID); err != nil {
			panic(err)
		}
	}

	before := countNotifications(db)
	r := result{mode: mode}
	body := strings.Repeat("bench chapter body ", 10)
	for i := 1; i <= repeat; i++ {
		st := time.Now()
		_, err := chapters.CreateChapter(ctx, caller, service.CreateChapterInput{
			NovelID:       novel.PublicID,
			ChapterNumber: i,
			Title:         fmt.Sprintf("chapter %d", i),
			Content:       body,
		})
		if err != nil {
			panic(err)
		}
		d := time.Since(st)
		r.publish = append(r.publish, d)
		if mode == config.NotifyModeInline {
			r.landing = append(r.landing, d)
		}
	}

	switch mode {
	case config.NotifyModeAsync:
		if err := stop(context.Background()); err != nil {
			panic(err)
		}
		r.landing = drain(dispatcher.Metrics(), repeat)
	case config.NotifyModeOutbox:
		w := service.NewFanoutWorker(outbox, notifier, cfg.Notify.Workers, cfg.Notify.ClaimLimit, cfg.Notify.PollInterval, cfg.Notify.Lease)
		for done := 0; done < repeat; {
			n, err := w.ProcessOnce(ctx)
			if err != nil {
				panic(err)
			}
			if n == 0 {
				break
			}
			done += n
		}
		r.landing = drain(w.Metrics(), repeat)
	}

	r.written = countNotifications(db) - before
	return r
}

func countNotifications(db *gorm.DB) int64 {
	var n int64
	if err := db.Model(&model.Notification{}).Count(&n).Error; err != nil {
		panic(err)
	}
	return n
}

func drain(ch <-chan time.Duration, max int) []time.Duration {
	out := make([]time.Duration, 0, max)
	for len(out) < max {
		select {
		case d := <-ch:
			out = append(out, d)
		default:
			return out
		}
	}
	return out
}
