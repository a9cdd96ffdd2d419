package main

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/novel-engine/config"
	"github.com/d60-Lab/novel-engine/internal/api/handler"
	"github.com/d60-Lab/novel-engine/internal/cache"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/internal/service"
	"github.com/d60-Lab/novel-engine/pkg/database"
	"github.com/d60-Lab/novel-engine/pkg/logger"
	"github.com/d60-Lab/novel-engine/pkg/tracing"
)

// app 进程级依赖；各子命令按需取用
type app struct {
	cfg   *config.Config
	db    *gorm.DB
	redis *redis.Client

	outbox     repository.OutboxRepository
	notifier   service.NotificationService
	dispatcher *service.Dispatcher
	services   handler.Services

	closers []func(context.Context) error
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{cfg: cfg}

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			AttachStacktrace: true,
		}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			a.closers = append(a.closers, func(context.Context) error {
				sentry.Flush(2 * time.Second)
				return nil
			})
		}
	}

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(ctx, cfg.Tracing)
		if err != nil {
			logger.Warn("tracing disabled", zap.Error(err))
		} else {
			a.closers = append(a.closers, shutdown)
		}
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	a.db = db
	a.closers = append(a.closers, func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	var subscriberCache *cache.SubscriberCache
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			// 缓存只是加速，连不上就直接走库
			logger.Warn("redis unavailable, subscriber cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = client.Close()
		} else {
			a.redis = client
			subscriberCache = cache.NewSubscriberCache(client, cfg.Redis.TTL)
			a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		}
	}

	users := repository.NewUserRepository(db)
	novels := repository.NewNovelRepository(db)
	chapters := repository.NewChapterRepository(db)
	relations := repository.NewRelationRepository(db)
	a.outbox = repository.NewOutboxRepository(db)

	a.notifier = service.NewNotificationService(repository.NewNotificationRepository(db), relations, novels, cfg.Notify.BatchSize)
	if cfg.Notify.Mode == config.NotifyModeAsync {
		a.dispatcher = service.NewDispatcher(a.notifier, cfg.Notify.QueueSize, cfg.Notify.Timeout)
	}
	publisher := service.NewPublisher(cfg.Notify.Mode, a.notifier, a.dispatcher, cfg.Notify.Timeout)

	a.services = handler.Services{
		Auth:          service.NewAuthService(users, cfg.JWT.Secret, cfg.JWT.TTL),
		Users:         service.NewUserService(users, relations, subscriberCache),
		Novels:        service.NewNovelService(novels, subscriberCache),
		Chapters:      service.NewChapterService(chapters, publisher),
		Interactions:  service.NewInteractionService(relations, subscriberCache),
		Progress:      service.NewProgressService(repository.NewProgressRepository(db)),
		Notifications: a.notifier,
		Admin:         service.NewAdminService(users, novels, chapters, relations),
	}
	return a, nil
}

func (a *app) fanoutWorker() *service.FanoutWorker {
	n := a.cfg.Notify
	return service.NewFanoutWorker(a.outbox, a.notifier, n.Workers, n.ClaimLimit, n.PollInterval, n.Lease)
}

// Close 逆序释放资源
func (a *app) Close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			logger.Warn("shutdown step failed", zap.Error(err))
		}
	}
	_ = logger.Sync()
}
