package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
	"github.com/d60-Lab/novel-engine/pkg/logger"
	"github.com/d60-Lab/novel-engine/pkg/metrics"
)

// FanoutWorker 轮询 chapter_outbox，领取事件后按订阅者扇出通知。
// 至少一次投递：处理中崩溃的事件在租期过后会被重新领取，重复写入由 (user_id, event_id) 唯一索引吸收。
type FanoutWorker struct {
	outbox       repository.OutboxRepository
	notifier     NotificationService
	claimLimit   int
	pollInterval time.Duration
	lease        time.Duration
	workers      int
	now          func() time.Time
	metricsCh    chan time.Duration // outbox->processed latency
}

func NewFanoutWorker(outbox repository.OutboxRepository, notifier NotificationService, workers, claimLimit int, pollInterval, lease time.Duration) *FanoutWorker {
	if workers <= 0 {
		workers = 2
	}
	if claimLimit <= 0 {
		claimLimit = 64
	}
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	if lease <= 0 {
		lease = time.Minute
	}
	return &FanoutWorker{
		outbox:       outbox,
		notifier:     notifier,
		workers:      workers,
		claimLimit:   claimLimit,
		pollInterval: pollInterval,
		lease:        lease,
		now:          func() time.Time { return time.Now().UTC() },
		metricsCh:    make(chan time.Duration, 1024),
	}
}

func (w *FanoutWorker) Metrics() <-chan time.Duration { return w.metricsCh }

// Start 启动若干 worker 轮询处理 outbox；返回停止函数，等待进行中的一轮结束
func (w *FanoutWorker) Start(ctx context.Context) func(context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{}, w.workers)
	for i := 0; i < w.workers; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			w.loop(ctx)
		}()
	}
	return func(stopCtx context.Context) error {
		cancel()
		for i := 0; i < w.workers; i++ {
			select {
			case <-done:
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		}
		return nil
	}
}

func (w *FanoutWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox poll failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce 领取一批事件并逐个扇出，返回处理完成的事件数
func (w *FanoutWorker) ProcessOnce(ctx context.Context) (int, error) {
	now := w.now()
	batch, err := w.outbox.Claim(ctx, w.claimLimit, now, now.Add(-w.lease))
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, ob := range batch {
		if err := w.process(ctx, ob); err != nil {
			metrics.RecordFanoutFailure("outbox", "notify")
			logger.Error("outbox fanout failed, will retry",
				zap.String("event_id", ob.ID),
				zap.String("novel_id", ob.NovelID),
				zap.Int("attempts", ob.Attempts),
				zap.Error(err),
			)
			if rErr := w.outbox.Release(context.WithoutCancel(ctx), ob.ID); rErr != nil {
				logger.Error("outbox release failed", zap.String("event_id", ob.ID), zap.Error(rErr))
			}
			continue
		}
		processed++
	}
	return processed, nil
}

func (w *FanoutWorker) process(ctx context.Context, ob model.Outbox) error {
	written, err := w.notifier.NotifyEvent(ctx, ob.ID, ob.NovelID, ob.ChapterTitle)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if err != nil {
		// 小说已被删除，没有可通知的对象
		logger.Info("outbox event for deleted novel", zap.String("event_id", ob.ID), zap.String("novel_id", ob.NovelID))
	}
	if err := w.outbox.MarkDone(ctx, ob.ID, written, w.now()); err != nil {
		return err
	}
	metrics.RecordFanout("outbox", written, ob.CreatedAt)
	if !ob.CreatedAt.IsZero() {
		select {
		case w.metricsCh <- time.Since(ob.CreatedAt):
		default:
		}
	}
	return nil
}
