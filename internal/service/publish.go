package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/novel-engine/config"
	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/pkg/logger"
	"github.com/d60-Lab/novel-engine/pkg/metrics"
)

// Publisher 章节发布后的通知投递，按 notify.mode 选择路径。
// 任何投递失败都只记日志和指标，不影响已提交的章节。
type Publisher struct {
	mode       string
	notifier   NotificationService
	dispatcher *Dispatcher
	timeout    time.Duration
}

// NewPublisher async 模式下 dispatcher 必须非空
func NewPublisher(mode string, notifier NotificationService, dispatcher *Dispatcher, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Publisher{mode: mode, notifier: notifier, dispatcher: dispatcher, timeout: timeout}
}

// Event outbox 模式下返回需与章节同事务写入的事件，其余模式返回 nil
func (p *Publisher) Event() *model.Outbox {
	if p == nil || p.mode != config.NotifyModeOutbox {
		return nil
	}
	return &model.Outbox{ID: uuid.NewString(), Status: model.OutboxPending}
}

// Published 章节事务提交之后调用
func (p *Publisher) Published(ctx context.Context, ch *model.Chapter) {
	if p == nil {
		return
	}
	switch p.mode {
	case config.NotifyModeOutbox:
		// 事件已随章节落库，由 FanoutWorker 处理
	case config.NotifyModeAsync:
		if p.dispatcher != nil {
			p.dispatcher.Enqueue(uuid.NewString(), ch.NovelID, ch.Title)
		}
	default:
		p.inline(ctx, ch)
	}
}

func (p *Publisher) inline(ctx context.Context, ch *model.Chapter) {
	// 请求结束或客户端断开不应打断扇出
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	start := time.Now()
	n, err := p.notifier.NotifyNewChapter(ctx, ch.NovelID, ch.Title)
	if err != nil {
		metrics.RecordFanoutFailure("inline", "notify")
		logger.Error("notify new chapter failed",
			zap.String("novel_id", ch.NovelID),
			zap.Uint("chapter_id", ch.ID),
			zap.Error(err),
		)
		return
	}
	metrics.RecordFanout("inline", n, start)
	logger.Debug("subscribers notified", zap.String("novel_id", ch.NovelID), zap.Int64("count", n))
}
