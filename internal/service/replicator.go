package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/novel-engine/pkg/logger"
	"github.com/d60-Lab/novel-engine/pkg/metrics"
)

type fanoutJob struct {
	eventID      string
	novelID      string
	chapterTitle string
	enqAt        time.Time
}

// Dispatcher 进程内异步扇出：有界队列 + N 个 worker，队列满即丢弃（尽力而为）
type Dispatcher struct {
	notifier  NotificationService
	ch        chan fanoutJob
	timeout   time.Duration
	metricsCh chan time.Duration
	wg        sync.WaitGroup
}

func NewDispatcher(notifier NotificationService, queueSize int, timeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 10000
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		notifier:  notifier,
		ch:        make(chan fanoutJob, queueSize),
		timeout:   timeout,
		metricsCh: make(chan time.Duration, 1024),
	}
}

// Start 启动 worker，返回停止函数；停止时先把队列里剩余的任务处理完，最长等到 ctx 结束
func (d *Dispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case job := <-d.ch:
					d.handle(job)
				case <-stopCh:
					for {
						select {
						case job := <-d.ch:
							d.handle(job)
						default:
							return
						}
					}
				}
			}
		}()
	}

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() { close(stopCh) })
		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			logger.Warn("dispatcher stop timed out", zap.Int("pending", len(d.ch)))
			return ctx.Err()
		}
	}
}

func (d *Dispatcher) handle(job fanoutJob) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	n, err := d.notifier.NotifyEvent(ctx, job.eventID, job.novelID, job.chapterTitle)
	if err != nil {
		metrics.RecordFanoutFailure("async", "notify")
		logger.Error("async fanout failed",
			zap.String("novel_id", job.novelID),
			zap.String("event_id", job.eventID),
			zap.Error(err),
		)
		return
	}
	metrics.RecordFanout("async", n, job.enqAt)
	metrics.SetQueueLength(len(d.ch))
	select {
	case d.metricsCh <- time.Since(job.enqAt):
	default:
	}
}

// Enqueue 非阻塞入队；队列满返回 false
func (d *Dispatcher) Enqueue(eventID, novelID, chapterTitle string) bool {
	select {
	case d.ch <- fanoutJob{eventID: eventID, novelID: novelID, chapterTitle: chapterTitle, enqAt: time.Now()}:
		metrics.SetQueueLength(len(d.ch))
		return true
	default:
		metrics.RecordFanoutFailure("async", "queue_full")
		logger.Warn("fanout queue full, drop", zap.String("novel_id", novelID), zap.String("event_id", eventID))
		return false
	}
}

// Metrics 每处理完一个任务发送一次入队到完成的耗时
func (d *Dispatcher) Metrics() <-chan time.Duration { return d.metricsCh }

// QueueLen 当前队列长度（采样值）
func (d *Dispatcher) QueueLen() int { return len(d.ch) }
