// Package dispatch 把转码任务交给后台执行，提交方不等待结果。
package dispatch

import (
	"context"
	"errors"
	"sync"

	"vida-vod/internal/infra/kafka"
	"vida-vod/internal/metrics"
	"vida-vod/pkg/logger"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull 本地队列已满
	ErrQueueFull = errors.New("dispatch: queue full")
	// ErrStopped 执行器已停止
	ErrStopped = errors.New("dispatch: stopped")
)

// Dispatcher 提交一个视频的转码任务
type Dispatcher interface {
	Dispatch(ctx context.Context, videoID string) error
}

// Handler 执行一个视频的转码流水线
type Handler func(ctx context.Context, videoID string) error

// Pool 进程内的有界工作池。任务丢失（进程重启）时由巡检重新投递 PENDING 视频。
type Pool struct {
	workers int
	queue   chan string

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

var _ Dispatcher = (*Pool)(nil)

func NewPool(workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{workers: workers, queue: make(chan string, queueSize)}
}

// Start 启动 workers 个 goroutine 消费队列，ctx 传给每次 handler 调用
func (p *Pool) Start(ctx context.Context, handler Handler) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			for videoID := range p.queue {
				metrics.DispatchQueueDepth.Set(float64(len(p.queue)))
				p.run(ctx, handler, worker, videoID)
			}
		}(i)
	}
	logger.Info("Transcode worker pool started",
		zap.Int("workers", p.workers),
		zap.Int("queue_size", cap(p.queue)),
	)
}

func (p *Pool) run(ctx context.Context, handler Handler, worker int, videoID string) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Transcode task panicked",
				logger.VideoID(videoID),
				zap.Int("worker", worker),
				zap.Any("panic", r),
			)
		}
	}()

	if err := handler(ctx, videoID); err != nil {
		logger.Error("Transcode task failed",
			logger.VideoID(videoID),
			zap.Int("worker", worker),
			zap.Error(err),
		)
	}
}

// Dispatch 非阻塞入队，队列满时返回 ErrQueueFull
func (p *Pool) Dispatch(ctx context.Context, videoID string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}
	select {
	case p.queue <- videoID:
		metrics.DispatchQueueDepth.Set(float64(len(p.queue)))
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop 停止接收新任务，并等待已入队的任务全部执行完
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	logger.Info("Transcode worker pool stopped")
}

// TaskSender 发送转码任务消息
type TaskSender interface {
	SendTranscodeTask(ctx context.Context, task *kafka.TranscodeTask) error
}

// KafkaDispatcher 把任务写入 Kafka，由独立的 worker 进程消费
type KafkaDispatcher struct {
	sender TaskSender
}

var _ Dispatcher = (*KafkaDispatcher)(nil)

func NewKafkaDispatcher(sender TaskSender) *KafkaDispatcher {
	return &KafkaDispatcher{sender: sender}
}

func (d *KafkaDispatcher) Dispatch(ctx context.Context, videoID string) error {
	return d.sender.SendTranscodeTask(ctx, &kafka.TranscodeTask{VideoID: videoID})
}
