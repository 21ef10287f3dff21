package service

import (
	"context"
	"errors"
	"time"

	"vida-vod/internal/dispatch"
	"vida-vod/internal/lease"
	"vida-vod/internal/metrics"
	"vida-vod/internal/model"
	"vida-vod/internal/repository"
	"vida-vod/pkg/logger"

	"go.uber.org/zap"
)

// Reaper 巡检卡住的任务：
// PROCESSING 超过阈值且租约已失效的视频置为 ERROR（进程崩溃留下的任务）；
// PENDING 超过阈值的视频重新投递（进程重启丢失的本地队列）。
type Reaper struct {
	videos     *repository.VideoRepository
	locker     lease.Locker
	dispatcher dispatch.Dispatcher
	staleAfter time.Duration
	now        func() time.Time
}

func NewReaper(videos *repository.VideoRepository, locker lease.Locker, dispatcher dispatch.Dispatcher, staleAfter time.Duration) *Reaper {
	return &Reaper{
		videos:     videos,
		locker:     locker,
		dispatcher: dispatcher,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// ReapResult 一轮巡检的结果
type ReapResult struct {
	Failed       int
	Redispatched int
}

// Run 按 interval 周期巡检，ctx 取消后返回
func (r *Reaper) Run(ctx context.Context, interval time.Duration) {
	logger.Info("Reaper started",
		zap.Duration("interval", interval),
		zap.Duration("stale_after", r.staleAfter),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Reaper stopped")
			return
		case <-ticker.C:
			res, err := r.ReapOnce(ctx)
			if err != nil {
				logger.Error("Reap pass failed", zap.Error(err))
				continue
			}
			if res.Failed > 0 || res.Redispatched > 0 {
				logger.Info("Reap pass completed",
					zap.Int("failed", res.Failed),
					zap.Int("redispatched", res.Redispatched),
				)
			}
		}
	}
}

// ReapOnce 执行一轮巡检
func (r *Reaper) ReapOnce(ctx context.Context) (ReapResult, error) {
	var res ReapResult
	cutoff := r.now().Add(-r.staleAfter)

	stuck, err := r.videos.ListStale(ctx, model.VideoStatusProcessing, cutoff)
	if err != nil {
		return res, err
	}
	for _, v := range stuck {
		held, err := r.locker.Held(ctx, lease.VideoKey(v.ID))
		if err != nil {
			logger.Warn("Failed to check pipeline lease", logger.VideoID(v.ID), zap.Error(err))
			continue
		}
		if held {
			continue
		}

		err = r.videos.Transition(ctx, v.ID, model.VideoStatusProcessing, model.VideoStatusError)
		if err != nil {
			if !errors.Is(err, repository.ErrStatusConflict) && !errors.Is(err, repository.ErrNotFound) {
				logger.Error("Failed to fail stuck video", logger.VideoID(v.ID), zap.Error(err))
			}
			continue
		}

		res.Failed++
		metrics.ReaperActionsTotal.WithLabelValues("failed").Inc()
		metrics.StatusTransitionsTotal.WithLabelValues(string(model.VideoStatusError)).Inc()
		logger.Warn("Stuck video marked as ERROR",
			logger.VideoID(v.ID),
			zap.Time("updated_at", v.UpdatedAt),
		)
	}

	pending, err := r.videos.ListStale(ctx, model.VideoStatusPending, cutoff)
	if err != nil {
		return res, err
	}
	for _, v := range pending {
		if err := r.dispatcher.Dispatch(ctx, v.ID); err != nil {
			logger.Warn("Failed to redispatch pending video", logger.VideoID(v.ID), zap.Error(err))
			continue
		}
		if err := r.videos.Touch(ctx, v.ID, model.VideoStatusPending); err != nil {
			// 已被 worker 抢占，说明投递生效了
			logger.Debug("Pending video changed during redispatch", logger.VideoID(v.ID), zap.Error(err))
		}

		res.Redispatched++
		metrics.ReaperActionsTotal.WithLabelValues("redispatched").Inc()
		logger.Info("Pending video redispatched", logger.VideoID(v.ID))
	}

	return res, nil
}
