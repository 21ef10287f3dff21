package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"vida-vod/internal/api/dto"
	"vida-vod/internal/blob"
	"vida-vod/internal/dispatch"
	"vida-vod/internal/lease"
	"vida-vod/internal/metrics"
	"vida-vod/internal/model"
	"vida-vod/internal/publish"
	"vida-vod/internal/repository"
	"vida-vod/internal/transcode"
	"vida-vod/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 收尾写库（ERROR 状态、清理）使用独立超时，不受调用方 ctx 取消影响
const finalizeTimeout = 30 * time.Second

// VideoIndexer READY 视频的搜索索引，可以为空
type VideoIndexer interface {
	IndexVideo(ctx context.Context, v *model.Video) error
	DeleteVideo(ctx context.Context, videoID string) error
	SearchIDs(ctx context.Context, q string, limit int) ([]string, error)
}

// VideoServiceDeps 视频服务依赖
type VideoServiceDeps struct {
	Videos     *repository.VideoRepository
	Segments   *repository.SegmentRepository
	Users      *repository.UserRepository
	Store      blob.Store
	Engine     transcode.Engine
	Publisher  *publish.Publisher
	Dispatcher dispatch.Dispatcher
	Locker     lease.Locker
	Index      VideoIndexer
	ScratchDir string
	// LeaseTTL 流水线租约的过期兜底时间
	LeaseTTL time.Duration
}

// VideoService 视频生命周期管理：上传 → 转码 → 发布 → 状态迁移 → 清理
type VideoService struct {
	videos     *repository.VideoRepository
	segments   *repository.SegmentRepository
	users      *repository.UserRepository
	store      blob.Store
	engine     transcode.Engine
	publisher  *publish.Publisher
	dispatcher dispatch.Dispatcher
	locker     lease.Locker
	index      VideoIndexer
	scratchDir string
	leaseTTL   time.Duration
}

func NewVideoService(deps VideoServiceDeps) *VideoService {
	if deps.ScratchDir == "" {
		deps.ScratchDir = os.TempDir()
	}
	if deps.LeaseTTL <= 0 {
		deps.LeaseTTL = time.Minute
	}
	return &VideoService{
		videos:     deps.Videos,
		segments:   deps.Segments,
		users:      deps.Users,
		store:      deps.Store,
		engine:     deps.Engine,
		publisher:  deps.Publisher,
		dispatcher: deps.Dispatcher,
		locker:     deps.Locker,
		index:      deps.Index,
		scratchDir: deps.ScratchDir,
		leaseTTL:   deps.LeaseTTL,
	}
}

// UploadInput 上传的文件与元数据
type UploadInput struct {
	Title       string
	Description string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload 上传视频：先写对象存储，再创建 PENDING 记录，最后投递转码任务。
// 记录创建失败时源文件成为孤儿对象，但不会出现指向缺失对象的记录。
func (s *VideoService) Upload(ctx context.Context, caller Caller, in *UploadInput) (*dto.VideoInfo, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		metrics.UploadsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidTitle
	}
	if in.Body == nil || in.Size <= 0 {
		metrics.UploadsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrMissingFile
	}

	exists, err := s.users.Exists(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		metrics.UploadsTotal.WithLabelValues("invalid").Inc()
		return nil, ErrOwnerNotFound
	}

	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = blob.ContentTypeFor(in.Filename)
	}

	key := blob.NewSourceKey(in.Filename)
	sourceURL, err := s.store.Put(ctx, key, in.Body, in.Size, contentType)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("storage_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	video := &model.Video{
		ID:          uuid.NewString(),
		OwnerID:     caller.UserID,
		Title:       title,
		Description: in.Description,
		SourceKey:   key,
		SourceURL:   sourceURL,
		Size:        in.Size,
		MimeType:    contentType,
		Status:      model.VideoStatusPending,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		metrics.UploadsTotal.WithLabelValues("catalog_error").Inc()
		s.discardBlob(ctx, key)
		if errors.Is(err, repository.ErrOwnerNotFound) {
			return nil, ErrOwnerNotFound
		}
		return nil, fmt.Errorf("create video record: %w", err)
	}

	metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	metrics.UploadBytes.Add(float64(in.Size))
	metrics.StatusTransitionsTotal.WithLabelValues(string(model.VideoStatusPending)).Inc()

	logger.Info("Video uploaded",
		logger.VideoID(video.ID),
		zap.String("owner_id", video.OwnerID),
		zap.String("source_key", key),
		zap.Int64("size", video.Size),
	)

	// 投递失败不影响上传结果：记录保持 PENDING，由巡检重新投递
	if err := s.dispatcher.Dispatch(ctx, video.ID); err != nil {
		logger.Warn("Dispatch transcode task failed, left for reaper",
			logger.VideoID(video.ID), zap.Error(err))
	}

	return toVideoInfo(video), nil
}

// discardBlob 尽力删除已写入的源文件，失败只记录
func (s *VideoService) discardBlob(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := blob.DeleteIfExists(ctx, s.store, key); err != nil {
		logger.Warn("Failed to discard orphaned source object", zap.String("key", key), zap.Error(err))
	}
}

// Process 转码工作流程。PENDING → PROCESSING 是一次 CAS 抢占，
// 抢不到（已被处理或已删除）直接返回 nil；之后任何一步失败都把视频置为 ERROR。
func (s *VideoService) Process(ctx context.Context, videoID string) error {
	l, err := s.locker.Acquire(ctx, lease.VideoKey(videoID), s.leaseTTL)
	if err != nil {
		if errors.Is(err, lease.ErrHeld) {
			logger.Info("Video pipeline already running elsewhere", logger.VideoID(videoID))
			return nil
		}
		return fmt.Errorf("acquire pipeline lease: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
		defer cancel()
		if err := l.Release(ctx); err != nil {
			logger.Warn("Failed to release pipeline lease", logger.VideoID(videoID), zap.Error(err))
		}
	}()

	if err := s.videos.Transition(ctx, videoID, model.VideoStatusPending, model.VideoStatusProcessing); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) || errors.Is(err, repository.ErrNotFound) {
			logger.Info("Skip transcode task", logger.VideoID(videoID), zap.String("reason", err.Error()))
			return nil
		}
		return fmt.Errorf("claim video: %w", err)
	}
	metrics.StatusTransitionsTotal.WithLabelValues(string(model.VideoStatusProcessing)).Inc()
	metrics.PipelinesInFlight.Inc()
	defer metrics.PipelinesInFlight.Dec()

	logger.Info("Transcode pipeline started", logger.VideoID(videoID))
	start := time.Now()

	duration, playlistURL, err := s.runPipeline(ctx, videoID)
	if err != nil {
		s.markFailed(ctx, videoID, err)
		return err
	}

	if err := s.videos.MarkReady(ctx, videoID, duration, playlistURL); err != nil {
		s.markFailed(ctx, videoID, err)
		return fmt.Errorf("mark ready: %w", err)
	}
	metrics.StatusTransitionsTotal.WithLabelValues(string(model.VideoStatusReady)).Inc()
	metrics.PipelineDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())

	logger.Info("Transcode pipeline completed",
		logger.VideoID(videoID),
		zap.Float64("duration_seconds", duration),
		zap.String("playlist_url", playlistURL),
		zap.Duration("elapsed", time.Since(start)),
	)

	s.syncIndex(ctx, videoID)
	return nil
}

// runPipeline 下载 → 探测时长 → 切片 → 发布，临时目录在所有路径上删除
func (s *VideoService) runPipeline(ctx context.Context, videoID string) (float64, string, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return 0, "", fmt.Errorf("load video: %w", err)
	}

	workDir := filepath.Join(s.scratchDir, uuid.NewString())
	hlsDir := filepath.Join(workDir, "hls")
	if err := os.MkdirAll(hlsDir, 0o755); err != nil {
		return 0, "", fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			metrics.CleanupFailuresTotal.Inc()
			logger.Warn("Failed to remove scratch dir",
				logger.VideoID(videoID), zap.String("dir", workDir), zap.Error(err))
		}
	}()

	stage := time.Now()
	sourcePath := filepath.Join(workDir, "source"+path.Ext(video.SourceKey))
	if err := s.download(ctx, video.SourceKey, sourcePath); err != nil {
		return 0, "", fmt.Errorf("download source: %w", err)
	}
	observeStage("download", stage)

	stage = time.Now()
	duration, err := s.engine.ProbeDuration(ctx, sourcePath)
	if err != nil {
		return 0, "", err
	}
	observeStage("probe", stage)

	stage = time.Now()
	result, err := s.engine.Segment(ctx, sourcePath, hlsDir)
	if err != nil {
		return 0, "", err
	}
	observeStage("segment", stage)

	stage = time.Now()
	playlistURL, err := s.publisher.Publish(ctx, videoID, result.PlaylistPath, result.SegmentPaths)
	if err != nil {
		return 0, "", fmt.Errorf("publish: %w", err)
	}
	observeStage("publish", stage)

	return duration, playlistURL, nil
}

func (s *VideoService) download(ctx context.Context, key, dst string) error {
	rc, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// markFailed PROCESSING → ERROR，不写入任何时长或播放地址
func (s *VideoService) markFailed(ctx context.Context, videoID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	logger.Error("Transcode pipeline failed", logger.VideoID(videoID), zap.Error(cause))

	if err := s.videos.Transition(ctx, videoID, model.VideoStatusProcessing, model.VideoStatusError); err != nil {
		logger.Error("Failed to mark video as ERROR", logger.VideoID(videoID), zap.Error(err))
		return
	}
	metrics.StatusTransitionsTotal.WithLabelValues(string(model.VideoStatusError)).Inc()
}

func observeStage(stage string, start time.Time) {
	metrics.PipelineDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// syncIndex 把 READY 视频写入搜索索引，失败只记录（搜索会降级到数据库）
func (s *VideoService) syncIndex(ctx context.Context, videoID string) {
	if s.index == nil {
		return
	}
	videos, err := s.videos.GetByIDs(ctx, []string{videoID})
	if err != nil || len(videos) == 0 {
		logger.Warn("Failed to load video for indexing", logger.VideoID(videoID), zap.Error(err))
		return
	}
	if err := s.index.IndexVideo(ctx, &videos[0]); err != nil {
		logger.Warn("Failed to index video", logger.VideoID(videoID), zap.Error(err))
	}
}

func (s *VideoService) unindex(ctx context.Context, videoID string) {
	if s.index == nil {
		return
	}
	if err := s.index.DeleteVideo(ctx, videoID); err != nil {
		logger.Warn("Failed to remove video from index", logger.VideoID(videoID), zap.Error(err))
	}
}

// PlayInfo 获取播放信息，未就绪时返回 *NotReadyError
func (s *VideoService) PlayInfo(ctx context.Context, videoID string) (*dto.PlayInfo, error) {
	video, err := s.getVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if video.Status != model.VideoStatusReady {
		return nil, &NotReadyError{Status: video.Status}
	}
	return &dto.PlayInfo{
		ID:              video.ID,
		Title:           video.Title,
		Status:          string(video.Status),
		PlaylistURL:     video.PlaylistURL,
		DurationSeconds: video.DurationSeconds,
	}, nil
}

// Update 更新标题和描述（仅上传者本人）
func (s *VideoService) Update(ctx context.Context, caller Caller, videoID string, req *dto.VideoUpdateRequest) (*dto.VideoInfo, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrInvalidTitle
	}

	video, err := s.getVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !caller.owns(video) {
		return nil, ErrVideoNoPermission
	}

	updated, err := s.videos.UpdateMetadata(ctx, videoID, title, req.Description)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}

	if updated.Status == model.VideoStatusReady {
		s.syncIndex(ctx, videoID)
	}
	return toVideoInfo(updated), nil
}

// Delete 删除视频（仅上传者本人）。转码中的视频返回 ErrVideoBusy
func (s *VideoService) Delete(ctx context.Context, caller Caller, videoID string) error {
	video, err := s.getVideo(ctx, videoID)
	if err != nil {
		return err
	}
	if !caller.owns(video) {
		return ErrVideoNoPermission
	}

	deleted, segments, err := s.videos.Delete(ctx, videoID,
		model.VideoStatusPending, model.VideoStatusReady, model.VideoStatusError)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrVideoNotFound
		case errors.Is(err, repository.ErrStatusConflict):
			return ErrVideoBusy
		}
		return err
	}

	s.purgeObjects(ctx, deleted, segments)
	logger.Info("Video deleted", logger.VideoID(videoID), zap.String("by", caller.UserID))
	return nil
}

// DeleteFailed 清理处理失败的视频：运维角色或上传者本人，且状态必须为 ERROR
func (s *VideoService) DeleteFailed(ctx context.Context, caller Caller, videoID string) error {
	video, err := s.getVideo(ctx, videoID)
	if err != nil {
		return err
	}
	if !caller.IsOperator() && !caller.owns(video) {
		return ErrVideoNoPermission
	}
	if video.Status != model.VideoStatusError {
		return ErrVideoNotFailed
	}

	deleted, segments, err := s.videos.Delete(ctx, videoID, model.VideoStatusError)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrVideoNotFound
		case errors.Is(err, repository.ErrStatusConflict):
			return ErrVideoNotFailed
		}
		return err
	}

	s.purgeObjects(ctx, deleted, segments)
	logger.Info("Failed video cleaned up", logger.VideoID(videoID), zap.String("by", caller.UserID))
	return nil
}

// purgeObjects 记录删除后清理源文件、切片和播放列表。
// 记录已经不在了，对象删除失败只记录日志。
func (s *VideoService) purgeObjects(ctx context.Context, video *model.Video, segments []model.Segment) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	keys := make([]string, 0, len(segments)+2)
	keys = append(keys, video.SourceKey)
	for _, seg := range segments {
		keys = append(keys, blob.SegmentKey(video.ID, seg.Filename))
	}
	keys = append(keys, blob.PlaylistKey(video.ID))

	for _, key := range keys {
		if err := blob.DeleteIfExists(ctx, s.store, key); err != nil {
			metrics.CleanupFailuresTotal.Inc()
			logger.Warn("Failed to delete object",
				logger.VideoID(video.ID), zap.String("key", key), zap.Error(err))
		}
	}

	s.unindex(ctx, video.ID)
}

// ListMine 当前用户已就绪的视频
func (s *VideoService) ListMine(ctx context.Context, caller Caller) ([]dto.VideoInfo, error) {
	videos, err := s.videos.List(ctx, repository.ListOptions{
		OwnerID:  caller.UserID,
		Statuses: []model.VideoStatus{model.VideoStatusReady},
	})
	if err != nil {
		return nil, err
	}
	return toVideoInfos(videos), nil
}

// ListReady 全部已就绪视频（含上传者信息）
func (s *VideoService) ListReady(ctx context.Context) ([]dto.VideoInfo, error) {
	videos, err := s.videos.List(ctx, repository.ListOptions{
		Statuses:  []model.VideoStatus{model.VideoStatusReady},
		WithOwner: true,
	})
	if err != nil {
		return nil, err
	}
	return toVideoInfos(videos), nil
}

// ListPending 运维视图：未就绪的视频、上传者和已登记的切片数
func (s *VideoService) ListPending(ctx context.Context) ([]dto.VideoInfo, error) {
	videos, err := s.videos.List(ctx, repository.ListOptions{
		Statuses: []model.VideoStatus{
			model.VideoStatusPending, model.VideoStatusProcessing, model.VideoStatusError,
		},
		WithOwner: true,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		ids = append(ids, v.ID)
	}
	counts, err := s.segments.CountByVideos(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := toVideoInfos(videos)
	for i := range items {
		n := counts[items[i].ID]
		items[i].SegmentCount = &n
	}
	return items, nil
}

func (s *VideoService) getVideo(ctx context.Context, videoID string) (*model.Video, error) {
	video, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return video, nil
}

// toVideoInfo 将 model.Video 转换为 dto.VideoInfo
func toVideoInfo(video *model.Video) *dto.VideoInfo {
	info := &dto.VideoInfo{
		ID:              video.ID,
		OwnerID:         video.OwnerID,
		Title:           video.Title,
		Description:     video.Description,
		SourceURL:       video.SourceURL,
		PlaylistURL:     video.PlaylistURL,
		Size:            video.Size,
		MimeType:        video.MimeType,
		DurationSeconds: video.DurationSeconds,
		Status:          string(video.Status),
		CreatedAt:       video.CreatedAt,
		UpdatedAt:       video.UpdatedAt,
	}

	if video.Owner != nil {
		info.Owner = &dto.OwnerBrief{
			ID:    video.Owner.ID,
			Name:  video.Owner.Name,
			Email: video.Owner.Email,
		}
	}

	return info
}

func toVideoInfos(videos []model.Video) []dto.VideoInfo {
	items := make([]dto.VideoInfo, 0, len(videos))
	for i := range videos {
		items = append(items, *toVideoInfo(&videos[i]))
	}
	return items
}
