package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vida-vod/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VideoRepository 目录网关：视频记录的读写与状态迁移。
// 所有状态写入都是 CAS（WHERE status = 期望值），并发写入者之间不会回退状态。
type VideoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create 创建视频记录，owner 不存在时返回 ErrOwnerNotFound
func (r *VideoRepository) Create(ctx context.Context, video *model.Video) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(video).Error)
}

// GetByID 根据 ID 获取视频
func (r *VideoRepository) GetByID(ctx context.Context, id string) (*model.Video, error) {
	var video model.Video
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&video).Error; err != nil {
		return nil, translate(err)
	}
	return &video, nil
}

// GetByIDs 批量获取视频（含上传者），按 ids 的顺序返回，缺失的跳过
func (r *VideoRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Video, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var videos []model.Video
	if err := r.db.WithContext(ctx).Preload("Owner").Where("id IN ?", ids).Find(&videos).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]model.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	ordered := make([]model.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered, nil
}

// ListOptions 列表查询条件
type ListOptions struct {
	OwnerID   string
	Statuses  []model.VideoStatus
	WithOwner bool
}

// List 按创建时间倒序列出视频
func (r *VideoRepository) List(ctx context.Context, opts ListOptions) ([]model.Video, error) {
	query := r.db.WithContext(ctx).Model(&model.Video{})
	if opts.OwnerID != "" {
		query = query.Where("owner_id = ?", opts.OwnerID)
	}
	if len(opts.Statuses) > 0 {
		query = query.Where("status IN ?", opts.Statuses)
	}
	if opts.WithOwner {
		query = query.Preload("Owner")
	}

	var videos []model.Video
	if err := query.Order("created_at DESC").Find(&videos).Error; err != nil {
		return nil, err
	}
	return videos, nil
}

// SearchReady 数据库兜底搜索：标题或描述包含关键字的 READY 视频
func (r *VideoRepository) SearchReady(ctx context.Context, q string, limit int) ([]model.Video, error) {
	pattern := "%" + strings.ToLower(escapeLike(q)) + "%"

	var videos []model.Video
	err := r.db.WithContext(ctx).Preload("Owner").
		Where("status = ?", model.VideoStatusReady).
		Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&videos).Error
	if err != nil {
		return nil, err
	}
	return videos, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// UpdateMetadata 更新标题/描述，不触碰状态字段
func (r *VideoRepository) UpdateMetadata(ctx context.Context, id string, title string, description *string) (*model.Video, error) {
	updates := map[string]interface{}{
		"title":      title,
		"updated_at": time.Now(),
	}
	if description != nil {
		updates["description"] = *description
	}

	result := r.db.WithContext(ctx).Model(&model.Video{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Transition 状态迁移 CAS：仅当当前状态为 from 时写入 to
func (r *VideoRepository) Transition(ctx context.Context, id string, from, to model.VideoStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s is not a valid transition", ErrStatusConflict, from, to)
	}
	return r.casUpdate(ctx, id, from, map[string]interface{}{"status": to})
}

// MarkReady PROCESSING → READY，时长与播放列表地址与状态在同一条 UPDATE 中写入
func (r *VideoRepository) MarkReady(ctx context.Context, id string, durationSeconds float64, playlistURL string) error {
	return r.casUpdate(ctx, id, model.VideoStatusProcessing, map[string]interface{}{
		"status":           model.VideoStatusReady,
		"duration_seconds": durationSeconds,
		"playlist_url":     playlistURL,
	})
}

func (r *VideoRepository) casUpdate(ctx context.Context, id string, from model.VideoStatus, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&model.Video{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}
	return r.missOrConflict(ctx, id)
}

// RowsAffected 为 0 时区分记录不存在和状态不符
func (r *VideoRepository) missOrConflict(ctx context.Context, id string) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: video %s is %s", ErrStatusConflict, id, current.Status)
}

// Delete 在一个事务中删除切片和视频记录，仅当视频当前状态属于 allowed。
// 返回被删除的视频和切片，供调用方清理对象存储。
func (r *VideoRepository) Delete(ctx context.Context, id string, allowed ...model.VideoStatus) (*model.Video, []model.Segment, error) {
	if len(allowed) == 0 {
		return nil, nil, errors.New("delete requires at least one allowed status")
	}

	var (
		video    model.Video
		segments []model.Segment
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&video).Error; err != nil {
			return translate(err)
		}
		if err := tx.Where("video_id = ?", id).Order("seq ASC").Find(&segments).Error; err != nil {
			return err
		}
		if err := tx.Where("video_id = ?", id).Delete(&model.Segment{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ? AND status IN ?", id, allowed).Delete(&model.Video{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// 读取之后状态被并发修改，或本身就不允许删除
			return ErrStatusConflict
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrStatusConflict) {
			return nil, nil, r.missOrConflict(ctx, id)
		}
		return nil, nil, err
	}
	return &video, segments, nil
}

// ListStale 返回处于 status 且 updated_at 早于 before 的视频
func (r *VideoRepository) ListStale(ctx context.Context, status model.VideoStatus, before time.Time) ([]model.Video, error) {
	var videos []model.Video
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, before).
		Order("updated_at ASC").
		Find(&videos).Error
	if err != nil {
		return nil, err
	}
	return videos, nil
}

// Touch 刷新 updated_at，用于重新投递 PENDING 任务后重置巡检计时
func (r *VideoRepository) Touch(ctx context.Context, id string, status model.VideoStatus) error {
	return r.casUpdate(ctx, id, status, map[string]interface{}{})
}
