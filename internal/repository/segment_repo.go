package repository

import (
	"context"

	"vida-vod/internal/model"

	"gorm.io/gorm"
)

type SegmentRepository struct {
	db *gorm.DB
}

func NewSegmentRepository(db *gorm.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// 单条 INSERT 的切片行数上限
const segmentBatchSize = 100

// CreateSegments 在一个事务里登记一次转码的全部切片，要么全部写入要么都不写。(video_id, index) 唯一
func (r *SegmentRepository) CreateSegments(ctx context.Context, segs []model.Segment) error {
	if len(segs) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(segs, segmentBatchSize).Error
	}))
}

// ListByVideo 按 index 升序返回视频的全部切片
func (r *SegmentRepository) ListByVideo(ctx context.Context, videoID string) ([]model.Segment, error) {
	var segs []model.Segment
	err := r.db.WithContext(ctx).
		Where("video_id = ?", videoID).
		Order("seq ASC").
		Find(&segs).Error
	if err != nil {
		return nil, err
	}
	return segs, nil
}

// CountByVideos 批量统计切片数量
func (r *SegmentRepository) CountByVideos(ctx context.Context, videoIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(videoIDs))
	if len(videoIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		VideoID string
		Total   int64
	}
	err := r.db.WithContext(ctx).Model(&model.Segment{}).
		Select("video_id, COUNT(*) AS total").
		Where("video_id IN ?", videoIDs).
		Group("video_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.VideoID] = row.Total
	}
	return counts, nil
}
