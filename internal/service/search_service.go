package service

import (
	"context"
	"strings"

	"vida-vod/internal/api/dto"
	"vida-vod/internal/model"
	"vida-vod/internal/repository"
	"vida-vod/pkg/logger"

	"go.uber.org/zap"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type SearchService struct {
	videoRepo *repository.VideoRepository
	index     VideoIndexer
}

// NewSearchService index 为 nil 时直接走数据库
func NewSearchService(videoRepo *repository.VideoRepository, index VideoIndexer) *SearchService {
	return &SearchService{videoRepo: videoRepo, index: index}
}

// SearchVideos 搜索已就绪视频（ES 优先，失败则降级到 DB）
func (s *SearchService) SearchVideos(ctx context.Context, req *dto.SearchVideoRequest) (*dto.SearchVideoData, error) {
	q := strings.TrimSpace(req.Q)
	limit := req.Limit
	if limit < 1 || limit > maxSearchLimit {
		limit = defaultSearchLimit
	}

	if q == "" {
		return &dto.SearchVideoData{Videos: []dto.VideoInfo{}, Source: "db"}, nil
	}

	if s.index != nil {
		data, err := s.searchFromES(ctx, q, limit)
		if err == nil {
			return data, nil
		}
		logger.Warn("ES search failed, fallback to DB", zap.Error(err))
	}
	return s.searchFromDB(ctx, q, limit)
}

func (s *SearchService) searchFromES(ctx context.Context, q string, limit int) (*dto.SearchVideoData, error) {
	ids, err := s.index.SearchIDs(ctx, q, limit)
	if err != nil {
		return nil, err
	}

	// 索引可能滞后于数据库：只保留仍然存在且 READY 的视频
	videos, err := s.videoRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	items := make([]dto.VideoInfo, 0, len(videos))
	for i := range videos {
		if videos[i].Status == model.VideoStatusReady {
			items = append(items, *toVideoInfo(&videos[i]))
		}
	}
	return &dto.SearchVideoData{Videos: items, Source: "es"}, nil
}

func (s *SearchService) searchFromDB(ctx context.Context, q string, limit int) (*dto.SearchVideoData, error) {
	videos, err := s.videoRepo.SearchReady(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	return &dto.SearchVideoData{Videos: toVideoInfos(videos), Source: "db"}, nil
}
