package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vida-vod/internal/model"
	"vida-vod/pkg/logger"

	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

// videosIndexMapping videos 索引只收录 READY 视频，用于标题/描述全文检索
const videosIndexMapping = `{
	"settings": {
		"number_of_shards": 1,
		"number_of_replicas": 0
	},
	"mappings": {
		"properties": {
			"id": {"type": "keyword"},
			"owner_id": {"type": "keyword"},
			"owner_name": {"type": "keyword"},
			"title": {
				"type": "text",
				"fields": {"keyword": {"type": "keyword", "ignore_above": 200}}
			},
			"description": {"type": "text"},
			"duration_seconds": {"type": "float"},
			"created_at": {"type": "date", "format": "strict_date_optional_time||epoch_millis"}
		}
	}
}`

// VideoDoc ES 视频文档
type VideoDoc struct {
	ID              string  `json:"id"`
	OwnerID         string  `json:"owner_id"`
	OwnerName       string  `json:"owner_name"`
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	DurationSeconds float64 `json:"duration_seconds"`
	CreatedAt       string  `json:"created_at"`
}

// NewVideoDoc 将视频记录转换为索引文档
func NewVideoDoc(v *model.Video) *VideoDoc {
	doc := &VideoDoc{
		ID:              v.ID,
		OwnerID:         v.OwnerID,
		Title:           v.Title,
		Description:     v.Description,
		DurationSeconds: v.DurationSeconds,
		CreatedAt:       v.CreatedAt.UTC().Format(time.RFC3339),
	}
	if v.Owner != nil {
		doc.OwnerName = v.Owner.Name
	}
	return doc
}

// VideoIndex READY 视频的搜索索引
type VideoIndex struct {
	client *elasticsearch.Client
	index  string
}

func NewVideoIndex(client *elasticsearch.Client, index string) *VideoIndex {
	if index == "" {
		index = "videos"
	}
	return &VideoIndex{client: client, index: index}
}

// EnsureIndex 确保索引存在，不存在则创建
func (x *VideoIndex) EnsureIndex(ctx context.Context) error {
	resp, err := x.client.Indices.Exists([]string{x.index}, x.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		logger.Info("Elasticsearch videos index already exists", zap.String("index", x.index))
		return nil
	}

	resp, err = x.client.Indices.Create(
		x.index,
		x.client.Indices.Create.WithContext(ctx),
		x.client.Indices.Create.WithBody(strings.NewReader(videosIndexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return fmt.Errorf("create index failed: %s", resp.String())
	}

	logger.Info("Elasticsearch videos index created", zap.String("index", x.index))
	return nil
}

// IndexVideo 写入或覆盖一个视频文档
func (x *VideoIndex) IndexVideo(ctx context.Context, v *model.Video) error {
	body, err := json.Marshal(NewVideoDoc(v))
	if err != nil {
		return err
	}

	resp, err := x.client.Index(
		x.index,
		bytes.NewReader(body),
		x.client.Index.WithContext(ctx),
		x.client.Index.WithDocumentID(v.ID),
	)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return fmt.Errorf("index document failed: %s", resp.String())
	}

	logger.Debug("Video synced to ES", logger.VideoID(v.ID))
	return nil
}

// DeleteVideo 删除视频文档，文档不存在视为成功
func (x *VideoIndex) DeleteVideo(ctx context.Context, videoID string) error {
	resp, err := x.client.Delete(x.index, videoID, x.client.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.IsError() && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete document failed: %s", resp.String())
	}
	return nil
}

// SearchIDs 按相关度返回匹配的视频 ID
func (x *VideoIndex) SearchIDs(ctx context.Context, q string, limit int) ([]string, error) {
	body, err := json.Marshal(buildSearchQuery(q, limit))
	if err != nil {
		return nil, err
	}

	resp, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.index),
		x.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("ES search error: %s", resp.String())
	}

	var esResp struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&esResp); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(esResp.Hits.Hits))
	for _, h := range esResp.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func buildSearchQuery(q string, limit int) map[string]interface{} {
	return map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":    strings.TrimSpace(q),
				"fields":   []string{"title^3", "description^1"},
				"type":     "best_fields",
				"operator": "or",
			},
		},
		"_source": false,
		"size":    limit,
		"sort": []interface{}{
			map[string]interface{}{"_score": map[string]string{"order": "desc"}},
			map[string]interface{}{"created_at": map[string]string{"order": "desc"}},
		},
	}
}
