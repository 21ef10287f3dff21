// Package publish 把一次成功转码的产物发布到对象存储并登记切片记录。
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vida-vod/internal/blob"
	"vida-vod/internal/metrics"
	"vida-vod/internal/model"
	"vida-vod/internal/playlist"
	"vida-vod/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 失败后清理已上传对象的超时，不受调用方取消影响
const discardTimeout = 30 * time.Second

// ErrNoSegments 没有可发布的切片
var ErrNoSegments = errors.New("publish: no segments")

// SegmentWriter 一次性登记全部切片记录
type SegmentWriter interface {
	CreateSegments(ctx context.Context, segs []model.Segment) error
}

// Publisher 切片发布器
type Publisher struct {
	store    blob.Store
	segments SegmentWriter
	// nominal 播放列表里没有 #EXTINF 时使用的切片时长
	nominal float64
}

func NewPublisher(store blob.Store, segments SegmentWriter, nominalSeconds float64) *Publisher {
	if nominalSeconds <= 0 {
		nominalSeconds = 10
	}
	return &Publisher{store: store, segments: segments, nominal: nominalSeconds}
}

// Publish 按 segmentPaths 的顺序上传切片，index 取数组下标；
// 再把播放列表里的文件名改写为切片地址并上传，最后一次性登记全部切片记录，返回播放列表地址。
// 任一步失败都不写切片记录，并尽力删除本次已上传的对象。
func (p *Publisher) Publish(ctx context.Context, videoID, playlistPath string, segmentPaths []string) (string, error) {
	if len(segmentPaths) == 0 {
		return "", ErrNoSegments
	}

	raw, err := os.ReadFile(playlistPath)
	if err != nil {
		return "", fmt.Errorf("read playlist: %w", err)
	}
	text := string(raw)

	durations := make(map[string]float64)
	if entries, err := playlist.Parse(text); err == nil {
		for _, e := range entries {
			durations[filepath.Base(e.URI)] = e.DurationSeconds
		}
	} else {
		logger.Warn("Playlist not parseable, using nominal segment durations",
			logger.VideoID(videoID), zap.Error(err))
	}

	var uploaded []string
	fail := func(err error) (string, error) {
		p.discard(ctx, videoID, uploaded)
		return "", err
	}

	urls := make(map[string]string, len(segmentPaths))
	segs := make([]model.Segment, 0, len(segmentPaths))
	for i, segPath := range segmentPaths {
		name := filepath.Base(segPath)
		if _, dup := urls[name]; dup {
			return fail(fmt.Errorf("publish: duplicate segment filename %s", name))
		}

		key := blob.SegmentKey(videoID, name)
		url, err := p.uploadFile(ctx, key, segPath)
		if err != nil {
			return fail(fmt.Errorf("upload segment %d (%s): %w", i, name, err))
		}
		uploaded = append(uploaded, key)

		duration := durations[name]
		if duration <= 0 {
			duration = p.nominal
		}

		segs = append(segs, model.Segment{
			ID:              uuid.NewString(),
			VideoID:         videoID,
			Index:           i,
			Filename:        name,
			URL:             url,
			DurationSeconds: duration,
		})
		urls[name] = url
	}

	rewritten := playlist.Rewrite(text, urls)
	key := blob.PlaylistKey(videoID)
	playlistURL, err := p.store.Put(ctx, key, strings.NewReader(rewritten), int64(len(rewritten)), blob.ContentTypeFor(key))
	if err != nil {
		return fail(fmt.Errorf("upload playlist: %w", err))
	}
	uploaded = append(uploaded, key)

	if err := p.segments.CreateSegments(ctx, segs); err != nil {
		return fail(fmt.Errorf("record segments: %w", err))
	}
	metrics.SegmentsPublished.Add(float64(len(segs)))

	logger.Info("Segments published",
		logger.VideoID(videoID),
		zap.Int("segments", len(segs)),
		zap.String("playlist_url", playlistURL),
	)

	return playlistURL, nil
}

// discard 删除一次失败发布中已上传的对象，失败只记录
func (p *Publisher) discard(ctx context.Context, videoID string, keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), discardTimeout)
	defer cancel()
	for _, key := range keys {
		if err := blob.DeleteIfExists(ctx, p.store, key); err != nil {
			metrics.CleanupFailuresTotal.Inc()
			logger.Warn("Failed to discard published object",
				logger.VideoID(videoID), zap.String("key", key), zap.Error(err))
		}
	}
}

func (p *Publisher) uploadFile(ctx context.Context, key, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	return p.store.Put(ctx, key, f, info.Size(), blob.ContentTypeFor(key))
}
