// Package blob 定义对象存储的最小契约：按 key 存取删除不透明字节，并给出稳定的访问地址。
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("blob: object not found")

// Store 对象存储客户端
type Store interface {
	// Put 写入对象并返回其访问地址；size 未知时传 -1
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Get 读取对象，key 不存在时返回 ErrNotFound
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete 删除对象，key 不存在时返回 ErrNotFound
	Delete(ctx context.Context, key string) error
	// URL 返回 key 对应的访问地址，不访问网络
	URL(key string) string
}

// 允许出现在对象键里的扩展名，其余一律丢弃
var allowedExts = map[string]bool{
	".mp4": true, ".mov": true, ".mkv": true, ".avi": true,
	".webm": true, ".flv": true, ".m4v": true,
}

// NewSourceKey 为原始上传生成对象键：sources/<uuid><ext>。
// 文件名只用来取扩展名，防止覆盖和路径穿越。
func NewSourceKey(filename string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(filename, "\\", "/")))
	if !allowedExts[ext] {
		ext = ""
	}
	return "sources/" + uuid.NewString() + ext
}

// SegmentKey 切片对象键：<videoID>/<filename>
func SegmentKey(videoID, filename string) string {
	return videoID + "/" + path.Base(filename)
}

// PlaylistKey 播放列表对象键
func PlaylistKey(videoID string) string {
	return videoID + "/playlist.m3u8"
}

// DeleteIfExists 删除对象，对象本就不存在视为成功
func DeleteIfExists(ctx context.Context, s Store, key string) error {
	if err := s.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

// ContentTypeFor 根据对象键推断 Content-Type
func ContentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	default:
		return "application/octet-stream"
	}
}
