package transcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"vida-vod/internal/playlist"
	"vida-vod/pkg/logger"

	"go.uber.org/zap"
)

const (
	playlistName   = "playlist.m3u8"
	segmentPattern = "segment%03d.ts"
)

// FFmpeg 通过 ffmpeg/ffprobe 可执行文件实现 Engine
type FFmpeg struct {
	FFmpegPath     string
	FFprobePath    string
	SegmentSeconds int
	// Timeout 限制单次外部进程运行时长，0 表示只受调用方 ctx 约束
	Timeout time.Duration
}

var _ Engine = (*FFmpeg)(nil)

// NewFFmpeg 创建适配器，空值使用 PATH 中的 ffmpeg/ffprobe 和 10 秒切片
func NewFFmpeg(ffmpegPath, ffprobePath string, segmentSeconds int, timeout time.Duration) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if segmentSeconds <= 0 {
		segmentSeconds = 10
	}
	return &FFmpeg{
		FFmpegPath:     ffmpegPath,
		FFprobePath:    ffprobePath,
		SegmentSeconds: segmentSeconds,
		Timeout:        timeout,
	}
}

// ProbeDuration 读取容器级时长
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		path,
	}

	output, err := f.run(ctx, f.FFprobePath, args, false)
	if err != nil {
		return 0, &FailedError{Op: "ffprobe", Output: string(output), Err: err}
	}

	var data struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &data); err != nil {
		return 0, &FailedError{Op: "ffprobe", Output: string(output), Err: fmt.Errorf("decode probe output: %w", err)}
	}

	dur, err := strconv.ParseFloat(data.Format.Duration, 64)
	if err != nil || dur <= 0 {
		return 0, &FailedError{Op: "ffprobe", Output: string(output), Err: errors.New("no usable duration in probe output")}
	}
	return dur, nil
}

// Segment H.264 + AAC 重新编码并切成 HLS，切片顺序以生成的播放列表为准
func (f *FFmpeg) Segment(ctx context.Context, path, outDir string) (*Result, error) {
	// HLS muxer 不会创建输出目录
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, &FailedError{Op: "ffmpeg", Err: fmt.Errorf("create output dir: %w", err)}
	}

	playlistPath := filepath.Join(outDir, playlistName)
	args := []string{
		"-i", path,
		"-codec:v", "libx264",
		"-codec:a", "aac",
		"-hls_time", strconv.Itoa(f.SegmentSeconds),
		"-hls_list_size", "0",
		"-hls_playlist_type", "vod",
		"-hls_segment_filename", filepath.Join(outDir, segmentPattern),
		"-f", "hls",
		"-y",
		playlistPath,
	}

	output, err := f.run(ctx, f.FFmpegPath, args, true)
	if err != nil {
		return nil, &FailedError{Op: "ffmpeg", Output: string(output), Err: err}
	}

	text, err := os.ReadFile(playlistPath)
	if err != nil {
		return nil, &FailedError{Op: "ffmpeg", Output: string(output), Err: fmt.Errorf("read playlist: %w", err)}
	}
	entries, err := playlist.Parse(string(text))
	if err != nil {
		return nil, &FailedError{Op: "ffmpeg", Output: string(output), Err: err}
	}
	if len(entries) == 0 {
		return nil, &FailedError{Op: "ffmpeg", Output: string(output), Err: errors.New("no segments produced")}
	}

	segments := make([]string, 0, len(entries))
	for _, e := range entries {
		p := filepath.Join(outDir, filepath.Base(e.URI))
		if _, err := os.Stat(p); err != nil {
			return nil, &FailedError{Op: "ffmpeg", Output: string(output), Err: fmt.Errorf("missing segment %s: %w", e.URI, err)}
		}
		segments = append(segments, p)
	}

	logger.Info("FFmpeg segmentation completed",
		zap.String("playlist", playlistPath),
		zap.Int("segments", len(segments)),
	)

	return &Result{PlaylistPath: playlistPath, SegmentPaths: segments}, nil
}

// run 执行外部进程；combined 为 false 时只返回 stdout，失败时再附上 stderr
func (f *FFmpeg) run(ctx context.Context, bin string, args []string, combined bool) ([]byte, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.WaitDelay = 5 * time.Second

	var (
		output []byte
		err    error
	)
	if combined {
		output, err = cmd.CombinedOutput()
	} else {
		output, err = cmd.Output()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			output = append(output, exitErr.Stderr...)
		}
	}

	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		return output, fmt.Errorf("%s timed out or was cancelled: %w", filepath.Base(bin), ctxErr)
	}
	return output, err
}
