package transcode

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrTranscodeFailed 外部转码进程失败（非零退出、输入损坏、编码不支持、超时）
var ErrTranscodeFailed = errors.New("transcode failed")

// Result 一次切片产出：播放列表和按播放顺序排列的切片文件
type Result struct {
	PlaylistPath string
	SegmentPaths []string
}

// Engine 转码引擎适配器
type Engine interface {
	// ProbeDuration 返回媒体时长（秒）
	ProbeDuration(ctx context.Context, path string) (float64, error)
	// Segment 重新编码并切成固定时长的 TS 切片，输出到 outDir
	Segment(ctx context.Context, path, outDir string) (*Result, error)
}

// FailedError 携带外部进程诊断输出的转码错误，errors.Is(err, ErrTranscodeFailed) 为 true
type FailedError struct {
	Op     string
	Output string
	Err    error
}

func (e *FailedError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrTranscodeFailed, e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\noutput: " + tail(out, 2048)
	}
	return msg
}

func (e *FailedError) Unwrap() error { return e.Err }

func (e *FailedError) Is(target error) bool { return target == ErrTranscodeFailed }

// ffmpeg 的诊断信息很长，只保留末尾
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
