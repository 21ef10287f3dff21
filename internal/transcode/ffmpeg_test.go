package transcode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const fakePlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-PLAYLIST-TYPE:VOD
#EXTINF:10.000000,
segment000.ts
#EXTINF:2.500000,
segment001.ts
#EXT-X-ENDLIST
`

// writeScript 在临时目录写一个假的可执行文件
func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes require a POSIX shell")
	}
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatalf("Failed to write fake %s: %v", name, err)
	}
	return p
}

// fakeFFmpeg 把播放列表写到最后一个参数，切片写到同一目录；
// 和真实的 HLS muxer 一样，目录不存在时失败
func fakeFFmpeg(t *testing.T, playlistBody string, segments ...string) string {
	var b strings.Builder
	b.WriteString("for last; do :; done\n")
	b.WriteString("dir=$(dirname \"$last\")\n")
	b.WriteString("[ -d \"$dir\" ] || { echo \"cannot create $dir: Directory nonexistent\" >&2; exit 2; }\n")
	for _, s := range segments {
		b.WriteString("printf 'data' > \"$dir/" + s + "\"\n")
	}
	b.WriteString("cat > \"$last\" <<'EOP'\n" + playlistBody + "EOP\n")
	return writeScript(t, "ffmpeg", b.String())
}

func TestNewFFmpegDefaults(t *testing.T) {
	f := NewFFmpeg("", "", 0, 0)

	if f.FFmpegPath != "ffmpeg" {
		t.Errorf("Expected FFmpegPath=ffmpeg, got %s", f.FFmpegPath)
	}
	if f.FFprobePath != "ffprobe" {
		t.Errorf("Expected FFprobePath=ffprobe, got %s", f.FFprobePath)
	}
	if f.SegmentSeconds != 10 {
		t.Errorf("Expected SegmentSeconds=10, got %d", f.SegmentSeconds)
	}
}

func TestProbeDuration(t *testing.T) {
	probe := writeScript(t, "ffprobe", `echo '{"format":{"filename":"in.mp4","duration":"5.005000"}}'`)
	f := NewFFmpeg("", probe, 10, time.Minute)

	d, err := f.ProbeDuration(context.Background(), "in.mp4")
	if err != nil {
		t.Fatalf("ProbeDuration() error = %v", err)
	}
	if d != 5.005 {
		t.Errorf("Expected duration 5.005, got %f", d)
	}
}

func TestProbeDurationFailures(t *testing.T) {
	tests := []struct {
		name   string
		script string
		output string
	}{
		{"NonZeroExit", "echo 'in.mp4: Invalid data found when processing input' >&2\nexit 1", "Invalid data found"},
		{"NoDuration", `echo '{"format":{}}'`, ""},
		{"NotJSON", "echo nonsense", "nonsense"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFFmpeg("", writeScript(t, "ffprobe", tt.script), 10, time.Minute)

			_, err := f.ProbeDuration(context.Background(), "in.mp4")
			if !errors.Is(err, ErrTranscodeFailed) {
				t.Fatalf("Expected ErrTranscodeFailed, got %v", err)
			}

			var failed *FailedError
			if !errors.As(err, &failed) {
				t.Fatalf("Expected *FailedError, got %T", err)
			}
			if failed.Op != "ffprobe" {
				t.Errorf("Expected Op=ffprobe, got %s", failed.Op)
			}
			if tt.output != "" && !strings.Contains(failed.Output, tt.output) {
				t.Errorf("Expected output to contain %q, got %q", tt.output, failed.Output)
			}
		})
	}
}

func TestSegment(t *testing.T) {
	f := NewFFmpeg(fakeFFmpeg(t, fakePlaylist, "segment000.ts", "segment001.ts"), "", 10, time.Minute)
	outDir := t.TempDir()

	res, err := f.Segment(context.Background(), "in.mp4", outDir)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}

	if res.PlaylistPath != filepath.Join(outDir, "playlist.m3u8") {
		t.Errorf("Unexpected playlist path %s", res.PlaylistPath)
	}

	want := []string{
		filepath.Join(outDir, "segment000.ts"),
		filepath.Join(outDir, "segment001.ts"),
	}
	if len(res.SegmentPaths) != len(want) {
		t.Fatalf("Expected %d segments, got %d", len(want), len(res.SegmentPaths))
	}
	for i := range want {
		if res.SegmentPaths[i] != want[i] {
			t.Errorf("segment %d: expected %s, got %s", i, want[i], res.SegmentPaths[i])
		}
	}
}

func TestSegmentCreatesOutputDir(t *testing.T) {
	f := NewFFmpeg(fakeFFmpeg(t, fakePlaylist, "segment000.ts", "segment001.ts"), "", 10, time.Minute)
	outDir := filepath.Join(t.TempDir(), "work", "hls")

	res, err := f.Segment(context.Background(), "in.mp4", outDir)
	if err != nil {
		t.Fatalf("Segment() error = %v", err)
	}
	if info, err := os.Stat(outDir); err != nil || !info.IsDir() {
		t.Fatalf("Expected output dir %s to exist, stat err = %v", outDir, err)
	}
	if len(res.SegmentPaths) != 2 {
		t.Errorf("Expected 2 segments, got %d", len(res.SegmentPaths))
	}
}

func TestSegmentOutputDirNotCreatable(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewFFmpeg(fakeFFmpeg(t, fakePlaylist, "segment000.ts"), "", 10, time.Minute)

	_, err := f.Segment(context.Background(), "in.mp4", filepath.Join(blocker, "hls"))
	if !errors.Is(err, ErrTranscodeFailed) {
		t.Fatalf("Expected ErrTranscodeFailed, got %v", err)
	}
}

func TestSegmentFailures(t *testing.T) {
	tests := []struct {
		name   string
		ffmpeg func(t *testing.T) string
	}{
		{"NonZeroExit", func(t *testing.T) string {
			return writeScript(t, "ffmpeg", "echo 'moov atom not found' >&2\nexit 1")
		}},
		{"MissingSegment", func(t *testing.T) string {
			return fakeFFmpeg(t, fakePlaylist, "segment000.ts")
		}},
		{"EmptyPlaylist", func(t *testing.T) string {
			return fakeFFmpeg(t, "#EXTM3U\n#EXT-X-ENDLIST\n")
		}},
		{"NoPlaylist", func(t *testing.T) string {
			return writeScript(t, "ffmpeg", "exit 0")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFFmpeg(tt.ffmpeg(t), "", 10, time.Minute)

			res, err := f.Segment(context.Background(), "in.mp4", t.TempDir())
			if !errors.Is(err, ErrTranscodeFailed) {
				t.Fatalf("Expected ErrTranscodeFailed, got %v", err)
			}
			if res != nil {
				t.Errorf("Expected nil result on failure, got %+v", res)
			}
		})
	}
}

func TestSegmentCarriesDiagnostics(t *testing.T) {
	f := NewFFmpeg(writeScript(t, "ffmpeg", "echo 'moov atom not found' >&2\nexit 1"), "", 10, time.Minute)

	_, err := f.Segment(context.Background(), "in.mp4", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "moov atom not found") {
		t.Errorf("Expected diagnostic output in error, got %v", err)
	}
}

func TestSegmentTimeout(t *testing.T) {
	f := NewFFmpeg(writeScript(t, "ffmpeg", "exec sleep 10"), "", 10, 200*time.Millisecond)

	start := time.Now()
	_, err := f.Segment(context.Background(), "in.mp4", t.TempDir())
	if !errors.Is(err, ErrTranscodeFailed) {
		t.Fatalf("Expected ErrTranscodeFailed, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded in chain, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 8*time.Second {
		t.Errorf("Timeout not enforced, took %v", elapsed)
	}
}

func TestFailedErrorTruncatesOutput(t *testing.T) {
	err := &FailedError{Op: "ffmpeg", Output: strings.Repeat("x", 5000), Err: errors.New("exit status 1")}

	msg := err.Error()
	if len(msg) > 2200 {
		t.Errorf("Expected truncated message, got %d bytes", len(msg))
	}
	if !strings.HasPrefix(msg, "transcode failed: ffmpeg: exit status 1") {
		t.Errorf("Unexpected message prefix: %.60s", msg)
	}
}
