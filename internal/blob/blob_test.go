package blob_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"vida-vod/internal/blob"
	"vida-vod/internal/blob/blobtest"

	"github.com/google/uuid"
)

func TestNewSourceKey(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantExt  string
	}{
		{"Plain", "clip.mp4", ".mp4"},
		{"UpperCase", "CLIP.MOV", ".mov"},
		{"Traversal", "../../etc/passwd.mp4", ".mp4"},
		{"BackslashTraversal", `a\..\b.MP4`, ".mp4"},
		{"DisallowedExt", "x.exe", ""},
		{"NoExt", "video", ""},
		{"Empty", "", ""},
		{"DoubleExt", "clip.mp4.sh", ""},
		{"HiddenTraversal", "../../../.webm", ".webm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := blob.NewSourceKey(tt.filename)

			rest, ok := strings.CutPrefix(key, "sources/")
			if !ok {
				t.Fatalf("key %q missing sources/ prefix", key)
			}
			id, ext := rest, ""
			if i := strings.IndexByte(rest, '.'); i >= 0 {
				id, ext = rest[:i], rest[i:]
			}
			if _, err := uuid.Parse(id); err != nil {
				t.Errorf("key %q: %q is not a uuid: %v", key, id, err)
			}
			if ext != tt.wantExt {
				t.Errorf("key %q: ext = %q, want %q", key, ext, tt.wantExt)
			}
			if strings.Contains(key, "..") || strings.Contains(key, `\`) || strings.Count(key, "/") != 1 {
				t.Errorf("key %q carries path components from the filename", key)
			}
		})
	}
}

func TestNewSourceKeyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		key := blob.NewSourceKey("clip.mp4")
		if seen[key] {
			t.Fatalf("duplicate key %s", key)
		}
		seen[key] = true
	}
}

func TestSegmentAndPlaylistKeys(t *testing.T) {
	if got := blob.SegmentKey("vid", "segment000.ts"); got != "vid/segment000.ts" {
		t.Errorf("SegmentKey = %q", got)
	}
	if got := blob.SegmentKey("vid", "../other/segment000.ts"); got != "vid/segment000.ts" {
		t.Errorf("SegmentKey should keep only the base name, got %q", got)
	}
	if got := blob.PlaylistKey("vid"); got != "vid/playlist.m3u8" {
		t.Errorf("PlaylistKey = %q", got)
	}
}

// errStore Delete 固定返回 err
type errStore struct {
	err error
}

func (s errStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	return "", s.err
}
func (s errStore) Get(ctx context.Context, key string) (io.ReadCloser, error) { return nil, s.err }
func (s errStore) Delete(ctx context.Context, key string) error               { return s.err }
func (s errStore) URL(key string) string                                      { return key }

func TestDeleteIfExists(t *testing.T) {
	ctx := context.Background()

	store := blobtest.New()
	if _, err := store.Put(ctx, "a", strings.NewReader("x"), 1, "text/plain"); err != nil {
		t.Fatal(err)
	}
	if err := blob.DeleteIfExists(ctx, store, "a"); err != nil {
		t.Errorf("existing key: %v", err)
	}
	if _, ok := store.Object("a"); ok {
		t.Error("object should be gone")
	}
	if err := blob.DeleteIfExists(ctx, store, "a"); err != nil {
		t.Errorf("missing key should count as success, got %v", err)
	}

	wrapped := errStore{err: errors.Join(errors.New("minio: NoSuchKey"), blob.ErrNotFound)}
	if err := blob.DeleteIfExists(ctx, wrapped, "k"); err != nil {
		t.Errorf("wrapped ErrNotFound should count as success, got %v", err)
	}

	boom := errors.New("connection refused")
	if err := blob.DeleteIfExists(ctx, errStore{err: boom}, "k"); !errors.Is(err, boom) {
		t.Errorf("Expected other errors to propagate, got %v", err)
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"vid/playlist.m3u8", "application/vnd.apple.mpegurl"},
		{"vid/segment000.ts", "video/mp2t"},
		{"sources/x.mp4", "video/mp4"},
		{"sources/x.M4V", "video/mp4"},
		{"sources/x.webm", "video/webm"},
		{"sources/x.mov", "video/quicktime"},
		{"sources/x.mkv", "application/octet-stream"},
		{"sources/x", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := blob.ContentTypeFor(tt.key); got != tt.want {
				t.Errorf("ContentTypeFor(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
