package service

import (
	"context"
	"errors"
	"testing"

	"vida-vod/internal/api/dto"
	"vida-vod/internal/model"
)

type stubIndex struct {
	ids     []string
	err     error
	indexed []string
	deleted []string
}

func (x *stubIndex) IndexVideo(ctx context.Context, v *model.Video) error {
	x.indexed = append(x.indexed, v.ID)
	return nil
}

func (x *stubIndex) DeleteVideo(ctx context.Context, videoID string) error {
	x.deleted = append(x.deleted, videoID)
	return nil
}

func (x *stubIndex) SearchIDs(ctx context.Context, q string, limit int) ([]string, error) {
	return x.ids, x.err
}

func TestSearchVideos(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ready := env.upload(t)
	if err := env.svc.Process(ctx, ready.ID); err != nil {
		t.Fatal(err)
	}
	pending := env.upload(t)

	t.Run("db only", func(t *testing.T) {
		s := NewSearchService(env.videos, nil)
		data, err := s.SearchVideos(ctx, &dto.SearchVideoRequest{Q: "CLI"})
		if err != nil {
			t.Fatal(err)
		}
		if data.Source != "db" || len(data.Videos) != 1 || data.Videos[0].ID != ready.ID {
			t.Errorf("Expected only the READY match from db, got %+v", data)
		}
	})

	t.Run("es hits filtered to ready", func(t *testing.T) {
		idx := &stubIndex{ids: []string{pending.ID, ready.ID, "gone"}}
		s := NewSearchService(env.videos, idx)
		data, err := s.SearchVideos(ctx, &dto.SearchVideoRequest{Q: "clip", Limit: 5})
		if err != nil {
			t.Fatal(err)
		}
		if data.Source != "es" || len(data.Videos) != 1 || data.Videos[0].ID != ready.ID {
			t.Errorf("Expected es result with only READY video, got %+v", data)
		}
	})

	t.Run("es failure falls back", func(t *testing.T) {
		s := NewSearchService(env.videos, &stubIndex{err: errors.New("es down")})
		data, err := s.SearchVideos(ctx, &dto.SearchVideoRequest{Q: "clip"})
		if err != nil {
			t.Fatal(err)
		}
		if data.Source != "db" || len(data.Videos) != 1 {
			t.Errorf("Expected db fallback, got %+v", data)
		}
	})

	t.Run("blank query", func(t *testing.T) {
		s := NewSearchService(env.videos, nil)
		data, err := s.SearchVideos(ctx, &dto.SearchVideoRequest{Q: "  "})
		if err != nil || len(data.Videos) != 0 {
			t.Errorf("Expected empty result, got %+v (%v)", data, err)
		}
	})
}

func TestIndexFollowsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	idx := &stubIndex{}
	env.svc.index = idx

	info := env.upload(t)
	if err := env.svc.Process(ctx, info.ID); err != nil {
		t.Fatal(err)
	}
	if len(idx.indexed) != 1 || idx.indexed[0] != info.ID {
		t.Errorf("Expected READY video to be indexed, got %v", idx.indexed)
	}

	if _, err := env.svc.Update(ctx, owner, info.ID, &dto.VideoUpdateRequest{Title: "renamed"}); err != nil {
		t.Fatal(err)
	}
	if len(idx.indexed) != 2 {
		t.Errorf("Expected update to reindex, got %v", idx.indexed)
	}

	if err := env.svc.Delete(ctx, owner, info.ID); err != nil {
		t.Fatal(err)
	}
	if len(idx.deleted) != 1 || idx.deleted[0] != info.ID {
		t.Errorf("Expected delete to unindex, got %v", idx.deleted)
	}
}
