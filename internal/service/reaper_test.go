package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"vida-vod/internal/lease"
	"vida-vod/internal/model"
)

func TestReapOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stuck := env.upload(t)
	running := env.upload(t)
	waiting := env.upload(t)
	for _, id := range []string{stuck.ID, running.ID} {
		if err := env.videos.Transition(ctx, id, model.VideoStatusPending, model.VideoStatusProcessing); err != nil {
			t.Fatal(err)
		}
	}

	l, err := env.locker.Acquire(ctx, lease.VideoKey(running.ID), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Release(ctx)

	dispatcher := &recordingDispatcher{}
	reaper := NewReaper(env.videos, env.locker, dispatcher, time.Hour)

	// 阈值内的视频不受影响
	res, err := reaper.ReapOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 0 || res.Redispatched != 0 {
		t.Fatalf("Expected no action on fresh videos, got %+v", res)
	}

	reaper.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	res, err = reaper.ReapOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if res.Failed != 1 || res.Redispatched != 1 {
		t.Errorf("Expected 1 failed and 1 redispatched, got %+v", res)
	}
	if got := env.status(t, stuck.ID); got != model.VideoStatusError {
		t.Errorf("Expected stuck video to be ERROR, got %s", got)
	}
	if got := env.status(t, running.ID); got != model.VideoStatusProcessing {
		t.Errorf("Expected leased video to stay PROCESSING, got %s", got)
	}
	if got := env.status(t, waiting.ID); got != model.VideoStatusPending {
		t.Errorf("Expected waiting video to stay PENDING, got %s", got)
	}
	if ids := dispatcher.dispatched(); len(ids) != 1 || ids[0] != waiting.ID {
		t.Errorf("Expected %s to be redispatched, got %v", waiting.ID, ids)
	}
}

func TestReapOnceDispatchFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.upload(t)

	dispatcher := &recordingDispatcher{err: errors.New("broker down")}
	reaper := NewReaper(env.videos, env.locker, dispatcher, time.Minute)
	reaper.now = func() time.Time { return time.Now().Add(time.Hour) }

	res, err := reaper.ReapOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Redispatched != 0 {
		t.Errorf("Expected failed dispatch not to count, got %+v", res)
	}
}

func TestReaperRunStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	reaper := NewReaper(env.videos, env.locker, &recordingDispatcher{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		reaper.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Reaper did not stop after cancel")
	}
}
