package lease

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalAcquireRelease(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	lease, err := l.Acquire(ctx, VideoKey("v1"), time.Minute)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if _, err := l.Acquire(ctx, VideoKey("v1"), time.Minute); !errors.Is(err, ErrHeld) {
		t.Errorf("Expected ErrHeld, got %v", err)
	}
	if held, _ := l.Held(ctx, VideoKey("v1")); !held {
		t.Error("Expected lease to be held")
	}
	if held, _ := l.Held(ctx, VideoKey("v2")); held {
		t.Error("Expected unrelated key to be free")
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	// 重复释放无副作用
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("second Release() error = %v", err)
	}

	if held, _ := l.Held(ctx, VideoKey("v1")); held {
		t.Error("Expected lease to be released")
	}
	if _, err := l.Acquire(ctx, VideoKey("v1"), time.Minute); err != nil {
		t.Errorf("Expected re-acquire to succeed, got %v", err)
	}
}

func TestLocalStaleReleaseKeepsNewHolder(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	first, err := l.Acquire(ctx, "k", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	_ = first.Release(ctx)

	if _, err := l.Acquire(ctx, "k", time.Minute); err != nil {
		t.Fatalf("Expected re-acquire, got %v", err)
	}

	_ = first.Release(ctx)
	if held, _ := l.Held(ctx, "k"); !held {
		t.Error("Old lease release must not drop the new holder's lease")
	}
}
