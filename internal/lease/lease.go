// Package lease 提供按 key 的独占租约：转码流水线运行期间持有，巡检据此判断任务是否还活着。
package lease

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHeld 租约已被其他持有者占用
var ErrHeld = errors.New("lease: already held")

// Lease 已获得的租约
type Lease interface {
	Release(ctx context.Context) error
}

// Locker 租约管理
type Locker interface {
	// Acquire 获取租约；已被占用返回 ErrHeld。ttl 只是崩溃兜底，持有者需要在结束时 Release
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
	// Held 租约当前是否被任何人持有
	Held(ctx context.Context, key string) (bool, error)
}

// VideoKey 视频流水线的租约 key
func VideoKey(videoID string) string {
	return "vida:lease:video:" + videoID
}

// Local 进程内实现，单实例部署或测试使用。
// 租约表随进程消亡，所以不按 ttl 过期：进程崩溃后新进程看到的一定是空表。
type Local struct {
	mu   sync.Mutex
	held map[string]uint64
	gen  uint64
}

func NewLocal() *Local {
	return &Local{held: make(map[string]uint64)}
}

func (l *Local) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrHeld
	}
	l.gen++
	l.held[key] = l.gen
	return &localLease{owner: l, key: key, gen: l.gen}, nil
}

func (l *Local) Held(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.held[key]
	return ok, nil
}

type localLease struct {
	owner *Local
	key   string
	gen   uint64
}

// Release 只删除自己那一代的租约，重复释放不会影响之后的持有者
func (ll *localLease) Release(ctx context.Context) error {
	ll.owner.mu.Lock()
	defer ll.owner.mu.Unlock()

	if gen, ok := ll.owner.held[ll.key]; ok && gen == ll.gen {
		delete(ll.owner.held, ll.key)
	}
	return nil
}
