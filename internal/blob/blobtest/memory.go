// Package blobtest 提供测试用的内存对象存储
package blobtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"vida-vod/internal/blob"
)

// Store 线程安全的内存实现，可注入写入失败
type Store struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int

	// FailPutAfter > 0 时，第 FailPutAfter 次之后的 Put 全部失败
	FailPutAfter int
	// FailAll 为 true 时所有操作返回 ErrUnavailable
	FailAll bool
}

// ErrUnavailable 模拟存储不可用
var ErrUnavailable = errors.New("blobtest: store unavailable")

func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll || (s.FailPutAfter > 0 && s.puts >= s.FailPutAfter) {
		return "", ErrUnavailable
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.puts++
	s.objects[key] = data
	return s.URL(key), nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return nil, ErrUnavailable
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAll {
		return ErrUnavailable
	}
	if _, ok := s.objects[key]; !ok {
		return blob.ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *Store) URL(key string) string {
	return "http://blob.test/videos/" + key
}

// Object 返回对象内容
func (s *Store) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// Keys 返回排序后的全部对象键
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
