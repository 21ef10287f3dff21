package minio

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"vida-vod/internal/blob"
	"vida-vod/internal/config"
	"vida-vod/pkg/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Store 基于 MinIO 的 blob.Store 实现
type Store struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

var _ blob.Store = (*Store)(nil)

// New 创建 MinIO 客户端，确保 bucket 存在，并按需设置公开只读策略
func New(cfg *config.MinIOConfig, blobCfg *config.BlobConfig) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bucket := blobCfg.Bucket
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
		logger.Info("MinIO bucket created", zap.String("bucket", bucket))
	}

	// 播放器直接拉取 m3u8 和切片，bucket 需要公开读
	if cfg.PublicRead {
		policy := fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
		if err := client.SetBucketPolicy(ctx, bucket, policy); err != nil {
			return nil, fmt.Errorf("failed to set public policy for %s: %w", bucket, err)
		}
		logger.Info("MinIO bucket set to public-read", zap.String("bucket", bucket))
	}

	baseURL := blobCfg.PublicBaseURL
	if baseURL == "" {
		baseURL = PublicBaseURL(cfg.Endpoint, cfg.UseSSL, bucket)
	}

	logger.Info("MinIO connected",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", bucket),
	)

	return &Store{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Put 上传对象
func (s *Store) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to minio: %w", err)
	}
	return s.URL(key), nil
}

// Get 读取对象。GetObject 是惰性的，先 Stat 一次以便把缺失映射成 blob.ErrNotFound
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translate(err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, translate(err)
	}
	return obj, nil
}

// Delete 删除对象。RemoveObject 对缺失的 key 也返回成功，所以先 Stat
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return translate(err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove from minio: %w", err)
	}
	return nil
}

// URL 公开访问地址（需要 bucket 为 public-read）
func (s *Store) URL(key string) string {
	return s.baseURL + "/" + key
}

// PublicBaseURL 生成 bucket 的公开访问前缀
func PublicBaseURL(endpoint string, useSSL bool, bucket string) string {
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
}

func translate(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return fmt.Errorf("%w: %v", blob.ErrNotFound, err)
	}
	return fmt.Errorf("minio: %w", err)
}
