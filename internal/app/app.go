// Package app 组装 api 与 worker 进程共用的依赖
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"vida-vod/internal/blob"
	"vida-vod/internal/config"
	"vida-vod/internal/dispatch"
	"vida-vod/internal/infra/database"
	infraES "vida-vod/internal/infra/elasticsearch"
	infraKafka "vida-vod/internal/infra/kafka"
	infraMinio "vida-vod/internal/infra/minio"
	infraRedis "vida-vod/internal/infra/redis"
	infraS3 "vida-vod/internal/infra/s3"
	"vida-vod/internal/lease"
	"vida-vod/internal/publish"
	"vida-vod/internal/repository"
	"vida-vod/internal/service"
	"vida-vod/internal/transcode"
	"vida-vod/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 流水线租约 TTL，持有期间由 keepalive 续期
const leaseTTL = 2 * time.Minute

const (
	DispatcherLocal = "local"
	DispatcherKafka = "kafka"
)

// App 进程内的共享组件
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Store    blob.Store
	Locker   lease.Locker
	Videos   *repository.VideoRepository
	Segments *repository.SegmentRepository
	Users    *repository.UserRepository

	VideoService  *service.VideoService
	SearchService *service.SearchService
	Reaper        *service.Reaper

	// Pool 仅在 local 模式下非空，需要 Start
	Pool *dispatch.Pool

	redis    *redis.Client
	producer *infraKafka.Producer
}

// Build 按配置初始化数据库、对象存储、租约、分发器与搜索索引，并组装服务
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Transcode.Dispatcher == DispatcherKafka && !cfg.Redis.Enabled {
		// worker 与 api 分属不同进程，进程内租约无法互相可见
		return nil, fmt.Errorf("transcode.dispatcher=kafka requires redis.enabled")
	}

	a := &App{Config: cfg}

	// 数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	a.DB = db
	if err := database.AutoMigrate(db); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	// 对象存储
	store, err := openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	// 租约
	if cfg.Redis.Enabled {
		client, err := infraRedis.Open(&cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redis = client
		a.Locker = infraRedis.NewLocker(client)
	} else {
		logger.Warn("Redis disabled, using in-process lease table")
		a.Locker = lease.NewLocal()
	}

	// 分发器
	var dispatcher dispatch.Dispatcher
	switch cfg.Transcode.Dispatcher {
	case DispatcherKafka:
		a.producer = infraKafka.NewProducer(&cfg.Kafka)
		dispatcher = dispatch.NewKafkaDispatcher(a.producer)
	case DispatcherLocal, "":
		a.Pool = dispatch.NewPool(cfg.Transcode.Workers, cfg.Transcode.QueueSize)
		dispatcher = a.Pool
	default:
		a.Close()
		return nil, fmt.Errorf("unknown transcode.dispatcher %q", cfg.Transcode.Dispatcher)
	}

	a.Videos = repository.NewVideoRepository(db)
	a.Segments = repository.NewSegmentRepository(db)
	a.Users = repository.NewUserRepository(db)

	engine := transcode.NewFFmpeg(
		cfg.Transcode.FFmpegPath,
		cfg.Transcode.FFprobePath,
		cfg.Transcode.SegmentSeconds,
		cfg.Transcode.TimeoutDuration(),
	)
	publisher := publish.NewPublisher(store, a.Segments, float64(cfg.Transcode.SegmentSeconds))

	deps := service.VideoServiceDeps{
		Videos:     a.Videos,
		Segments:   a.Segments,
		Users:      a.Users,
		Store:      store,
		Engine:     engine,
		Publisher:  publisher,
		Dispatcher: dispatcher,
		Locker:     a.Locker,
		ScratchDir: cfg.Transcode.ScratchDir,
		LeaseTTL:   leaseTTL,
	}

	// 搜索索引（可选，失败则搜索降级到 DB）
	var indexer service.VideoIndexer
	if idx := openIndex(ctx, &cfg.Elasticsearch); idx != nil {
		indexer = idx
		deps.Index = idx
	}

	a.VideoService = service.NewVideoService(deps)
	a.SearchService = service.NewSearchService(a.Videos, indexer)
	a.Reaper = service.NewReaper(a.Videos, a.Locker, dispatcher, cfg.Transcode.StaleDuration())

	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	switch cfg.Blob.Driver {
	case "s3":
		store, err := infraS3.New(ctx, &cfg.S3, &cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("failed to init s3: %w", err)
		}
		return store, nil
	case "minio", "":
		store, err := infraMinio.New(&cfg.MinIO, &cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("failed to init minio: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown blob.driver %q", cfg.Blob.Driver)
	}
}

func openIndex(ctx context.Context, cfg *config.ElasticsearchConfig) *infraES.VideoIndex {
	if !cfg.Enabled {
		return nil
	}
	client, err := infraES.NewClient(cfg)
	if err != nil {
		logger.Warn("Elasticsearch init failed, search will fallback to DB", zap.Error(err))
		return nil
	}
	idx := infraES.NewVideoIndex(client, cfg.VideosIndex())

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := idx.EnsureIndex(ctx); err != nil {
		logger.Warn("Elasticsearch index init failed, search will fallback to DB", zap.Error(err))
		return nil
	}
	return idx
}

// Close 释放外部连接，可重复调用
func (a *App) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			logger.Warn("Failed to close kafka producer", zap.Error(err))
		}
		a.producer = nil
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			logger.Warn("Failed to close redis", zap.Error(err))
		}
		a.redis = nil
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			logger.Warn("Failed to close database", zap.Error(err))
		}
		a.DB = nil
	}
}

// ConfigPath 配置文件路径，VIDA_CONFIG 优先
func ConfigPath() string {
	if p := os.Getenv("VIDA_CONFIG"); p != "" {
		return p
	}
	return "configs/config.yaml"
}
