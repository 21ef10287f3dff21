package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"vida-vod/internal/app"
	"vida-vod/internal/config"
	infraKafka "vida-vod/internal/infra/kafka"
	"vida-vod/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(app.ConfigPath())
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.FilePath); err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer logger.Sync()

	if cfg.Transcode.Dispatcher != app.DispatcherKafka {
		logger.Fatal("Transcode worker requires transcode.dispatcher=kafka",
			zap.String("dispatcher", cfg.Transcode.Dispatcher),
		)
	}

	// 监听系统信号，优雅退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to build application", zap.Error(err))
	}
	defer a.Close()

	topic := cfg.Kafka.TranscodeTopic()
	logger.Info("Transcode worker started",
		zap.String("topic", topic),
		zap.String("group", cfg.Kafka.GroupID),
		zap.Strings("brokers", cfg.Kafka.Brokers),
	)

	reader := infraKafka.NewReader(cfg.Kafka.Brokers, topic, cfg.Kafka.GroupID)
	infraKafka.ConsumeTranscodeTasks(ctx, reader, func(ctx context.Context, task *infraKafka.TranscodeTask) error {
		return a.VideoService.Process(ctx, task.VideoID)
	})

	logger.Info("Transcode worker stopped")
}
