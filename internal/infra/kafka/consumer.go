package kafka

import (
	"context"
	"encoding/json"
	"time"

	"vida-vod/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TaskHandler 处理单条转码任务
type TaskHandler func(ctx context.Context, task *TranscodeTask) error

// MessageReader kafka.Reader 的最小接口
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewReader 创建转码任务消费者
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
}

// ConsumeTranscodeTasks 消费转码任务（阻塞，ctx 取消后返回）
// handler 的错误只记录日志：任务状态已落库，重试由巡检负责
func ConsumeTranscodeTasks(ctx context.Context, reader MessageReader, handler TaskHandler) {
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Error("Failed to close kafka consumer", zap.Error(err))
		}
		logger.Info("Kafka transcode task consumer stopped")
	}()

	logger.Info("Kafka transcode task consumer started")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Failed to read kafka message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var task TranscodeTask
		if err := json.Unmarshal(msg.Value, &task); err != nil || task.VideoID == "" {
			logger.Error("Failed to unmarshal transcode task",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
			)
			continue
		}

		logger.Info("Received transcode task", logger.VideoID(task.VideoID))

		if err := handler(ctx, &task); err != nil {
			logger.Error("Failed to handle transcode task",
				logger.VideoID(task.VideoID),
				zap.Error(err),
			)
		}
	}
}
