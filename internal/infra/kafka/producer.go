package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vida-vod/internal/config"
	"vida-vod/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TranscodeTask 转码任务消息体，worker 只需要视频 ID，其余信息从目录库读取
type TranscodeTask struct {
	VideoID string `json:"video_id"`
}

// MessageWriter kafka.Writer 的最小接口，便于测试替换
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer 转码任务生产者
type Producer struct {
	writer MessageWriter
	topic  string
}

// NewProducer 初始化 Kafka 生产者
func NewProducer(cfg *config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	logger.Info("Kafka producer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.TranscodeTopic()),
	)

	return NewProducerWithWriter(w, cfg.TranscodeTopic())
}

// NewProducerWithWriter 使用给定 writer 构建生产者
func NewProducerWithWriter(w MessageWriter, topic string) *Producer {
	return &Producer{writer: w, topic: topic}
}

// SendTranscodeTask 发送转码任务，同一视频的消息按 key 落在同一分区
func (p *Producer) SendTranscodeTask(ctx context.Context, task *TranscodeTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal transcode task: %w", err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte("video-" + task.VideoID),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send transcode task: %w", err)
	}

	logger.Info("Transcode task sent",
		logger.VideoID(task.VideoID),
		zap.String("topic", p.topic),
	)

	return nil
}

// Close 关闭生产者
func (p *Producer) Close() error {
	logger.Info("Kafka producer closed")
	return p.writer.Close()
}
