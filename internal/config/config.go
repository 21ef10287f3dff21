package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Blob          BlobConfig          `mapstructure:"blob"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
	S3            S3Config            `mapstructure:"s3"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Transcode     TranscodeConfig     `mapstructure:"transcode"`
	Upload        UploadConfig        `mapstructure:"upload"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
	Mode    string `mapstructure:"mode"`
	Port    int    `mapstructure:"port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 秒
}

// DSN 返回PostgreSQL连接字符串
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr 返回Redis地址
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// BlobConfig 对象存储选择
type BlobConfig struct {
	Driver string `mapstructure:"driver"` // minio | s3
	Bucket string `mapstructure:"bucket"`
	// PublicBaseURL 非空时覆盖默认的 URL 前缀（例如 CDN 域名）
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	// PublicRead 为 true 时给 bucket 设置匿名只读策略，供播放器直接拉取切片
	PublicRead bool `mapstructure:"public_read"`
}

// S3Config AWS S3 配置（为空的字段走 SDK 默认凭证链）
type S3Config struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PathStyle bool   `mapstructure:"path_style"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Brokers []string          `mapstructure:"brokers"`
	Topics  map[string]string `mapstructure:"topics"`
	GroupID string            `mapstructure:"group_id"`
}

// TranscodeTopic 返回转码任务 topic
func (k *KafkaConfig) TranscodeTopic() string {
	if t := k.Topics["video_transcode"]; t != "" {
		return t
	}
	return "video-transcode"
}

// ElasticsearchConfig Elasticsearch配置
type ElasticsearchConfig struct {
	Enabled bool              `mapstructure:"enabled"`
	Hosts   []string          `mapstructure:"hosts"`
	Index   map[string]string `mapstructure:"index"`
}

// VideosIndex 返回视频索引名
func (e *ElasticsearchConfig) VideosIndex() string {
	if name := e.Index["videos"]; name != "" {
		return name
	}
	return "videos"
}

// TranscodeConfig 转码流水线配置
type TranscodeConfig struct {
	FFmpegPath     string `mapstructure:"ffmpeg_path"`
	FFprobePath    string `mapstructure:"ffprobe_path"`
	ScratchDir     string `mapstructure:"scratch_dir"`
	Timeout        int    `mapstructure:"timeout"`         // 秒
	SegmentSeconds int    `mapstructure:"segment_seconds"` // 切片目标时长
	Dispatcher     string `mapstructure:"dispatcher"`      // local | kafka
	Workers        int    `mapstructure:"workers"`
	QueueSize      int    `mapstructure:"queue_size"`
	StaleAfter     int    `mapstructure:"stale_after"`   // 秒
	ReapInterval   int    `mapstructure:"reap_interval"` // 秒
}

// TimeoutDuration 返回单次外部进程的超时时间
func (t *TranscodeConfig) TimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// StaleDuration 返回判定任务卡死的阈值
func (t *TranscodeConfig) StaleDuration() time.Duration {
	return time.Duration(t.StaleAfter) * time.Second
}

// ReapIntervalDuration 返回巡检间隔
func (t *TranscodeConfig) ReapIntervalDuration() time.Duration {
	return time.Duration(t.ReapInterval) * time.Second
}

// UploadConfig 上传限制
type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// ExpireDuration 返回过期时间
func (j *JWTConfig) ExpireDuration() time.Duration {
	return time.Duration(j.ExpireHours) * time.Hour
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// 全局配置实例
var globalConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vida-vod")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.mode", "release")
	v.SetDefault("app.port", 8000)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 3600)

	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("blob.driver", "minio")
	v.SetDefault("blob.bucket", "videos")
	v.SetDefault("minio.public_read", true)
	v.SetDefault("s3.region", "us-east-1")

	v.SetDefault("kafka.group_id", "vida-vod-transcode-worker")

	v.SetDefault("transcode.ffmpeg_path", "ffmpeg")
	v.SetDefault("transcode.ffprobe_path", "ffprobe")
	v.SetDefault("transcode.scratch_dir", "/tmp/vida-transcode")
	v.SetDefault("transcode.timeout", 1800)
	v.SetDefault("transcode.segment_seconds", 10)
	v.SetDefault("transcode.dispatcher", "local")
	v.SetDefault("transcode.workers", 2)
	v.SetDefault("transcode.queue_size", 64)
	v.SetDefault("transcode.stale_after", 3600)
	v.SetDefault("transcode.reap_interval", 300)

	v.SetDefault("upload.max_bytes", 100<<20)

	v.SetDefault("jwt.expire_hours", 72)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
}

// Load 加载配置文件，环境变量 VIDA_<SECTION>_<KEY> 优先
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("VIDA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Upload.MaxBytes <= 0 {
		return nil, fmt.Errorf("upload.max_bytes must be positive")
	}
	if cfg.Transcode.Workers < 1 {
		cfg.Transcode.Workers = 1
	}

	globalConfig = &cfg

	return &cfg, nil
}

// Get 获取全局配置
func Get() *Config {
	if globalConfig == nil {
		panic("config not loaded, please call Load() first")
	}
	return globalConfig
}

// GetJWT 获取JWT配置
func GetJWT() *JWTConfig {
	return &Get().JWT
}

// GetApp 获取应用配置
func GetApp() *AppConfig {
	return &Get().App
}
