package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test-vod\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.App.Name != "test-vod" {
		t.Errorf("app.name = %q", cfg.App.Name)
	}
	if cfg.App.Port != 8000 {
		t.Errorf("app.port = %d, want 8000", cfg.App.Port)
	}
	if cfg.Blob.Driver != "minio" || cfg.Blob.Bucket != "videos" {
		t.Errorf("blob = %+v", cfg.Blob)
	}
	if cfg.Transcode.Dispatcher != "local" || cfg.Transcode.Workers != 2 {
		t.Errorf("transcode = %+v", cfg.Transcode)
	}
	if cfg.Transcode.StaleDuration() != time.Hour {
		t.Errorf("stale = %v", cfg.Transcode.StaleDuration())
	}
	if cfg.Upload.MaxBytes != 100<<20 {
		t.Errorf("upload.max_bytes = %d", cfg.Upload.MaxBytes)
	}
	if cfg.Kafka.TranscodeTopic() != "video-transcode" {
		t.Errorf("topic = %q", cfg.Kafka.TranscodeTopic())
	}
	if cfg.Elasticsearch.VideosIndex() != "videos" {
		t.Errorf("index = %q", cfg.Elasticsearch.VideosIndex())
	}
	if Get() != cfg {
		t.Error("Get should return the loaded config")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("VIDA_APP_PORT", "9100")
	t.Setenv("VIDA_TRANSCODE_DISPATCHER", "kafka")

	cfg, err := Load(writeConfig(t, "app:\n  port: 9000\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 9100 {
		t.Errorf("app.port = %d, want 9100", cfg.App.Port)
	}
	if cfg.Transcode.Dispatcher != "kafka" {
		t.Errorf("dispatcher = %q", cfg.Transcode.Dispatcher)
	}
}

func TestLoadValidation(t *testing.T) {
	if _, err := Load(writeConfig(t, "upload:\n  max_bytes: 0\n")); err == nil {
		t.Error("expected error for non-positive max_bytes")
	}

	cfg, err := Load(writeConfig(t, "transcode:\n  workers: 0\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Transcode.Workers != 1 {
		t.Errorf("workers = %d, want clamp to 1", cfg.Transcode.Workers)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "vod", SSLMode: "disable"}
	want := "host=db port=5432 user=u password=p dbname=vod sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
