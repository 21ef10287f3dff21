// Package metrics 注册 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vida_vod_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vida_vod_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Pipeline metrics
var (
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vida_vod_uploads_total",
			Help: "Total number of video uploads by outcome",
		},
		[]string{"result"},
	)

	UploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vida_vod_upload_bytes_total",
			Help: "Total bytes of accepted source uploads",
		},
	)

	StatusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vida_vod_status_transitions_total",
			Help: "Video status transitions written to the catalog",
		},
		[]string{"to"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vida_vod_pipeline_stage_duration_seconds",
			Help:    "Duration of transcode pipeline stages",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"stage"},
	)

	PipelinesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vida_vod_pipelines_in_flight",
			Help: "Number of transcode pipelines currently running in this process",
		},
	)

	SegmentsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vida_vod_segments_published_total",
			Help: "Total number of HLS segments uploaded",
		},
	)

	DispatchQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vida_vod_dispatch_queue_depth",
			Help: "Jobs waiting in the in-process transcode queue",
		},
	)

	ReaperActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vida_vod_reaper_actions_total",
			Help: "Stale videos handled by the reaper",
		},
		[]string{"action"},
	)

	CleanupFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vida_vod_cleanup_failures_total",
			Help: "Scratch directory or blob cleanup failures that were logged and swallowed",
		},
	)
)
