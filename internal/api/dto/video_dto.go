package dto

import "time"

// VideoUploadRequest 视频上传请求（multipart/form-data），文件字段为 file
type VideoUploadRequest struct {
	Title       string `form:"title"`
	Description string `form:"description"`
}

// VideoUpdateRequest 视频更新请求
type VideoUpdateRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// OwnerBrief 视频中嵌套的上传者简要信息
type OwnerBrief struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// VideoInfo 视频详情
type VideoInfo struct {
	ID              string      `json:"id"`
	OwnerID         string      `json:"owner_id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	SourceURL       string      `json:"source_url"`
	PlaylistURL     string      `json:"playlist_url,omitempty"`
	Size            int64       `json:"size"`
	MimeType        string      `json:"mime_type"`
	DurationSeconds float64     `json:"duration_seconds"`
	Status          string      `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Owner           *OwnerBrief `json:"owner,omitempty"`
	// SegmentCount 只在运维视图中返回
	SegmentCount *int64 `json:"segment_count,omitempty"`
}

// PlayInfo 播放信息，客户端轮询直到 status 为 READY
type PlayInfo struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Status          string  `json:"status"`
	PlaylistURL     string  `json:"playlist_url"`
	DurationSeconds float64 `json:"duration_seconds"`
}
