package model

import "time"

// VideoStatus 视频处理状态
type VideoStatus string

const (
	VideoStatusPending    VideoStatus = "PENDING"
	VideoStatusProcessing VideoStatus = "PROCESSING"
	VideoStatusReady      VideoStatus = "READY"
	VideoStatusError      VideoStatus = "ERROR"
)

// CanTransition 状态机：PENDING → PROCESSING → READY | ERROR，其余一律拒绝
func (s VideoStatus) CanTransition(to VideoStatus) bool {
	switch s {
	case VideoStatusPending:
		return to == VideoStatusProcessing
	case VideoStatusProcessing:
		return to == VideoStatusReady || to == VideoStatusError
	default:
		return false
	}
}

// Video 视频模型
type Video struct {
	ID              string      `gorm:"primaryKey;size:36;comment:视频标识" json:"id"`
	OwnerID         string      `gorm:"size:36;not null;index:idx_owner_status;comment:上传者ID" json:"owner_id"`
	Title           string      `gorm:"size:200;not null;comment:视频标题" json:"title"`
	Description     string      `gorm:"type:text;comment:视频描述" json:"description"`
	SourceKey       string      `gorm:"size:255;not null;comment:原始文件对象键" json:"-"`
	SourceURL       string      `gorm:"size:500;not null;comment:原始文件地址" json:"source_url"`
	PlaylistURL     string      `gorm:"size:500;comment:m3u8 播放列表地址" json:"playlist_url,omitempty"`
	Size            int64       `gorm:"not null;comment:文件大小（字节）" json:"size"`
	MimeType        string      `gorm:"size:100;not null;comment:文件类型" json:"mime_type"`
	DurationSeconds float64     `gorm:"default:0;comment:视频时长（秒）" json:"duration_seconds"`
	Status          VideoStatus `gorm:"size:20;not null;default:'PENDING';index:idx_status;index:idx_owner_status;comment:视频状态" json:"status"`
	CreatedAt       time.Time   `gorm:"autoCreateTime;index:idx_videos_created_at;comment:创建时间" json:"created_at"`
	UpdatedAt       time.Time   `gorm:"autoUpdateTime;comment:更新时间" json:"updated_at"`

	// 关联关系
	Owner    *User     `gorm:"foreignKey:OwnerID;constraint:OnDelete:RESTRICT" json:"owner,omitempty"`
	Segments []Segment `gorm:"foreignKey:VideoID;constraint:OnDelete:CASCADE" json:"segments,omitempty"`
}

func (Video) TableName() string {
	return "videos"
}
