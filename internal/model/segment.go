package model

import "time"

// Segment HLS 切片记录，只在转码成功的发布阶段创建，创建后不再修改
type Segment struct {
	ID              string    `gorm:"primaryKey;size:36;comment:切片标识" json:"id"`
	VideoID         string    `gorm:"size:36;not null;uniqueIndex:idx_video_index;comment:所属视频" json:"video_id"`
	Index           int       `gorm:"column:seq;not null;uniqueIndex:idx_video_index;comment:切片序号（从0开始）" json:"index"`
	Filename        string    `gorm:"size:255;not null;comment:切片文件名" json:"filename"`
	URL             string    `gorm:"size:500;not null;comment:切片地址" json:"url"`
	DurationSeconds float64   `gorm:"not null;comment:切片时长（秒）" json:"duration_seconds"`
	CreatedAt       time.Time `gorm:"autoCreateTime;comment:创建时间" json:"created_at"`
}

func (Segment) TableName() string {
	return "segments"
}
