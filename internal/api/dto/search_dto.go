package dto

// SearchVideoRequest 搜索请求参数
type SearchVideoRequest struct {
	Q     string `form:"q" binding:"required"`
	Limit int    `form:"limit"`
}

// SearchVideoData 搜索结果
type SearchVideoData struct {
	Videos []VideoInfo `json:"videos"`
	Source string      `json:"source"` // es | db
}
