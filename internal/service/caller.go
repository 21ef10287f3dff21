package service

import "vida-vod/internal/model"

// Caller 由身份认证中间件注入的当前调用者
type Caller struct {
	UserID string
	Role   string
}

// IsOperator 是否为运维角色
func (c Caller) IsOperator() bool {
	return c.Role == model.RoleOperator
}

// owns 调用者是否为视频上传者
func (c Caller) owns(v *model.Video) bool {
	return c.UserID != "" && c.UserID == v.OwnerID
}
