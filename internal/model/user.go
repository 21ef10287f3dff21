package model

import "time"

// 用户角色
const (
	RoleUser     = "user"
	RoleOperator = "admin"
)

// User 用户模型，由外部身份服务维护，这里只保留视频外键与归属展示需要的字段
type User struct {
	ID        string    `gorm:"primaryKey;size:36;comment:用户标识" json:"id"`
	Name      string    `gorm:"size:255;not null;comment:用户名" json:"name"`
	Email     string    `gorm:"size:255;not null;uniqueIndex;comment:邮箱" json:"email"`
	Password  string    `gorm:"size:255;not null;comment:密码" json:"-"`
	Role      string    `gorm:"size:32;not null;default:'user';comment:用户角色" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime;comment:创建时间" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;comment:更新时间" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
