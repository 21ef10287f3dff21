// Package dbtest 为测试提供迁移好的内存 SQLite 目录库（开启外键）
package dbtest

import (
	"fmt"
	"testing"

	"vida-vod/internal/infra/database"
	"vida-vod/internal/model"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 每次调用得到一个独立的数据库
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// 单连接：内存库的生命周期跟随连接，同时避免共享缓存的表锁
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

// SeedUser 插入一个用户
func SeedUser(t *testing.T, db *gorm.DB, id, role string) *model.User {
	t.Helper()
	u := &model.User{
		ID:       id,
		Name:     "user-" + id,
		Email:    id + "@example.com",
		Password: "x",
		Role:     role,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("Failed to seed user %s: %v", id, err)
	}
	return u
}
