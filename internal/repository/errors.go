package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict 当前状态不满足写入前置条件（CAS 失败）
	ErrStatusConflict = errors.New("video status conflict")
	// ErrOwnerNotFound 外键引用的用户不存在
	ErrOwnerNotFound = errors.New("owner does not exist")
)

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrForeignKeyViolated), isForeignKeyError(err):
		return ErrOwnerNotFound
	}
	return err
}

// 未开启 TranslateError 的方言兜底：postgres 23503 / sqlite "FOREIGN KEY constraint failed"
func isForeignKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key") || strings.Contains(msg, "sqlstate 23503")
}
