package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isDuplicate 判断是否违反唯一约束；开启 TranslateError 时为 gorm.ErrDuplicatedKey，
// 未开启时退回到驱动错误文本匹配
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

func isNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// pageOffset 统一分页参数
func pageOffset(page, limit int) (offset, size int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return (page - 1) * limit, limit
}
