package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/novel-engine/internal/model"
)

func setupTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(tb, err)
	sqlDB, err := db.DB()
	require.NoError(tb, err)
	// 单连接：:memory: 库按连接隔离，且事务因此天然串行
	sqlDB.SetMaxOpenConns(1)
	require.NoError(tb, db.AutoMigrate(model.All()...))
	return db
}

func seedUser(tb testing.TB, db *gorm.DB, role model.Role) *model.User {
	tb.Helper()
	u := &model.User{
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		FullName:     "reader " + string(role),
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(tb, db.Create(u).Error)
	return u
}

func seedNovel(tb testing.TB, db *gorm.DB, creator uint, title string) *model.Novel {
	tb.Helper()
	n := &model.Novel{
		PublicID:   uuid.NewString(),
		Title:      title,
		AuthorName: "கல்கி",
		Summary:    "a long enough summary",
		Categories: model.Categories{"historical"},
		CreatedBy:  creator,
		UpdatedBy:  creator,
	}
	require.NoError(tb, NewNovelRepository(db).Create(context.Background(), n))
	return n
}

func reloadNovel(tb testing.TB, db *gorm.DB, publicID string) *model.Novel {
	tb.Helper()
	var n model.Novel
	require.NoError(tb, db.Where("public_id = ?", publicID).First(&n).Error)
	return &n
}
