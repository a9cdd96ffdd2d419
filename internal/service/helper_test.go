package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/novel-engine/config"
	"github.com/d60-Lab/novel-engine/internal/cache"
	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/repository"
)

type testEnv struct {
	db *gorm.DB

	users         repository.UserRepository
	novelRepo     repository.NovelRepository
	chapterRepo   repository.ChapterRepository
	relations     repository.RelationRepository
	notifications repository.NotificationRepository
	outbox        repository.OutboxRepository

	notifier     NotificationService
	novels       NovelService
	chapters     ChapterService
	interactions InteractionService
	progress     ProgressService
}

func setupTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(tb, err)
	sqlDB, err := db.DB()
	require.NoError(tb, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(tb, db.AutoMigrate(model.All()...))
	return db
}

// newTestEnv publisher 为 nil 时使用 inline 模式
func newTestEnv(tb testing.TB, subscriberCache *cache.SubscriberCache, publisher func(NotificationService) *Publisher) *testEnv {
	tb.Helper()
	db := setupTestDB(tb)
	env := &testEnv{
		db:            db,
		users:         repository.NewUserRepository(db),
		novelRepo:     repository.NewNovelRepository(db),
		chapterRepo:   repository.NewChapterRepository(db),
		relations:     repository.NewRelationRepository(db),
		notifications: repository.NewNotificationRepository(db),
		outbox:        repository.NewOutboxRepository(db),
	}
	env.notifier = NewNotificationService(env.notifications, env.relations, env.novelRepo, 2)
	pub := NewPublisher(config.NotifyModeInline, env.notifier, nil, 5*time.Second)
	if publisher != nil {
		pub = publisher(env.notifier)
	}
	env.novels = NewNovelService(env.novelRepo, subscriberCache)
	env.chapters = NewChapterService(env.chapterRepo, pub)
	env.interactions = NewInteractionService(env.relations, subscriberCache)
	env.progress = NewProgressService(repository.NewProgressRepository(db))
	return env
}

func (e *testEnv) caller(tb testing.TB, role model.Role) Caller {
	tb.Helper()
	u := &model.User{
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		FullName:     "user " + string(role),
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(tb, e.users.Create(context.Background(), u))
	return Caller{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role}
}

func (e *testEnv) novel(tb testing.TB, owner Caller, title string) *model.Novel {
	tb.Helper()
	n, err := e.novels.CreateNovel(context.Background(), owner, CreateNovelInput{
		Title:      title,
		AuthorName: "கல்கி",
		Summary:    "ஒரு நீண்ட கதைச் சுருக்கம் here",
		Categories: []string{"historical", "drama"},
	})
	require.NoError(tb, err)
	return n
}

func chapterBody() string { return strings.Repeat("அலை கடல் ", 20) }

func (e *testEnv) chapter(tb testing.TB, owner Caller, novelID string, number int, title string) *model.Chapter {
	tb.Helper()
	ch, err := e.chapters.CreateChapter(context.Background(), owner, CreateChapterInput{
		NovelID:       novelID,
		ChapterNumber: number,
		Title:         title,
		Content:       chapterBody(),
	})
	require.NoError(tb, err)
	return ch
}

func (e *testEnv) reloadNovel(tb testing.TB, publicID string) *model.Novel {
	tb.Helper()
	n, err := e.novelRepo.GetByPublicID(context.Background(), publicID)
	require.NoError(tb, err)
	return n
}
