package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
)

func TestNovelDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	novels := NewNovelRepository(db)
	chapters := NewChapterRepository(db)
	relations := NewRelationRepository(db)
	progress := NewProgressRepository(db)

	editor := seedUser(t, db, model.RoleEditor)
	reader := seedUser(t, db, model.RoleUser)
	novel := seedNovel(t, db, editor.ID, "Yavana Rani")
	other := seedNovel(t, db, editor.ID, "Kanni Maadam")

	require.NoError(t, chapters.CreateWithCounter(ctx, newChapter(novel.PublicID, 1, editor.ID), nil))
	require.NoError(t, chapters.CreateWithCounter(ctx, newChapter(other.PublicID, 1, editor.ID), nil))
	for _, kind := range model.RelationKinds {
		require.NoError(t, relations.Add(ctx, kind, reader.ID, novel.PublicID))
		require.NoError(t, relations.Add(ctx, kind, reader.ID, other.PublicID))
	}
	_, err := progress.Upsert(ctx, ProgressUpdate{UserID: reader.ID, NovelID: novel.PublicID, LastChapter: 1})
	require.NoError(t, err)

	require.NoError(t, novels.DeleteCascade(ctx, novel.PublicID))
	assert.ErrorIs(t, novels.DeleteCascade(ctx, novel.PublicID), apperr.ErrNotFound)

	_, err = novels.GetByPublicID(ctx, novel.PublicID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	for _, m := range []any{&model.Chapter{}, &model.NovelLike{}, &model.NovelBookmark{}, &model.NovelSubscription{}, &model.ReadingProgress{}} {
		var cnt int64
		require.NoError(t, db.Model(m).Where("novel_id = ?", novel.PublicID).Count(&cnt).Error)
		assert.Zero(t, cnt)
		require.NoError(t, db.Model(m).Where("novel_id = ?", other.PublicID).Count(&cnt).Error)
		if _, isProgress := m.(*model.ReadingProgress); !isProgress {
			assert.EqualValues(t, 1, cnt)
		}
	}
}

// recordStatements 记录带行锁的查询和删除语句的先后顺序；sqlite 不输出 FOR 子句，但语句上仍能看到
func recordStatements(t *testing.T, db *gorm.DB) *[]string {
	t.Helper()
	var events []string
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:record_lock", func(tx *gorm.DB) {
		if c, ok := tx.Statement.Clauses["FOR"]; ok {
			if l, ok := c.Expression.(clause.Locking); ok {
				events = append(events, "lock "+l.Strength+" "+tx.Statement.Table)
			}
		}
	}))
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").Register("test:record_delete", func(tx *gorm.DB) {
		events = append(events, "delete "+tx.Statement.Table)
	}))
	return &events
}

func TestNovelDeleteLocksParentBeforeChildren(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	novels := NewNovelRepository(db)
	progress := NewProgressRepository(db)
	editor := seedUser(t, db, model.RoleEditor)
	reader := seedUser(t, db, model.RoleUser)
	novel := seedNovel(t, db, editor.ID, "Kalvanin Kadhali")

	events := recordStatements(t, db)

	_, err := progress.Upsert(ctx, ProgressUpdate{UserID: reader.ID, NovelID: novel.PublicID, LastChapter: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"lock SHARE novels"}, *events)

	*events = nil
	require.NoError(t, novels.DeleteCascade(ctx, novel.PublicID))
	require.NotEmpty(t, *events)
	assert.Equal(t, "lock UPDATE novels", (*events)[0])
	assert.Equal(t, "delete novels", (*events)[len(*events)-1])
	assert.Contains(t, *events, "delete chapters")
	assert.Contains(t, *events, "delete reading_progress")

	*events = nil
	assert.ErrorIs(t, novels.DeleteCascade(ctx, novel.PublicID), apperr.ErrNotFound)
	assert.Equal(t, []string{"lock UPDATE novels"}, *events)
}

func TestNovelIncrementViews(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewNovelRepository(db)
	editor := seedUser(t, db, model.RoleEditor)
	novel := seedNovel(t, db, editor.ID, "Mohini Theevu")

	got, err := repo.IncrementViews(ctx, novel.PublicID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.ViewCount)

	_, err = repo.IncrementViews(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestNovelListFilters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewNovelRepository(db)
	editor := seedUser(t, db, model.RoleEditor)

	a := seedNovel(t, db, editor.ID, "Sea of Poppies")
	b := seedNovel(t, db, editor.ID, "River of Smoke")
	_, err := repo.Update(ctx, b.PublicID, map[string]any{
		"categories": model.Categories{"adventure", "historical"},
		"status":     model.NovelPublished,
	})
	require.NoError(t, err)

	res, total, err := repo.List(ctx, NovelQuery{Search: "poppies"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, res, 1)
	assert.Equal(t, a.PublicID, res[0].PublicID)

	res, total, err = repo.List(ctx, NovelQuery{Category: "adventure"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, b.PublicID, res[0].PublicID)

	res, _, err = repo.List(ctx, NovelQuery{Status: model.NovelPublished})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, b.PublicID, res[0].PublicID)

	res, total, err = repo.List(ctx, NovelQuery{SortBy: "title", SortOrder: "asc", Limit: 1, Page: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, res, 1)
	assert.Equal(t, a.PublicID, res[0].PublicID)
}

func TestReconcileCountersRepairsDrift(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewNovelRepository(db)
	relations := NewRelationRepository(db)
	editor := seedUser(t, db, model.RoleEditor)
	reader := seedUser(t, db, model.RoleUser)
	novel := seedNovel(t, db, editor.ID, "Vengaiyin Maindhan")
	clean := seedNovel(t, db, editor.ID, "Alai Osai")

	require.NoError(t, relations.Add(ctx, model.RelationLike, reader.ID, novel.PublicID))
	require.NoError(t, db.Model(&model.Novel{}).Where("public_id = ?", novel.PublicID).
		UpdateColumns(map[string]any{"like_count": gorm.Expr("like_count + 5"), "chapter_count": 3}).Error)

	drifts, err := repo.ReconcileCounters(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, novel.PublicID, drifts[0].PublicID)
	assert.EqualValues(t, 6, drifts[0].LikeCount)
	assert.EqualValues(t, 1, drifts[0].LiveLikes)

	n := reloadNovel(t, db, novel.PublicID)
	assert.EqualValues(t, 1, n.LikeCount)
	assert.Zero(t, n.ChapterCount)
	assert.Zero(t, reloadNovel(t, db, clean.PublicID).LikeCount)

	drifts, err = repo.ReconcileCounters(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
}
