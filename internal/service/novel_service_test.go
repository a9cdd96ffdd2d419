package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/internal/repository"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
)

func TestCreateNovelRulesAndDefaults(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	reader := env.caller(t, model.RoleUser)
	editor := env.caller(t, model.RoleEditor)

	valid := CreateNovelInput{
		Title:      "Ponniyin Selvan",
		AuthorName: "Kalki",
		Summary:    "a saga of the Chola dynasty",
		Categories: []string{" historical ", "epic", "historical"},
	}

	_, err := env.novels.CreateNovel(ctx, reader, valid)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	short := valid
	short.Summary = "too short"
	_, err = env.novels.CreateNovel(ctx, editor, short)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	noCats := valid
	noCats.Categories = nil
	_, err = env.novels.CreateNovel(ctx, editor, noCats)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	blankTitle := valid
	blankTitle.Title = "   "
	_, err = env.novels.CreateNovel(ctx, editor, blankTitle)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	n, err := env.novels.CreateNovel(ctx, editor, valid)
	require.NoError(t, err)
	assert.NotEmpty(t, n.PublicID)
	assert.Equal(t, model.NovelDraft, n.Status)
	assert.Equal(t, model.Categories{"epic", "historical"}, n.Categories)
	assert.Equal(t, editor.ID, n.CreatedBy)
	assert.Equal(t, editor.ID, n.UpdatedBy)
	assert.Zero(t, n.ViewCount+n.LikeCount+n.BookmarkCount+n.ChapterCount+n.SubscriberCount)

	other, err := env.novels.CreateNovel(ctx, editor, valid)
	require.NoError(t, err)
	assert.NotEqual(t, n.PublicID, other.PublicID)
}

func TestConcurrentReadsCountEveryView(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	editor := env.caller(t, model.RoleEditor)
	n := env.novel(t, editor, "Sivagamiyin Sabatham")

	const readers = 20
	var wg sync.WaitGroup
	seen := make([]int64, readers)
	errs := make([]error, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := env.novels.GetNovel(context.Background(), n.PublicID)
			errs[i] = err
			if err == nil {
				seen[i] = got.ViewCount
			}
		}(i)
	}
	wg.Wait()

	distinct := make(map[int64]struct{}, readers)
	for i := 0; i < readers; i++ {
		require.NoError(t, errs[i])
		assert.GreaterOrEqual(t, seen[i], int64(1))
		distinct[seen[i]] = struct{}{}
	}
	// 每个读者看到的都是包含自己那次的值，且互不相同
	assert.Len(t, distinct, readers)
	assert.EqualValues(t, readers, env.reloadNovel(t, n.PublicID).ViewCount)

	_, err := env.novels.GetNovel(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateNovelPermissionsAndPartial(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner := env.caller(t, model.RoleEditor)
	stranger := env.caller(t, model.RoleEditor)
	admin := env.caller(t, model.RoleAdmin)
	n := env.novel(t, owner, "Kadal Pura")

	title := "Kadal Pura Part 1"
	_, err := env.novels.UpdateNovel(ctx, stranger, n.PublicID, UpdateNovelInput{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, "Kadal Pura", env.reloadNovel(t, n.PublicID).Title)

	_, err = env.novels.UpdateNovel(ctx, stranger, "missing", UpdateNovelInput{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	empty := ""
	_, err = env.novels.UpdateNovel(ctx, owner, n.PublicID, UpdateNovelInput{Title: &empty})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	got, err := env.novels.UpdateNovel(ctx, owner, n.PublicID, UpdateNovelInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, got.Title)
	assert.Equal(t, "கல்கி", got.AuthorName)
	assert.Equal(t, model.Categories{"drama", "historical"}, got.Categories)

	published := model.NovelPublished
	got, err = env.novels.UpdateNovel(ctx, admin, n.PublicID, UpdateNovelInput{Status: &published, Categories: []string{"sea"}})
	require.NoError(t, err)
	assert.Equal(t, model.NovelPublished, got.Status)
	assert.Equal(t, model.Categories{"sea"}, got.Categories)
	assert.Equal(t, admin.ID, got.UpdatedBy)
	assert.Equal(t, owner.ID, got.CreatedBy)
}

func TestDeleteNovelCascadesAndChecksOwner(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	owner := env.caller(t, model.RoleEditor)
	stranger := env.caller(t, model.RoleEditor)
	reader := env.caller(t, model.RoleUser)
	n := env.novel(t, owner, "Alai Osai")
	env.chapter(t, owner, n.PublicID, 1, "one")
	require.NoError(t, env.interactions.Like(ctx, reader.ID, n.PublicID))
	require.NoError(t, env.interactions.Subscribe(ctx, reader.ID, n.PublicID))

	assert.ErrorIs(t, env.novels.DeleteNovel(ctx, stranger, n.PublicID), apperr.ErrForbidden)
	require.NoError(t, env.novels.DeleteNovel(ctx, owner, n.PublicID))
	assert.ErrorIs(t, env.novels.DeleteNovel(ctx, owner, n.PublicID), apperr.ErrNotFound)

	ok, err := env.interactions.CheckSubscription(ctx, reader.ID, n.PublicID)
	require.NoError(t, err)
	assert.False(t, ok)
	_, total, err := env.chapters.ListChapters(ctx, repository.ChapterQuery{NovelID: n.PublicID})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestNovelStatsAndListValidation(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	editor := env.caller(t, model.RoleEditor)
	n := env.novel(t, editor, "Parthiban Kanavu")
	ch := env.chapter(t, editor, n.PublicID, 1, "one")
	_, err := env.chapters.GetChapter(ctx, ch.ID)
	require.NoError(t, err)
	_, err = env.chapters.GetChapter(ctx, ch.ID)
	require.NoError(t, err)

	stats, err := env.novels.Stats(ctx, n.PublicID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalChapters)
	assert.EqualValues(t, 2, stats.TotalChapterViews)
	assert.Zero(t, stats.TotalViews)

	_, _, err = env.novels.ListNovels(ctx, repository.NovelQuery{SortBy: "password"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	list, total, err := env.novels.ListNovels(ctx, repository.NovelQuery{Search: "KANAVU"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
}
