package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
)

func TestRelationToggleKeepsCounter(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewRelationRepository(db)
	editor := seedUser(t, db, model.RoleEditor)
	reader := seedUser(t, db, model.RoleUser)
	novel := seedNovel(t, db, editor.ID, "Ponniyin Selvan")

	for _, kind := range model.RelationKinds {
		t.Run(kind.String(), func(t *testing.T) {
			require.NoError(t, repo.Add(ctx, kind, reader.ID, novel.PublicID))

			err := repo.Add(ctx, kind, reader.ID, novel.PublicID)
			assert.ErrorIs(t, err, apperr.ErrConflict)

			ok, err := repo.Exists(ctx, kind, reader.ID, novel.PublicID)
			require.NoError(t, err)
			assert.True(t, ok)

			cnt, err := repo.Count(ctx, kind)
			require.NoError(t, err)
			assert.EqualValues(t, 1, cnt)

			require.NoError(t, repo.Remove(ctx, kind, reader.ID, novel.PublicID))
			err = repo.Remove(ctx, kind, reader.ID, novel.PublicID)
			assert.ErrorIs(t, err, apperr.ErrNotFound)

			// 删除后允许再次创建
			require.NoError(t, repo.Add(ctx, kind, reader.ID, novel.PublicID))
		})
	}

	n := reloadNovel(t, db, novel.PublicID)
	assert.EqualValues(t, 1, n.LikeCount)
	assert.EqualValues(t, 1, n.BookmarkCount)
	assert.EqualValues(t, 1, n.SubscriberCount)
}

func TestRelationAddMissingNovel(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRelationRepository(db)
	reader := seedUser(t, db, model.RoleUser)

	err := repo.Add(context.Background(), model.RelationLike, reader.ID, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	cnt, err := repo.Count(context.Background(), model.RelationLike)
	require.NoError(t, err)
	assert.Zero(t, cnt)
}

func TestListSubscribersNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewRelationRepository(db)
	editor := seedUser(t, db, model.RoleEditor)
	novel := seedNovel(t, db, editor.ID, "Sivagamiyin Sabatham")

	first := seedUser(t, db, model.RoleUser)
	second := seedUser(t, db, model.RoleUser)
	require.NoError(t, repo.Add(ctx, model.RelationSubscription, first.ID, novel.PublicID))
	require.NoError(t, repo.Add(ctx, model.RelationSubscription, second.ID, novel.PublicID))

	subs, err := repo.ListSubscribers(ctx, novel.PublicID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, second.ID, subs[0].User.ID)
	assert.Equal(t, second.Email, subs[0].User.Email)
	assert.Equal(t, first.ID, subs[1].User.ID)

	page, err := repo.ListSubscriberIDs(ctx, novel.PublicID, 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, first.ID, page[0].UserID)
	page, err = repo.ListSubscriberIDs(ctx, novel.PublicID, page[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].UserID)

	mine, total, err := repo.ListUserSubscriptions(ctx, first.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, mine, 1)
	assert.Equal(t, novel.PublicID, mine[0].Novel.PublicID)
}
