package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
)

func TestAdminRequiresAdminRole(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	admin := NewAdminService(env.users, env.novelRepo, env.chapterRepo, env.relations)
	ctx := context.Background()

	for _, role := range []model.Role{model.RoleUser, model.RoleEditor} {
		_, err := admin.DashboardStats(ctx, env.caller(t, role))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
		_, err = admin.ReconcileCounters(ctx, env.caller(t, role))
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	}
}

func TestDashboardAndReconcile(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	admin := NewAdminService(env.users, env.novelRepo, env.chapterRepo, env.relations)
	ctx := context.Background()
	root := env.caller(t, model.RoleAdmin)
	editor := env.caller(t, model.RoleEditor)
	reader := env.caller(t, model.RoleUser)

	x := env.novel(t, editor, "Ponniyin Selvan")
	y := env.novel(t, editor, "Parthiban Kanavu")
	env.chapter(t, editor, x.PublicID, 1, "one")
	require.NoError(t, env.interactions.Subscribe(ctx, reader.ID, x.PublicID))
	_, err := env.novels.GetNovel(ctx, y.PublicID)
	require.NoError(t, err)

	stats, err := admin.DashboardStats(ctx, root)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Totals.Users)
	assert.EqualValues(t, 2, stats.Totals.Novels)
	assert.EqualValues(t, 1, stats.Totals.Chapters)
	assert.EqualValues(t, 1, stats.Totals.Subscriptions)
	assert.Len(t, stats.RecentChapters, 1)
	require.Len(t, stats.TopNovels, 2)
	assert.Equal(t, y.PublicID, stats.TopNovels[0].PublicID)

	drifts, err := admin.ReconcileCounters(ctx, root)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	require.NoError(t, env.db.Model(&model.Novel{}).Where("public_id = ?", x.PublicID).
		UpdateColumn("subscriber_count", 7).Error)
	drifts, err = admin.ReconcileCounters(ctx, root)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.EqualValues(t, 7, drifts[0].SubscriberCount)
	assert.EqualValues(t, 1, drifts[0].LiveSubscribers)
	assert.EqualValues(t, 1, env.reloadNovel(t, x.PublicID).SubscriberCount)
}
