package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/novel-engine/internal/model"
	"github.com/d60-Lab/novel-engine/pkg/apperr"
)

func TestReadingProgressLifecycle(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	editor := env.caller(t, model.RoleEditor)
	reader := env.caller(t, model.RoleUser)
	x := env.novel(t, editor, "Sivakamiyin Sabatham")

	p, err := env.progress.UpdateReadingProgress(ctx, reader.ID, UpdateProgressInput{NovelID: x.PublicID, LastChapter: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, p.LastChapter)
	assert.Equal(t, x.Title, p.NovelTitle)
	assert.False(t, p.IsCompleted)

	done := true
	p, err = env.progress.UpdateReadingProgress(ctx, reader.ID, UpdateProgressInput{NovelID: x.PublicID, LastChapter: 40, IsCompleted: &done})
	require.NoError(t, err)
	assert.True(t, p.IsCompleted)
	require.NotNil(t, p.CompletedAt)

	// 不带完成标记的上报保留之前的状态
	p, err = env.progress.UpdateReadingProgress(ctx, reader.ID, UpdateProgressInput{NovelID: "  " + x.PublicID + " ", LastChapter: 41})
	require.NoError(t, err)
	assert.Equal(t, 41, p.LastChapter)
	assert.True(t, p.IsCompleted)

	list, err := env.progress.ListReadingProgress(ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, env.progress.DeleteReadingProgress(ctx, reader.ID, x.PublicID))
	assert.ErrorIs(t, env.progress.DeleteReadingProgress(ctx, reader.ID, x.PublicID), apperr.ErrNotFound)
}

func TestReadingProgressValidation(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()
	reader := env.caller(t, model.RoleUser)

	_, err := env.progress.UpdateReadingProgress(ctx, reader.ID, UpdateProgressInput{NovelID: " ", LastChapter: 1})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = env.progress.UpdateReadingProgress(ctx, reader.ID, UpdateProgressInput{NovelID: "n", LastChapter: 0})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = env.progress.UpdateReadingProgress(ctx, reader.ID, UpdateProgressInput{NovelID: "missing", LastChapter: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
