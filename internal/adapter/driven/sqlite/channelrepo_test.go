package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
)

func TestChannelRepo_UpsertAllAndListAll(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChannelRepo(db)
	ctx := context.Background()

	err := repo.UpsertAll(ctx, []model.Channel{
		{ID: "UC-z", Name: "Zeta", ThumbnailURL: "https://img.example/z.jpg"},
		{ID: "UC-a", Name: "Alpha", ThumbnailURL: "https://img.example/a.jpg"},
	})
	require.NoError(t, err)

	channels, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 2)

	// Ordered by name.
	assert.Equal(t, "Alpha", channels[0].Name)
	assert.Equal(t, "Zeta", channels[1].Name)
}

func TestChannelRepo_UpsertAll_UpdatesMetadata(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChannelRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertAll(ctx, []model.Channel{
		{ID: "UC-a", Name: "Old Name", ThumbnailURL: "https://img.example/old.jpg"},
	}))
	require.NoError(t, repo.UpsertAll(ctx, []model.Channel{
		{ID: "UC-a", Name: "New Name", ThumbnailURL: "https://img.example/new.jpg"},
	}))

	channels, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, channels, 1)

	assert.Equal(t, "New Name", channels[0].Name)
	assert.Equal(t, "https://img.example/new.jpg", channels[0].ThumbnailURL)
}

func TestChannelRepo_UpsertAll_EmptyBatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChannelRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertAll(ctx, nil))

	channels, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, channels)
}
