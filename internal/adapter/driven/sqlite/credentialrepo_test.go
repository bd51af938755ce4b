package sqlite

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
	"github.com/ericfisherdev/hubsync/internal/domain/port/driven"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestCredentialRepo_SaveAndLoad(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())
	ctx := context.Background()

	cred := model.Credential{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		ExpiresAt:    time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, repo.Save(ctx, cred))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, cred.AccessToken, got.AccessToken)
	assert.Equal(t, cred.RefreshToken, got.RefreshToken)
	assert.True(t, got.ExpiresAt.Equal(cred.ExpiresAt))
}

func TestCredentialRepo_Save_ReplacesSingleRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())
	ctx := context.Background()

	expiresAt := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, model.Credential{AccessToken: "first", RefreshToken: "r1", ExpiresAt: expiresAt}))
	require.NoError(t, repo.Save(ctx, model.Credential{AccessToken: "second", RefreshToken: "r2", ExpiresAt: expiresAt}))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "second", got.AccessToken)
	assert.Equal(t, "r2", got.RefreshToken)
}

func TestCredentialRepo_Load_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCredentialRepo_Clear(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, model.Credential{
		AccessToken:  "tok",
		RefreshToken: "ref",
		ExpiresAt:    time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, repo.Clear(ctx))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCredentialRepo_Clear_Empty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())

	assert.NoError(t, repo.Clear(context.Background()))
}

func TestCredentialRepo_NilKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, nil)
	ctx := context.Background()

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)

	err = repo.Save(ctx, model.Credential{AccessToken: "tok"})
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestCredentialRepo_TokensEncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCredentialRepo(db, testKey())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, model.Credential{
		AccessToken:  "plaintext-access-token",
		RefreshToken: "plaintext-refresh-token",
		ExpiresAt:    time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}))

	var storedAccess string
	err := db.Reader.QueryRowContext(ctx, `SELECT access_token FROM oauth_credential WHERE id = 1`).Scan(&storedAccess)
	require.NoError(t, err)

	assert.NotContains(t, storedAccess, "plaintext-access-token")
}
