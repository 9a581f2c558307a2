package pg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
	internal_errors "github.com/one23four56/backup-google-chat-sub001/internal/errors"
)

func TestEnsureUser(t *testing.T) {
	require.NoError(t, storage.EnsureUser("ensure@example.com"))
	require.NoError(t, storage.EnsureUser("ensure@example.com"), "EnsureUser should be idempotent")

	// A fresh record has no password factor yet.
	_, err := storage.PasswordFactor("ensure@example.com")
	require.Error(t, err)
	assert.True(t, internal_errors.IsNotFound(err), "expected not found for unset password")
}

func TestPasswordFactorUnknownUser(t *testing.T) {
	_, err := storage.PasswordFactor("nobody@example.com")
	require.Error(t, err)
	assert.True(t, internal_errors.IsNotFound(err))
}

func TestSetPasswordFactor(t *testing.T) {
	factor := domain.PasswordFactor{
		Hash:       []byte("digest"),
		Salt:       []byte("salt"),
		Version:    2,
		Iterations: 210_000,
	}
	require.NoError(t, storage.SetPasswordFactor("factor@example.com", factor))

	got, err := storage.PasswordFactor("factor@example.com")
	require.NoError(t, err)
	assert.Equal(t, factor, got)

	// Replacing the factor overwrites in place.
	replacement := domain.PasswordFactor{
		Hash:       []byte("digest2"),
		Salt:       []byte("salt2"),
		Version:    2,
		Iterations: 210_000,
	}
	require.NoError(t, storage.SetPasswordFactor("factor@example.com", replacement))

	got, err = storage.PasswordFactor("factor@example.com")
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestSaveToken(t *testing.T) {
	require.NoError(t, storage.EnsureUser("tokens@example.com"))

	rec := domain.TokenRecord{
		Token:   "tok-save-1",
		Ip:      "10.0.0.1",
		Expires: time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, storage.SaveToken("tokens@example.com", rec))

	all, err := storage.AllTokens()
	require.NoError(t, err)
	require.Len(t, all["tokens@example.com"], 1)
	got := all["tokens@example.com"][0]
	assert.Equal(t, rec.Token, got.Token)
	assert.Equal(t, rec.Ip, got.Ip)
	assert.WithinDuration(t, rec.Expires, got.Expires, time.Millisecond)
}

func TestSaveTokenUnknownUser(t *testing.T) {
	err := storage.SaveToken("missing@example.com", domain.TokenRecord{
		Token:   "tok-orphan",
		Ip:      "10.0.0.1",
		Expires: time.Now().Add(time.Hour),
	})
	require.Error(t, err)
	assert.True(t, internal_errors.IsNotFound(err))
}

func TestDeleteToken(t *testing.T) {
	require.NoError(t, storage.EnsureUser("delete@example.com"))
	rec := domain.TokenRecord{Token: "tok-del-1", Ip: "10.0.0.2", Expires: time.Now().Add(time.Hour)}
	require.NoError(t, storage.SaveToken("delete@example.com", rec))

	require.NoError(t, storage.DeleteToken("delete@example.com", "tok-del-1"))
	require.NoError(t, storage.DeleteToken("delete@example.com", "tok-del-1"), "deleting an absent token is not an error")

	all, err := storage.AllTokens()
	require.NoError(t, err)
	assert.Empty(t, all["delete@example.com"])
}

func TestDeleteUserTokens(t *testing.T) {
	require.NoError(t, storage.EnsureUser("clear@example.com"))
	require.NoError(t, storage.EnsureUser("keep@example.com"))

	for i, token := range []string{"tok-clear-1", "tok-clear-2"} {
		rec := domain.TokenRecord{Token: token, Ip: "10.0.1.1", Expires: time.Now().Add(time.Duration(i+1) * time.Hour)}
		require.NoError(t, storage.SaveToken("clear@example.com", rec))
	}
	require.NoError(t, storage.SaveToken("keep@example.com", domain.TokenRecord{Token: "tok-keep-1", Ip: "10.0.1.2", Expires: time.Now().Add(time.Hour)}))

	require.NoError(t, storage.DeleteUserTokens("clear@example.com"))

	all, err := storage.AllTokens()
	require.NoError(t, err)
	assert.Empty(t, all["clear@example.com"])
	assert.Len(t, all["keep@example.com"], 1, "other users' tokens survive a clear")
}

func TestAllTokensIncludesExpired(t *testing.T) {
	require.NoError(t, storage.EnsureUser("expired@example.com"))
	rec := domain.TokenRecord{Token: "tok-expired-1", Ip: "10.0.2.1", Expires: time.Now().Add(-time.Hour)}
	require.NoError(t, storage.SaveToken("expired@example.com", rec))

	all, err := storage.AllTokens()
	require.NoError(t, err)
	require.Len(t, all["expired@example.com"], 1, "expired tokens are returned; expiry is enforced by the sweep")
}
