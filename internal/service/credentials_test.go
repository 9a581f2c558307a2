package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
	internal_errors "github.com/one23four56/backup-google-chat-sub001/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fake storage ---

// fakeAuthStorage is an in-memory AuthStorage with per-method error
// injection, shared by the credentials and session tests.
type fakeAuthStorage struct {
	mu      sync.Mutex
	records map[domain.UserId]*domain.UserAuthRecord

	ensureErr    error
	factorErr    error
	setFactorErr error
	saveTokenErr error
	deleteErr    error
	allTokensErr error
}

func newFakeAuthStorage() *fakeAuthStorage {
	return &fakeAuthStorage{records: make(map[domain.UserId]*domain.UserAuthRecord)}
}

func (f *fakeAuthStorage) EnsureUser(id domain.UserId) error {
	if f.ensureErr != nil {
		return f.ensureErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		f.records[id] = &domain.UserAuthRecord{Id: id, Tokens: make(map[string]domain.TokenRecord)}
	}
	return nil
}

func (f *fakeAuthStorage) PasswordFactor(id domain.UserId) (domain.PasswordFactor, error) {
	if f.factorErr != nil {
		return domain.PasswordFactor{}, f.factorErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok || rec.Password == nil {
		return domain.PasswordFactor{}, internal_errors.NotFound("password factor not found")
	}
	return *rec.Password, nil
}

func (f *fakeAuthStorage) SetPasswordFactor(id domain.UserId, factor domain.PasswordFactor) error {
	if f.setFactorErr != nil {
		return f.setFactorErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return internal_errors.NotFound("user not found")
	}
	rec.Password = &factor
	return nil
}

func (f *fakeAuthStorage) SaveToken(id domain.UserId, rec domain.TokenRecord) error {
	if f.saveTokenErr != nil {
		return f.saveTokenErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	if !ok {
		return internal_errors.NotFound("user not found")
	}
	r.Tokens[rec.Token] = rec
	return nil
}

func (f *fakeAuthStorage) DeleteToken(id domain.UserId, token string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[id]; ok {
		delete(r.Tokens, token)
	}
	return nil
}

func (f *fakeAuthStorage) DeleteUserTokens(id domain.UserId) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[id]; ok {
		r.Tokens = make(map[string]domain.TokenRecord)
	}
	return nil
}

func (f *fakeAuthStorage) AllTokens() (map[domain.UserId][]domain.TokenRecord, error) {
	if f.allTokensErr != nil {
		return nil, f.allTokensErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[domain.UserId][]domain.TokenRecord)
	for id, rec := range f.records {
		for _, tok := range rec.Tokens {
			out[id] = append(out[id], tok)
		}
	}
	return out, nil
}

func (f *fakeAuthStorage) tokenCount(id domain.UserId) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.records[id]; ok {
		return len(r.Tokens)
	}
	return 0
}

// --- Tests ---

func TestSetPasswordAndCheck(t *testing.T) {
	creds := NewCredentials(newFakeAuthStorage())

	require.NoError(t, creds.SetPassword("User@Example.com", "hunter22"))

	assert.True(t, creds.CheckPassword("user@example.com", "hunter22"))
	assert.True(t, creds.CheckPassword("USER@example.COM", "hunter22"), "identity is case-insensitive")
	assert.False(t, creds.CheckPassword("user@example.com", "hunter2"))
}

func TestSetPasswordReplacesFactor(t *testing.T) {
	storage := newFakeAuthStorage()
	creds := NewCredentials(storage)

	require.NoError(t, creds.SetPassword("user@example.com", "first"))
	require.NoError(t, creds.SetPassword("user@example.com", "second"))

	assert.False(t, creds.CheckPassword("user@example.com", "first"), "old password must stop working")
	assert.True(t, creds.CheckPassword("user@example.com", "second"))
}

func TestSetPasswordValidation(t *testing.T) {
	creds := NewCredentials(newFakeAuthStorage())

	assert.Error(t, creds.SetPassword("", "pw"))
	assert.Error(t, creds.SetPassword("user@example.com", ""))
}

func TestSetPasswordPersistFailureIsHard(t *testing.T) {
	storage := newFakeAuthStorage()
	storage.setFactorErr = errors.New("disk full")
	creds := NewCredentials(storage)

	assert.Error(t, creds.SetPassword("user@example.com", "pw"))
}

func TestCheckPasswordFailsClosed(t *testing.T) {
	t.Run("unknown user", func(t *testing.T) {
		creds := NewCredentials(newFakeAuthStorage())
		assert.False(t, creds.CheckPassword("nobody@example.com", "pw"))
	})

	t.Run("storage error", func(t *testing.T) {
		storage := newFakeAuthStorage()
		storage.factorErr = errors.New("backend unavailable")
		creds := NewCredentials(storage)
		assert.False(t, creds.CheckPassword("user@example.com", "pw"))
	})
}

func TestHasPasswordEnsuresRecord(t *testing.T) {
	storage := newFakeAuthStorage()
	creds := NewCredentials(storage)

	has, err := creds.HasPassword("user@example.com")
	require.NoError(t, err)
	assert.False(t, has)

	// The lookup created the record as a side effect
	storage.mu.Lock()
	_, exists := storage.records["user@example.com"]
	storage.mu.Unlock()
	assert.True(t, exists)

	require.NoError(t, creds.SetPassword("user@example.com", "pw"))
	has, err = creds.HasPassword("user@example.com")
	require.NoError(t, err)
	assert.True(t, has)
}
