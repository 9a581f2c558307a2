package service

import (
	"net/http"
	"strings"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
	internal_errors "github.com/one23four56/backup-google-chat-sub001/internal/errors"
	"github.com/one23four56/backup-google-chat-sub001/internal/logger"
	"github.com/one23four56/backup-google-chat-sub001/internal/passhash"
)

// AuthStorage is the durable userAuth store. Implementations: storage/pg
// (Postgres) and storage/file (whole-file JSON with atomic rename).
type AuthStorage interface {
	// EnsureUser creates an empty auth record if none exists. Idempotent.
	EnsureUser(id domain.UserId) error

	PasswordFactor(id domain.UserId) (domain.PasswordFactor, error)
	// SetPasswordFactor replaces the stored password factor for a user.
	SetPasswordFactor(id domain.UserId, factor domain.PasswordFactor) error

	SaveToken(id domain.UserId, rec domain.TokenRecord) error
	DeleteToken(id domain.UserId, token string) error
	DeleteUserTokens(id domain.UserId) error
	// AllTokens returns every live token grouped by user. Used for the
	// boot-time index load and by the sweep.
	AllTokens() (map[domain.UserId][]domain.TokenRecord, error)
}

// Credentials manages password factors over the durable store.
type Credentials struct {
	storage AuthStorage
}

func NewCredentials(storage AuthStorage) *Credentials {
	return &Credentials{storage: storage}
}

// NormalizeUserId canonicalizes a user identity. Accounts are keyed by
// lowercased email.
func NormalizeUserId(id domain.UserId) domain.UserId {
	return strings.ToLower(strings.TrimSpace(id))
}

// SetPassword generates a fresh salt, derives the digest with the canonical
// parameters, and replaces the stored password factor. A persistence failure
// is a hard error: no partial-state commit.
func (c *Credentials) SetPassword(id domain.UserId, password string) error {
	id = NormalizeUserId(id)
	if id == "" {
		return &internal_errors.ErrorWithStatusCode{Message: "User id required", StatusCode: http.StatusBadRequest}
	}
	if password == "" {
		return &internal_errors.ErrorWithStatusCode{Message: "Password required", StatusCode: http.StatusBadRequest}
	}

	if err := c.storage.EnsureUser(id); err != nil {
		return err
	}
	return c.storage.SetPasswordFactor(id, passhash.NewFactor(password))
}

// CheckPassword recomputes the digest with the stored salt and compares it
// in constant time. Fail-closed: missing record, malformed factor, or a
// storage error all report false, never an error.
func (c *Credentials) CheckPassword(id domain.UserId, password string) bool {
	factor, err := c.storage.PasswordFactor(NormalizeUserId(id))
	if err != nil {
		if !internal_errors.IsNotFound(err) {
			logger.Log.Error("password factor lookup failed", "user", id, "error", err)
		}
		return false
	}
	return passhash.Verify(password, factor)
}

// HasPassword reports whether a password factor is set. As a side effect it
// ensures the auth record exists, so callers can rely on the user being
// known to the store afterwards.
func (c *Credentials) HasPassword(id domain.UserId) (bool, error) {
	id = NormalizeUserId(id)
	if err := c.storage.EnsureUser(id); err != nil {
		return false, err
	}
	if _, err := c.storage.PasswordFactor(id); err != nil {
		if internal_errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
