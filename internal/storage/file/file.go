package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
	internal_errors "github.com/one23four56/backup-google-chat-sub001/internal/errors"
	"github.com/one23four56/backup-google-chat-sub001/internal/logger"
)

// Storage is a whole-file JSON auth store for single-node deployments
// without Postgres. Every mutation rewrites the full file through a temp
// file and rename, so a crash mid-write leaves the previous snapshot
// intact.
type Storage struct {
	path string

	mu    sync.Mutex
	users map[domain.UserId]*userRecord
}

type userRecord struct {
	Password *domain.PasswordFactor        `json:"password,omitempty"`
	Tokens   map[string]domain.TokenRecord `json:"tokens"`
}

func New(path string) (*Storage, error) {
	s := &Storage{path: path, users: make(map[domain.UserId]*userRecord)}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Log.Info("auth store file not found, starting empty", "path", path)
			return s, nil
		}
		return nil, fmt.Errorf("failed to read auth store: %w", err)
	}
	if err := json.Unmarshal(raw, &s.users); err != nil {
		return nil, fmt.Errorf("failed to parse auth store %s: %w", path, err)
	}
	return s, nil
}

func (s *Storage) EnsureUser(id domain.UserId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; ok {
		return nil
	}
	s.users[id] = &userRecord{Tokens: make(map[string]domain.TokenRecord)}
	return s.persistLocked()
}

func (s *Storage) PasswordFactor(id domain.UserId) (domain.PasswordFactor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		return domain.PasswordFactor{}, &internal_errors.ErrorWithStatusCode{Message: "User not found", StatusCode: http.StatusNotFound}
	}
	if rec.Password == nil {
		return domain.PasswordFactor{}, &internal_errors.ErrorWithStatusCode{Message: "Password not set", StatusCode: http.StatusNotFound}
	}
	return *rec.Password, nil
}

func (s *Storage) SetPasswordFactor(id domain.UserId, factor domain.PasswordFactor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[id]
	if !ok {
		rec = &userRecord{Tokens: make(map[string]domain.TokenRecord)}
		s.users[id] = rec
	}
	rec.Password = &factor
	return s.persistLocked()
}

func (s *Storage) SaveToken(id domain.UserId, rec domain.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return &internal_errors.ErrorWithStatusCode{Message: "User not found", StatusCode: http.StatusNotFound}
	}
	user.Tokens[rec.Token] = rec
	return s.persistLocked()
}

// DeleteToken removes a single session token. Deleting an absent token is
// not an error: the sweep and an explicit logout can race.
func (s *Storage) DeleteToken(id domain.UserId, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil
	}
	if _, ok := user.Tokens[token]; !ok {
		return nil
	}
	delete(user.Tokens, token)
	return s.persistLocked()
}

func (s *Storage) DeleteUserTokens(id domain.UserId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok || len(user.Tokens) == 0 {
		return nil
	}
	user.Tokens = make(map[string]domain.TokenRecord)
	return s.persistLocked()
}

func (s *Storage) AllTokens() (map[domain.UserId][]domain.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[domain.UserId][]domain.TokenRecord)
	for id, user := range s.users {
		for _, rec := range user.Tokens {
			out[id] = append(out[id], rec)
		}
	}
	return out, nil
}

func (s *Storage) persistLocked() error {
	raw, err := json.MarshalIndent(s.users, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal auth store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".auth-store-*")
	if err != nil {
		return fmt.Errorf("failed to create temp auth store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp auth store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp auth store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp auth store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace auth store: %w", err)
	}
	return nil
}
