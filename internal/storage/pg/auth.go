package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
	internal_errors "github.com/one23four56/backup-google-chat-sub001/internal/errors"
)

const queryTimeout = 5 * time.Second

// EnsureUser creates an empty auth record if none exists. Idempotent.
func (s *Storage) EnsureUser(id domain.UserId) error {
	_, err := s.db.Exec("INSERT INTO users(id) VALUES($1) ON CONFLICT (id) DO NOTHING", id)
	if err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

// PasswordFactor fetches the stored password factor. A missing user and an
// unset password both come back as not found.
func (s *Storage) PasswordFactor(id domain.UserId) (domain.PasswordFactor, error) {
	return s.passwordFactor(s.db, id)
}

// SetPasswordFactor replaces the stored password factor inside a
// transaction, creating the user record if needed.
func (s *Storage) SetPasswordFactor(id domain.UserId, factor domain.PasswordFactor) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.setPasswordFactor(tx, id, factor)
	})
}

func (s *Storage) SaveToken(id domain.UserId, rec domain.TokenRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.saveToken(tx, id, rec)
	})
}

// DeleteToken removes a single session token. Deleting an absent token is
// not an error: the sweep and an explicit logout can race.
func (s *Storage) DeleteToken(id domain.UserId, token string) error {
	_, err := s.db.Exec("DELETE FROM session_tokens WHERE user_id = $1 AND token = $2", id, token)
	if err != nil {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}

func (s *Storage) DeleteUserTokens(id domain.UserId) error {
	_, err := s.db.Exec("DELETE FROM session_tokens WHERE user_id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user session tokens: %w", err)
	}
	return nil
}

// AllTokens returns every stored session token grouped by user, expired
// ones included. The in-memory index is rebuilt from this at boot.
func (s *Storage) AllTokens() (map[domain.UserId][]domain.TokenRecord, error) {
	rows, err := s.db.Query("SELECT user_id, token, ip, expires_at FROM session_tokens")
	if err != nil {
		return nil, fmt.Errorf("failed to query session tokens: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.UserId][]domain.TokenRecord)
	for rows.Next() {
		var userId domain.UserId
		var rec domain.TokenRecord
		if err := rows.Scan(&userId, &rec.Token, &rec.Ip, &rec.Expires); err != nil {
			return nil, fmt.Errorf("failed to scan session token: %w", err)
		}
		out[userId] = append(out[userId], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session tokens: %w", err)
	}
	return out, nil
}

func (s *Storage) passwordFactor(q Querier, id domain.UserId) (domain.PasswordFactor, error) {
	var hash, salt []byte
	var version, iterations sql.NullInt32
	err := q.QueryRow(
		"SELECT password_hash, password_salt, password_version, password_iterations FROM users WHERE id = $1",
		id).Scan(&hash, &salt, &version, &iterations)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PasswordFactor{}, &internal_errors.ErrorWithStatusCode{Message: "User not found", StatusCode: http.StatusNotFound}
		}
		return domain.PasswordFactor{}, fmt.Errorf("failed to query password factor: %w", err)
	}
	if len(hash) == 0 {
		return domain.PasswordFactor{}, &internal_errors.ErrorWithStatusCode{Message: "Password not set", StatusCode: http.StatusNotFound}
	}
	return domain.PasswordFactor{
		Hash:       hash,
		Salt:       salt,
		Version:    int(version.Int32),
		Iterations: int(iterations.Int32),
	}, nil
}

func (s *Storage) setPasswordFactor(q Querier, id domain.UserId, factor domain.PasswordFactor) error {
	_, err := q.Exec(`
        INSERT INTO users(id, password_hash, password_salt, password_version, password_iterations)
        VALUES($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET
            password_hash = EXCLUDED.password_hash,
            password_salt = EXCLUDED.password_salt,
            password_version = EXCLUDED.password_version,
            password_iterations = EXCLUDED.password_iterations`,
		id, factor.Hash, factor.Salt, factor.Version, factor.Iterations)
	if err != nil {
		return fmt.Errorf("failed to set password factor: %w", err)
	}
	return nil
}

func (s *Storage) saveToken(q Querier, id domain.UserId, rec domain.TokenRecord) error {
	result, err := q.Exec(`
        INSERT INTO session_tokens(token, user_id, ip, expires_at)
        SELECT $1, id, $3, $4 FROM users WHERE id = $2
        ON CONFLICT (token) DO UPDATE SET
            user_id = EXCLUDED.user_id,
            ip = EXCLUDED.ip,
            expires_at = EXCLUDED.expires_at`,
		rec.Token, id, rec.Ip, rec.Expires)
	if err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for token save: %w", err)
	}
	if rowsAffected == 0 {
		return &internal_errors.ErrorWithStatusCode{Message: "User not found", StatusCode: http.StatusNotFound}
	}
	return nil
}
