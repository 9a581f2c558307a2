package service

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
	"github.com/one23four56/backup-google-chat-sub001/internal/logger"
	"github.com/one23four56/backup-google-chat-sub001/internal/utils"
)

// Session token configuration.
const (
	SessionTokenBytes = 32 // 32 bytes = 64 hex chars
	TokenCookieName   = "token"
)

type sessionEntry struct {
	userId domain.UserId
	rec    domain.TokenRecord
}

// Sessions issues, verifies, enumerates, and revokes bearer tokens. The
// in-memory reverse index mirrors the durable store for O(1) verification;
// the two are updated together on every mutation. Expiry is enforced only
// by the periodic sweep: Verify never checks the expiry field, so an
// expired-but-unswept token stays valid for up to one sweep interval. That
// keeps the verify hot path storage-free and is accepted behavior here.
type Sessions struct {
	storage        AuthStorage
	ttl            time.Duration
	trustForwarded bool

	mu    sync.RWMutex
	index map[string]sessionEntry

	now func() time.Time
}

// NewSessions builds the manager and loads the reverse index from the
// durable store. The loaded state is authoritative: expired tokens present
// in the store enter the index and remain valid until the first sweep.
func NewSessions(storage AuthStorage, ttl time.Duration, trustForwarded bool) (*Sessions, error) {
	s := &Sessions{
		storage:        storage,
		ttl:            ttl,
		trustForwarded: trustForwarded,
		index:          make(map[string]sessionEntry),
		now:            time.Now,
	}

	all, err := storage.AllTokens()
	if err != nil {
		return nil, err
	}
	for userId, recs := range all {
		for _, rec := range recs {
			s.index[rec.Token] = sessionEntry{userId: userId, rec: rec}
		}
	}
	logger.Log.Info("session index loaded", "tokens", len(s.index))

	return s, nil
}

// Create issues a new bearer token bound to the client IP and persists it
// before returning: the token is durable by the time the caller sees it.
func (s *Sessions) Create(id domain.UserId, rawIp string) (string, error) {
	id = NormalizeUserId(id)
	ip, err := utils.NormalizeIP(rawIp)
	if err != nil {
		return "", err
	}

	token := utils.GenerateToken(SessionTokenBytes)
	rec := domain.TokenRecord{
		Token:   token,
		Ip:      ip,
		Expires: s.now().Add(s.ttl),
	}

	if err := s.storage.EnsureUser(id); err != nil {
		return "", err
	}
	if err := s.storage.SaveToken(id, rec); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.index[token] = sessionEntry{userId: id, rec: rec}
	s.mu.Unlock()

	return token, nil
}

// Verify resolves a token to its user. Pure in-memory lookup: the durable
// store is never touched here. The presented IP must match the one the
// token was issued to. Any anomaly reports not-authenticated, nothing else.
func (s *Sessions) Verify(token, rawIp string) (domain.UserId, bool) {
	if token == "" {
		return "", false
	}
	ip, err := utils.NormalizeIP(rawIp)
	if err != nil {
		return "", false
	}

	s.mu.RLock()
	entry, ok := s.index[token]
	s.mu.RUnlock()

	if !ok || entry.rec.Ip != ip {
		return "", false
	}
	return entry.userId, true
}

// VerifyRequest extracts the token cookie and client IP from an HTTP
// request and delegates to Verify. Any parse failure is not-authenticated.
func (s *Sessions) VerifyRequest(r *http.Request) (domain.UserId, bool) {
	cookie, err := r.Cookie(TokenCookieName)
	if err != nil {
		return "", false
	}
	ip, err := utils.ClientIP(r, s.trustForwarded)
	if err != nil {
		return "", false
	}
	return s.Verify(cookie.Value, ip)
}

// VerifyCookieHeader verifies from a raw Cookie header line and remote
// address, for socket handshakes that re-parse the handshake cookie string
// per connection.
func (s *Sessions) VerifyCookieHeader(cookieHeader, remoteAddr string) (domain.UserId, bool) {
	req := http.Request{Header: http.Header{"Cookie": {cookieHeader}}}
	cookie, err := req.Cookie(TokenCookieName)
	if err != nil {
		return "", false
	}
	return s.Verify(cookie.Value, remoteAddr)
}

// Tokens enumerates the live tokens of a user from the index.
func (s *Sessions) Tokens(id domain.UserId) []domain.TokenRecord {
	id = NormalizeUserId(id)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []domain.TokenRecord
	for _, entry := range s.index {
		if entry.userId == id {
			recs = append(recs, entry.rec)
		}
	}
	return recs
}

// Remove revokes a single token from both the durable store and the index.
func (s *Sessions) Remove(token string, id domain.UserId) error {
	id = NormalizeUserId(id)
	if err := s.storage.DeleteToken(id, token); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.index, token)
	s.mu.Unlock()

	return nil
}

// Clear revokes every token for a user (logout everywhere, password reset).
func (s *Sessions) Clear(id domain.UserId) error {
	id = NormalizeUserId(id)
	if err := s.storage.DeleteUserTokens(id); err != nil {
		return err
	}

	s.mu.Lock()
	for token, entry := range s.index {
		if entry.userId == id {
			delete(s.index, token)
		}
	}
	s.mu.Unlock()

	return nil
}

// Sweep scans the durable store and removes every token whose expiry has
// passed from both structures. This is the only place expiry is enforced.
// Returns the number of tokens removed.
func (s *Sessions) Sweep() (int, error) {
	all, err := s.storage.AllTokens()
	if err != nil {
		return 0, err
	}
	now := s.now()

	removed := 0
	for userId, recs := range all {
		for _, rec := range recs {
			if rec.Expires.After(now) {
				continue
			}
			if err := s.storage.DeleteToken(userId, rec.Token); err != nil {
				logger.Log.Error("sweep: failed to delete expired token",
					"user", userId, "error", err)
				continue
			}
			s.mu.Lock()
			delete(s.index, rec.Token)
			s.mu.Unlock()
			removed++
		}
	}
	if removed > 0 {
		sessionTokensSweptTotal.Add(float64(removed))
	}
	return removed, nil
}

// StartSweep runs Sweep on a fixed interval until ctx is done. It follows
// the same pattern as the AutoMod window reset goroutine.
func (s *Sessions) StartSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	logger.Log.Info("started session token sweep", "interval", interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				removed, err := s.Sweep()
				if err != nil {
					logger.Log.Error("session sweep failed", "error", err)
				} else if removed > 0 {
					logger.Log.Info("session sweep removed expired tokens", "count", removed)
				}
			case <-ctx.Done():
				logger.Log.Info("session sweep shutting down gracefully")
				return
			}
		}
	}()
}
