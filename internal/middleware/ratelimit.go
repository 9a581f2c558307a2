package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	internal_errors "github.com/one23four56/backup-google-chat-sub001/internal/errors"
	"github.com/one23four56/backup-google-chat-sub001/internal/middleware/ratelimiter"
	"github.com/one23four56/backup-google-chat-sub001/internal/utils"
)

// RateLimit wraps a handler with a per-identity token bucket. Admins are
// exempt.
func RateLimit(rl *ratelimiter.Limiter, getIdentity func(r *http.Request) (string, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user := GetUserFromContext(r); user != nil && user.Admin {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := getIdentity(r)
			if err != nil {
				utils.WriteErrorAndStatusCode(w, err)
				return
			}
			if !rl.Allow(identity) {
				http.Error(w, "Rate limit exceeded, try again later", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GlobalRateLimit limits all requests through one shared bucket.
func GlobalRateLimit(rl *ratelimiter.Limiter) func(http.Handler) http.Handler {
	return RateLimit(rl, func(r *http.Request) (string, error) { return "global", nil })
}

// GetUserIdFromContext is an identity extractor for authenticated routes.
func GetUserIdFromContext(r *http.Request) (string, error) {
	user := GetUserFromContext(r)
	if user == nil {
		return "", errors.New("can't get user id")
	}
	return user.Id, nil
}

// GetIP extracts the client IP from RemoteAddr only. Forwarded headers are
// deliberately not consulted here: rate limit identity must not be
// spoofable by an unauthenticated client.
func GetIP(r *http.Request) (string, error) {
	return utils.ClientIP(r, false)
}

// GetEmailFromBody extracts the email field from a JSON request body for
// rate limiting, restoring the body so the handler can read it again.
func GetEmailFromBody(r *http.Request) (string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", &internal_errors.ErrorWithStatusCode{Message: "Failed to read request body", StatusCode: http.StatusBadRequest}
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	var data struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", &internal_errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: http.StatusBadRequest}
	}
	if data.Email == "" {
		return "", &internal_errors.ErrorWithStatusCode{Message: "Email is required", StatusCode: http.StatusBadRequest}
	}
	return data.Email, nil
}
