package middleware

import (
	"context"
	"net/http"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
	"github.com/one23four56/backup-google-chat-sub001/internal/service"
)

// Key to store the authenticated user in the request context
type key int

const userKey key = 0

// AdminChecker reports whether a user id has admin rights.
type AdminChecker interface {
	IsAdmin(id string) bool
}

// Auth holds dependencies for authentication middleware.
type Auth struct {
	sessions *service.Sessions
	admins   AdminChecker
}

func NewAuth(sessions *service.Sessions, admins AdminChecker) *Auth {
	return &Auth{sessions: sessions, admins: admins}
}

// NeedAuth returns middleware that requires a valid session token.
func (a *Auth) NeedAuth() func(http.Handler) http.Handler {
	return a.auth(false)
}

// AdminOnly returns middleware that additionally requires admin rights.
func (a *Auth) AdminOnly() func(http.Handler) http.Handler {
	return a.auth(true)
}

func (a *Auth) auth(adminOnly bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userId, ok := a.sessions.VerifyRequest(r)
			if !ok {
				http.Error(w, "Please sign-in", http.StatusUnauthorized)
				return
			}

			user := &domain.User{Id: userId, Admin: a.admins.IsAdmin(userId)}
			if adminOnly && !user.Admin {
				http.Error(w, "Access denied. Only for admin", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserFromContext retrieves the authenticated user, or nil when the
// request did not pass through auth middleware.
func GetUserFromContext(r *http.Request) *domain.User {
	user, ok := r.Context().Value(userKey).(*domain.User)
	if !ok {
		return nil
	}
	return user
}
