package handler

import (
	"net/http"

	"github.com/one23four56/backup-google-chat-sub001/internal/errors"
	"github.com/one23four56/backup-google-chat-sub001/internal/logger"
	mw "github.com/one23four56/backup-google-chat-sub001/internal/middleware"
	"github.com/one23four56/backup-google-chat-sub001/internal/service"
	"github.com/one23four56/backup-google-chat-sub001/internal/utils"
)

const ottTypePassword = "password"

type credentials struct {
	Email    string `validate:"required" json:"email"`
	Password string `validate:"required" json:"password"`
}

// RequestCode issues a one-time code for setting or resetting a password
// and delivers it by email. The response does not reveal whether an account
// already exists.
func (h *Handler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `validate:"required" json:"email"`
	}
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}
	if err := h.email.IsCorrect(body.Email); err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}

	userId := service.NormalizeUserId(body.Email)
	code := h.ott.Issue(userId, ottTypePassword)

	err := h.email.Send(body.Email, "Your confirmation code",
		"Use this code to set your password: "+code+"\r\n\r\nIt expires in "+h.cfg.OTTTTL().String()+" and can be used once.")
	if err != nil {
		writeErrorAndStatusCode(w, &errors.ErrorWithStatusCode{Message: "Failed to send email", StatusCode: http.StatusInternalServerError})
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Code sent, check your email"))
}

// Confirm consumes a one-time code, sets the password, revokes every
// existing session, and signs the client in.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `validate:"required" json:"email"`
		Code     string `validate:"required" json:"code"`
		Password string `validate:"required" json:"password"`
	}
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}

	userId := service.NormalizeUserId(body.Email)
	payload, ok := h.ott.Consume(body.Code, ottTypePassword)
	if !ok || payload != userId {
		// Unknown, expired, and mismatched codes are indistinguishable.
		writeErrorAndStatusCode(w, &errors.ErrorWithStatusCode{Message: "Invalid or expired code", StatusCode: http.StatusNotFound})
		return
	}

	if err := h.credentials.SetPassword(userId, body.Password); err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}
	// A password change invalidates every session issued before it.
	if err := h.sessions.Clear(userId); err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}

	h.signIn(w, r, userId)
}

// Login verifies credentials and issues a session token cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := utils.DecodeValidate(r.Body, &creds); err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}

	userId := service.NormalizeUserId(creds.Email)
	if !h.credentials.CheckPassword(userId, creds.Password) {
		writeErrorAndStatusCode(w, &errors.ErrorWithStatusCode{Message: "Invalid email or password", StatusCode: http.StatusUnauthorized})
		return
	}

	h.signIn(w, r, userId)
}

// Logout revokes the presented session token and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if cookie, err := r.Cookie(service.TokenCookieName); err == nil && user != nil {
		if err := h.sessions.Remove(cookie.Value, user.Id); err != nil {
			logger.Log.Error("failed to revoke session token", "user", user.Id, "error", err)
		}
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusOK)
}

// LogoutAll revokes every session token of the authenticated user.
func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		writeErrorAndStatusCode(w, &errors.ErrorWithStatusCode{Message: "Please sign-in", StatusCode: http.StatusUnauthorized})
		return
	}

	if err := h.sessions.Clear(user.Id); err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}

	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request, userId string) {
	ip, err := utils.ClientIP(r, h.cfg.Public.TrustForwardedFor)
	if err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}

	token, err := h.sessions.Create(userId, ip)
	if err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     service.TokenCookieName,
		Value:    token,
		MaxAge:   int(h.cfg.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Public.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("You logged in"))
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     service.TokenCookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Public.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
