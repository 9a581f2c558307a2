package handler

import (
	"net/http"
	"time"

	"github.com/one23four56/backup-google-chat-sub001/internal/errors"
	"github.com/one23four56/backup-google-chat-sub001/internal/service"
	"github.com/one23four56/backup-google-chat-sub001/internal/utils"
)

// MuteUser manually mutes an identity. Zero seconds means the default
// cooldown.
func (h *Handler) MuteUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User    string `validate:"required" json:"user"`
		Seconds int    `json:"seconds"`
	}
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}

	h.automod.Mute(service.NormalizeUserId(body.User), time.Duration(body.Seconds)*time.Second)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("User muted"))
}

// UnmuteUser lifts a mute early.
func (h *Handler) UnmuteUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User string `validate:"required" json:"user"`
	}
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}

	userId := service.NormalizeUserId(body.User)
	if !h.automod.IsMuted(userId) {
		writeErrorAndStatusCode(w, &errors.ErrorWithStatusCode{Message: "User is not muted", StatusCode: http.StatusNotFound})
		return
	}

	h.automod.Unmute(userId)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("User unmuted"))
}
