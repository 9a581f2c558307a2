package handler

import (
	"encoding/json"
	"net/http"

	"github.com/one23four56/backup-google-chat-sub001/internal/config"
	"github.com/one23four56/backup-google-chat-sub001/internal/logger"
	"github.com/one23four56/backup-google-chat-sub001/internal/service"
	"github.com/one23four56/backup-google-chat-sub001/internal/utils"
)

// EmailSender delivers one-time codes out of band.
type EmailSender interface {
	IsCorrect(email string) error
	Send(recipientEmail, subject, body string) error
}

type Handler struct {
	credentials *service.Credentials
	sessions    *service.Sessions
	ott         *service.OTTRegistry
	messages    *service.Messages
	automod     *service.AutoMod
	email       EmailSender
	cfg         *config.Config
}

func New(credentials *service.Credentials, sessions *service.Sessions, ott *service.OTTRegistry, messages *service.Messages, automod *service.AutoMod, email EmailSender, cfg *config.Config) *Handler {
	return &Handler{credentials, sessions, ott, messages, automod, email, cfg}
}

// Health is a liveness probe endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Error("failed to encode response", "error", err)
	}
}

func writeErrorAndStatusCode(w http.ResponseWriter, err error) {
	utils.WriteErrorAndStatusCode(w, err)
}
