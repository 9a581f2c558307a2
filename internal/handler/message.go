package handler

import (
	"net/http"
	"strconv"

	"github.com/one23four56/backup-google-chat-sub001/internal/domain"
	"github.com/one23four56/backup-google-chat-sub001/internal/errors"
	mw "github.com/one23four56/backup-google-chat-sub001/internal/middleware"
	"github.com/one23four56/backup-google-chat-sub001/internal/utils"
)

const defaultHistoryLimit = 50

// GetMessages returns recent history, oldest first. The optional ?limit=
// query parameter caps the count.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeErrorAndStatusCode(w, &errors.ErrorWithStatusCode{Message: "Invalid limit", StatusCode: http.StatusBadRequest})
			return
		}
		limit = parsed
	}

	msgs := h.messages.Recent(limit)
	if msgs == nil {
		msgs = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

type sendResponse struct {
	Verdict domain.Verdict  `json:"verdict"`
	Message *domain.Message `json:"message,omitempty"`
}

// CreateMessage runs one message from the authenticated user through the
// gate. A rejected message reports its verdict instead of being delivered.
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	user := mw.GetUserFromContext(r)
	if user == nil {
		writeErrorAndStatusCode(w, &errors.ErrorWithStatusCode{Message: "Please sign-in", StatusCode: http.StatusUnauthorized})
		return
	}

	var body struct {
		Text string `validate:"required" json:"text"`
	}
	if err := utils.DecodeValidate(r.Body, &body); err != nil {
		writeErrorAndStatusCode(w, err)
		return
	}

	msg, verdict := h.messages.Send(*user, body.Text)
	if !verdict.Allowed() {
		writeJSON(w, http.StatusUnprocessableEntity, sendResponse{Verdict: verdict})
		return
	}
	writeJSON(w, http.StatusCreated, sendResponse{Verdict: verdict, Message: &msg})
}
