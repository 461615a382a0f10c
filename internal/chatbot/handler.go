package chatbot

import (
	"context"
	"net/http"
	"strconv"

	"github.com/wolfman30/medcare-assistant/internal/http/respond"
	"github.com/wolfman30/medcare-assistant/internal/identity"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

const (
	detailUnauthenticated = "Could not authenticate user"
	detailUnavailable     = "Failed to communicate with the chatbot."
)

// Assistant is the conversation surface the HTTP handlers drive.
type Assistant interface {
	Handle(ctx context.Context, patientID, text string) (Reply, error)
	State(ctx context.Context, patientID string) (*State, error)
	Reset(ctx context.Context, patientID string) (Reply, error)
}

type Handler struct {
	assistant  Assistant
	transcript Transcript
	logger     *logging.Logger
}

func NewHandler(assistant Assistant, transcript Transcript, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{assistant: assistant, transcript: transcript, logger: logger}
}

type ChatRequest struct {
	UserMessage string `json:"user_message"`
}

func patientFrom(r *http.Request) (string, bool) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok || p.Role != identity.RolePatient {
		return "", false
	}
	return p.UserID, true
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientFrom(r)
	if !ok {
		respond.Detail(w, http.StatusUnauthorized, detailUnauthenticated)
		return
	}
	var req ChatRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Detail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reply, err := h.assistant.Handle(r.Context(), patientID, req.UserMessage)
	if err != nil {
		h.logger.Error("chat request failed", "patient_id", patientID, "error", err)
		respond.Detail(w, http.StatusInternalServerError, detailUnavailable)
		return
	}
	respond.JSON(w, http.StatusOK, reply)
}

// GetState handles GET /chat/state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientFrom(r)
	if !ok {
		respond.Detail(w, http.StatusUnauthorized, detailUnauthenticated)
		return
	}
	state, err := h.assistant.State(r.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to load chat state", "patient_id", patientID, "error", err)
		respond.Detail(w, http.StatusInternalServerError, detailUnavailable)
		return
	}
	respond.JSON(w, http.StatusOK, state)
}

// ResetState handles DELETE /chat/state.
func (h *Handler) ResetState(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientFrom(r)
	if !ok {
		respond.Detail(w, http.StatusUnauthorized, detailUnauthenticated)
		return
	}
	reply, err := h.assistant.Reset(r.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to reset chat", "patient_id", patientID, "error", err)
		respond.Detail(w, http.StatusInternalServerError, detailUnavailable)
		return
	}
	respond.JSON(w, http.StatusOK, reply)
}

// History handles GET /chat/history?limit=N.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientFrom(r)
	if !ok {
		respond.Detail(w, http.StatusUnauthorized, detailUnauthenticated)
		return
	}
	limit := defaultTranscriptLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			respond.Detail(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	entries := []TranscriptEntry{}
	if h.transcript != nil {
		list, err := h.transcript.List(r.Context(), patientID, limit)
		if err != nil {
			h.logger.Error("failed to list chat history", "patient_id", patientID, "error", err)
			respond.Detail(w, http.StatusInternalServerError, "Internal server error occurred while processing your request.")
			return
		}
		if list != nil {
			entries = list
		}
	}
	respond.JSON(w, http.StatusOK, map[string]any{"messages": entries})
}
