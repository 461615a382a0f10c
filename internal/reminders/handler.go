package reminders

import (
	"net/http"

	"github.com/wolfman30/medcare-assistant/internal/http/respond"
	"github.com/wolfman30/medcare-assistant/internal/identity"
	"github.com/wolfman30/medcare-assistant/pkg/logging"
)

type Handler struct {
	inbox  Inbox
	logger *logging.Logger
}

func NewHandler(inbox Inbox, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{inbox: inbox, logger: logger}
}

// Drain handles GET /chat/reminders: it returns and clears the caller's
// pending reminder messages.
func (h *Handler) Drain(w http.ResponseWriter, r *http.Request) {
	p, ok := identity.PrincipalFromContext(r.Context())
	if !ok || p.Role != identity.RolePatient {
		respond.Detail(w, http.StatusUnauthorized, "Could not authenticate user")
		return
	}
	notices, err := h.inbox.Drain(r.Context(), p.UserID)
	if err != nil {
		h.logger.Error("failed to drain reminders", "patient_id", p.UserID, "error", err)
		respond.Detail(w, http.StatusInternalServerError, "Internal server error occurred while processing your request.")
		return
	}
	messages := make([]string, 0, len(notices))
	for _, n := range notices {
		messages = append(messages, n.Message)
	}
	respond.JSON(w, http.StatusOK, map[string]any{"reminders": messages})
}
