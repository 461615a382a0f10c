package chatbot

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"
)

// InboundFrame is what a websocket client sends.
type InboundFrame struct {
	Type string `json:"type"` // "message" or "ping"
	Text string `json:"text"`
}

// OutboundFrame is what the server pushes back.
type OutboundFrame struct {
	Type      string            `json:"type"` // "reply", "history", "pong", "error"
	Text      string            `json:"text,omitempty"`
	Stage     Stage             `json:"stage,omitempty"`
	Doctors   []DoctorRef       `json:"doctors,omitempty"`
	Messages  []TranscriptEntry `json:"messages,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
}

// WebSocket handles GET /chat/ws. The caller is authenticated before the
// upgrade; each inbound message runs one engine turn.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	patientID, ok := patientFrom(r)
	if !ok {
		http.Error(w, detailUnauthenticated, http.StatusUnauthorized)
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r, patientID)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request, patientID string) {
	ctx := r.Context()

	if h.transcript != nil {
		if msgs, err := h.transcript.List(ctx, patientID, defaultTranscriptLimit); err == nil && len(msgs) > 0 {
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "history", Messages: msgs})
		}
	}
	h.logger.Info("chat websocket opened", "patient_id", patientID)

	for {
		var frame InboundFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			h.logger.Debug("chat websocket closed", "patient_id", patientID, "error", err)
			return
		}
		if frame.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "pong"})
			continue
		}
		if frame.Type != "message" || strings.TrimSpace(frame.Text) == "" {
			continue
		}

		reply, err := h.assistant.Handle(ctx, patientID, frame.Text)
		if err != nil {
			h.logger.Error("chat websocket turn failed", "patient_id", patientID, "error", err)
			_ = websocket.JSON.Send(conn, OutboundFrame{Type: "error", Text: detailUnavailable})
			continue
		}
		_ = websocket.JSON.Send(conn, OutboundFrame{
			Type:      "reply",
			Text:      reply.Response,
			Stage:     reply.Stage,
			Doctors:   reply.Doctors,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}
