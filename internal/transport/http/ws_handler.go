package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"quiz-session-service/internal/app"

	"github.com/gorilla/websocket"
)

type WSHandler struct {
	service  *app.SessionService
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewWSHandler(service *app.SessionService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Position  int      `json:"position"`
	AnswerIDs []string `json:"answerIds"`
}

type answerAccepted struct {
	Position int `json:"position"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// ServeWS streams session events to a joined player and accepts answers
// over the same connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		writeJSON(w, http.StatusBadRequest, errorPayload{Message: "missing playerId"})
		return
	}

	events, cancel, err := h.service.Subscribe(r.Context(), playerID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", slog.String("player_id", playerID), slog.Any("error", err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(slog.String("player_id", playerID))
	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// gorilla connections allow one concurrent writer; every write goes through send.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("ws write failed", slog.Any("error", err))
				// unblock the reader below
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: "session", Payload: ev}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !enqueue(send, writerDone, h.handleInbound(r, playerID, inbound)) {
			break
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// enqueue hands msg to the writer goroutine. It reports false once the
// writer has exited.
func enqueue(send chan<- outboundMessage, writerDone <-chan struct{}, msg outboundMessage) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func (h *WSHandler) handleInbound(r *http.Request, playerID string, inbound inboundMessage) outboundMessage {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid answer payload")
		}
		if err := h.service.SubmitAnswer(r.Context(), playerID, payload.Position, payload.AnswerIDs); err != nil {
			return errorMessage(err.Error())
		}
		return outboundMessage{Type: "answerAccepted", Payload: answerAccepted{Position: payload.Position}}
	case "status":
		status, err := h.service.GetPlayerStatus(r.Context(), playerID)
		if err != nil {
			return errorMessage(err.Error())
		}
		return outboundMessage{Type: "status", Payload: status}
	default:
		return errorMessage("unsupported message type")
	}
}

func errorMessage(msg string) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: msg}}
}
