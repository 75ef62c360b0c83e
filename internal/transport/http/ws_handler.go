package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

// WSHandler wires websocket clients into the quiz runner: a connection can
// start a solo or group run, join a running group session by id, and submit
// answers. Question, outcome, timeout, and summary traffic flows back through
// the hub.
type WSHandler struct {
	runner   *app.Runner
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(runner *app.Runner, hub *Hub) *WSHandler {
	return &WSHandler{
		runner: runner,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	QuizID string      `json:"quizId"`
	Mode   domain.Mode `json:"mode"`
}

type joinPayload struct {
	SessionID string `json:"sessionId"`
}

type answerPayload struct {
	SessionID     string `json:"sessionId"`
	QuestionIndex int    `json:"questionIndex"`
	OptionIndex   int    `json:"optionIndex"`
}

// ServeWS upgrades the request and runs the per-connection read loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Destinations this connection subscribed to, for cleanup on close.
	subscribed := make(map[string]bool)
	defer func() {
		for destination := range subscribed {
			h.hub.Unregister(destination, conn)
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, "invalid start payload")
				continue
			}
			mode := payload.Mode
			if mode == "" {
				mode = domain.ModeSolo
			}

			// Subscribe before starting so question zero reaches this client.
			destination := "ws:" + uuid.NewString()
			h.hub.Register(destination, conn)
			subscribed[destination] = true

			view, err := h.runner.StartQuiz(r.Context(), mode, payload.QuizID, userID, destination)
			if err != nil {
				h.hub.Unregister(destination, conn)
				delete(subscribed, destination)
				h.sendError(conn, err.Error())
				continue
			}
			h.hub.Send(conn, outboundMessage{Type: "started", Payload: view})

		case "join":
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, "invalid join payload")
				continue
			}
			view, ok := h.runner.Session(payload.SessionID)
			if !ok {
				h.sendError(conn, domain.ErrSessionNotFound.Error())
				continue
			}
			h.hub.Register(view.Destination, conn)
			subscribed[view.Destination] = true
			h.hub.Send(conn, outboundMessage{Type: "joined", Payload: view})

		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.sendError(conn, "invalid answer payload")
				continue
			}
			_, err := h.runner.HandleAnswer(r.Context(), payload.SessionID, payload.QuestionIndex, userID, payload.OptionIndex)
			if err != nil {
				h.sendError(conn, rejectionMessage(err))
			}
			// Accepted answers surface through the hub as an outcome post.

		default:
			h.sendError(conn, "unsupported message type")
		}
	}
}

func (h *WSHandler) sendError(conn *websocket.Conn, message string) {
	h.hub.Send(conn, outboundMessage{Type: "error", Payload: errorPayload{Message: message}})
}

// rejectionMessage keeps benign race losses soft for clients.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrStaleAnswer):
		return "too late, the quiz moved on"
	case errors.Is(err, domain.ErrAlreadyAnswered):
		return "you already answered this question"
	case errors.Is(err, domain.ErrDuplicateAnswer):
		return "this quiz belongs to another user"
	default:
		return err.Error()
	}
}
