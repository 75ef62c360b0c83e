package http

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"timed-quiz-service/internal/domain"
)

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type questionPayload struct {
	SessionID        string   `json:"sessionId"`
	Index            int      `json:"index"`
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	TotalQuestions   int      `json:"totalQuestions"`
	TimeLimitSeconds int      `json:"timeLimitSeconds"`
}

type timeoutPayload struct {
	QuestionIndex int `json:"questionIndex"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Hub fans session notifications out to the websocket connections subscribed
// to a destination. It implements app.Notifier; writes are serialized under
// the hub lock so concurrent posts never interleave on one connection.
type Hub struct {
	mu           sync.Mutex
	destinations map[string]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		destinations: make(map[string]map[*websocket.Conn]bool),
	}
}

// Register subscribes a connection to a destination.
func (h *Hub) Register(destination string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destinations[destination] == nil {
		h.destinations[destination] = make(map[*websocket.Conn]bool)
	}
	h.destinations[destination][conn] = true
}

// Unregister drops a connection from a destination.
func (h *Hub) Unregister(destination string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.destinations[destination]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.destinations, destination)
		}
	}
}

// Send writes one message to a single connection.
func (h *Hub) Send(conn *websocket.Conn, msg outboundMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("ws: write error: %v", err)
	}
}

func (h *Hub) broadcast(destination string, msg outboundMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.destinations[destination]
	if !ok {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: marshal error: %v", err)
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("ws: write error: %v", err)
			conn.Close()
			delete(conns, conn)
		}
	}
}

func (h *Hub) PostQuestion(_ context.Context, destination, sessionID string, question domain.QuestionView, total, timeLimitSeconds int) error {
	h.broadcast(destination, outboundMessage{Type: "question", Payload: questionPayload{
		SessionID:        sessionID,
		Index:            question.Index,
		Text:             question.Text,
		Options:          question.Options,
		TotalQuestions:   total,
		TimeLimitSeconds: timeLimitSeconds,
	}})
	return nil
}

func (h *Hub) PostOutcome(_ context.Context, destination string, outcome domain.Outcome) error {
	h.broadcast(destination, outboundMessage{Type: "outcome", Payload: outcome})
	return nil
}

func (h *Hub) PostTimeout(_ context.Context, destination string, questionIndex int) error {
	h.broadcast(destination, outboundMessage{Type: "timeout", Payload: timeoutPayload{QuestionIndex: questionIndex}})
	return nil
}

func (h *Hub) PostFinalSummary(_ context.Context, destination string, summary domain.FinalSummary) error {
	h.broadcast(destination, outboundMessage{Type: "summary", Payload: summary})
	return nil
}
