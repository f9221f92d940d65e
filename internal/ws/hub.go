// Package ws carries the real-time broadcast channel of the scheduler. Each
// event gets its own topic; delivery is best effort and never feeds back into
// the turn transitions, so a dead consumer cannot stall the rotation.
package ws

import (
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/propertindo/pemilu-api/internal/logger"
)

// Message is the broadcast envelope sent to subscribed clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// EventTopic names the broadcast topic of one event.
func EventTopic(eventID string) string {
	return "turn-events-" + eventID
}

// Hub fans broadcast messages out to the websocket connections subscribed to
// each topic.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*websocket.Conn]bool
	log    *log.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*websocket.Conn]bool),
		log:    logger.Broadcast(),
	}
}

// AddConnection subscribes a connection to a topic.
func (h *Hub) AddConnection(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*websocket.Conn]bool)
	}
	h.topics[topic][conn] = true
	h.log.Debug("client connected", "topic", topic, "total", len(h.topics[topic]))
}

// RemoveConnection unsubscribes and closes a connection.
func (h *Hub) RemoveConnection(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.topics[topic]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(h.topics, topic)
		}
		h.log.Debug("client disconnected", "topic", topic)
	}
}

// Publish sends a message to every subscriber of the topic. Write failures
// drop the offending connection and nothing else.
func (h *Hub) Publish(topic string, message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.topics[topic]
	if !ok {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("marshal error", "topic", topic, "error", err)
		return
	}

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Debug("write error, dropping client", "topic", topic, "error", err)
			conn.Close()
			delete(conns, conn)
		}
	}
}

// SubscriberCount reports how many clients a topic currently has.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
