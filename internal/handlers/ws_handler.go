package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/propertindo/pemilu-api/internal/logger"
	"github.com/propertindo/pemilu-api/internal/response"
	"github.com/propertindo/pemilu-api/internal/validation"
	"github.com/propertindo/pemilu-api/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler subscribes clients to per-event turn notifications.
type WSHandler struct {
	hub *ws.Hub
	log *log.Logger
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(hub *ws.Hub) *WSHandler {
	return &WSHandler{
		hub: hub,
		log: logger.Handler("ws"),
	}
}

// Subscribe handles GET /ws/events/:event_id. Clients receive turn and
// selection notifications for the event; inbound frames are discarded.
func (h *WSHandler) Subscribe(c *gin.Context) {
	eventID := c.Param("event_id")
	if err := validation.ValidateUUID(eventID, "event_id"); err != nil {
		response.BadRequestError(c, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "error", err)
		return
	}

	topic := ws.EventTopic(eventID)
	h.hub.AddConnection(topic, conn)
	h.log.Debug("subscriber connected", "topic", topic)

	go h.readLoop(topic, conn)
}

// readLoop drains the connection until the client disconnects so that
// control frames keep being processed.
func (h *WSHandler) readLoop(topic string, conn *websocket.Conn) {
	defer func() {
		h.hub.RemoveConnection(topic, conn)
		conn.Close()
		h.log.Debug("subscriber disconnected", "topic", topic)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
