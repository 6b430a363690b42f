package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub maintains the set of active websocket clients and broadcasts
// stage-transition events to all of them.
type Hub struct {
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.Mutex
}

// NewHub constructs an empty Hub. Call Run in a goroutine to start
// draining the broadcast channel.
func NewHub() *Hub {
	return &Hub{
		broadcast: make(chan []byte, 256),
		clients:   make(map[*websocket.Conn]bool),
	}
}

// Run drains the broadcast channel and fans each message out to every
// connected client, dropping clients whose write fails or times out.
func (h *Hub) Run() {
	for message := range h.broadcast {
		h.mutex.Lock()
		for client := range h.clients {
			_ = client.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[api] websocket write error: %v", err)
				client.Close()
				delete(h.clients, client)
			}
		}
		h.mutex.Unlock()
	}
}

// Subscribe upgrades the request to a websocket connection and registers
// it with the hub.
func (h *Hub) Subscribe(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[api] websocket upgrade failed: %v", err)
		return
	}

	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()

	go func() {
		defer func() {
			h.mutex.Lock()
			delete(h.clients, conn)
			h.mutex.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[api] websocket error: %v", err)
				}
				break
			}
		}
	}()
}

// Broadcast queues raw bytes for delivery to every connected client.
func (h *Hub) Broadcast(data []byte) {
	h.broadcast <- data
}

// stageEvent is the payload pushed to /api/v1/stream on every investigation
// stage transition.
type stageEvent struct {
	Type            string `json:"type"`
	InvestigationID string `json:"investigationId"`
	TargetAddress   string `json:"targetAddress"`
	Stage           string `json:"stage"`
	Error           string `json:"error,omitempty"`
}

// BroadcastStage marshals a stage transition and pushes it to the hub.
func (h *Hub) BroadcastStage(investigationID, targetAddress, stage, errMsg string) {
	payload, err := json.Marshal(stageEvent{
		Type:            "stage_transition",
		InvestigationID: investigationID,
		TargetAddress:   targetAddress,
		Stage:           stage,
		Error:           errMsg,
	})
	if err != nil {
		log.Printf("[api] failed to marshal stage event: %v", err)
		return
	}
	h.Broadcast(payload)
}
