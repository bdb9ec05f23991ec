package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"steam-trader/internal/services/steamauth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 5 * time.Second

// LoginEvent is pushed to websocket subscribers after every login attempt so
// a UI can prompt for the missing captcha, email code or two-factor code.
type LoginEvent struct {
	AttemptID  string                  `json:"attempt_id"`
	Username   string                  `json:"username"`
	Code       steamauth.Code          `json:"code"`
	Challenge  steamauth.ChallengeKind `json:"challenge"`
	CaptchaURL string                  `json:"captcha_url,omitempty"`
	Time       time.Time               `json:"time"`
}

// Hub fans login events out to websocket clients.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]*websocket.Conn
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*websocket.Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and keeps the subscriber until it disconnects.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	id := uuid.NewString()

	h.mu.Lock()
	h.clients[id] = conn
	h.mu.Unlock()

	// subscribers only listen; reading detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(id)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.clients[id]; ok {
		conn.Close()
		delete(h.clients, id)
	}
}

// Subscribers is the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast writes ev to every subscriber, dropping those that fail.
func (h *Hub) Broadcast(ev LoginEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("websocket write to %s failed: %v", id, err)
			conn.Close()
			delete(h.clients, id)
		}
	}
}
