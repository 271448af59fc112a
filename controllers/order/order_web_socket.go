package orderControllers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/BrunoLenon/veipecas2025/models"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var (
	wsMu      sync.Mutex // guards wsClients only; never held across a write
	wsClients = make(map[*websocket.Conn]bool)

	// broadcastMu serializes broadcasts so no connection ever sees two
	// concurrent writers.
	broadcastMu sync.Mutex
)

// GET /orders/ws — live feed of newly created orders for back-office screens.
func OrderWebSocketHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	wsMu.Lock()
	wsClients[conn] = true
	wsMu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			wsMu.Lock()
			delete(wsClients, conn)
			wsMu.Unlock()
			break
		}
	}
}

func broadcastNewOrder(order models.Order) {
	data, err := json.Marshal(order)
	if err != nil {
		return
	}

	wsMu.Lock()
	conns := make([]*websocket.Conn, 0, len(wsClients))
	for client := range wsClients {
		conns = append(conns, client)
	}
	wsMu.Unlock()

	// Writes happen outside wsMu so a stalled client cannot block new
	// connections; the deadline bounds how long it can stall this broadcast.
	broadcastMu.Lock()
	var dead []*websocket.Conn
	for _, client := range conns {
		client.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			dead = append(dead, client)
		}
	}
	broadcastMu.Unlock()

	if len(dead) == 0 {
		return
	}
	wsMu.Lock()
	for _, client := range dead {
		delete(wsClients, client)
		client.Close()
	}
	wsMu.Unlock()
}
