package orderControllers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrunoLenon/veipecas2025/models"
)

func clientCount() int {
	wsMu.Lock()
	defer wsMu.Unlock()
	return len(wsClients)
}

func waitForClientCount(t *testing.T, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if clientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client count never reached %d (have %d)", want, clientCount())
}

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestBroadcastReachesOpenClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", OrderWebSocketHandler)
	srv := httptest.NewServer(r)
	defer srv.Close()

	alive := dialWS(t, srv)
	defer alive.Close()
	gone := dialWS(t, srv)
	waitForClientCount(t, 2)

	// A client that went away must not keep the feed from the rest.
	gone.Close()
	waitForClientCount(t, 1)

	broadcastNewOrder(models.Order{
		ID:          "o1",
		OrderNumber: "2026081234",
		UserID:      "u1",
		Status:      models.OrderStatusPending,
	})

	require.NoError(t, alive.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := alive.ReadMessage()
	require.NoError(t, err)

	var got models.Order
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "o1", got.ID)
	assert.Equal(t, "2026081234", got.OrderNumber)
}
