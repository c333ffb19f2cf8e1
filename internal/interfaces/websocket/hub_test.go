package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/shoe-pos/internal/config"
	"github.com/your-org/shoe-pos/internal/domain/events"
	"github.com/your-org/shoe-pos/internal/pkg/logger"
)

func setupHub(t *testing.T, origins ...string) (*Hub, string) {
	gin.SetMode(gin.TestMode)
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	hub := NewHub(config.RealtimeConfig{
		Enabled:      true,
		WriteTimeout: time.Second,
		PingInterval: time.Second,
		SendBuffer:   8,
	}, origins, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	router := gin.New()
	router.GET("/ws", hub.ServeWS)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub, url := setupHub(t)
	a := dial(t, url)
	b := dial(t, url)

	require.Eventually(t, func() bool { return hub.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), events.NewStockChanged(4, 9)))

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)

		var evt events.Event
		require.NoError(t, json.Unmarshal(payload, &evt))
		assert.Equal(t, events.StockChanged, evt.Type)
		assert.Equal(t, uint(4), evt.ShoeID)
		assert.Equal(t, 9, *evt.CurrentStock)
	}
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	hub, url := setupHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsForeignOrigin(t *testing.T) {
	_, url := setupHub(t, "http://localhost:3000")

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"http://localhost:3000"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(config.RealtimeConfig{}, []string{"*"}, logger.Discard())

	// No Run loop: the queue fills and further events are dropped.
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.Broadcast(events.NewSaleCompleted(uint(i)))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast blocked")
	}
}
