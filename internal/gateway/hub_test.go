package gateway_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/songzhiyuan98/klinelens-go/internal/gateway"
)

func TestHubLastPrice(t *testing.T) {
	hub := gateway.NewHub(zap.NewNop())
	stop := make(chan struct{})
	go hub.Run(stop)
	defer close(stop)

	if _, ok := hub.LastPrice("QQQ"); ok {
		t.Fatal("expected no price before any publish")
	}

	hub.PublishPrice(gateway.PriceTick{Ticker: "QQQ", Price: 624.5, Timestamp: time.Now().UnixMilli()})

	tick, ok := hub.LastPrice("QQQ")
	if !ok {
		t.Fatal("expected a price after publish")
	}
	if tick.Price != 624.5 {
		t.Errorf("price = %v, want 624.5", tick.Price)
	}
}

func TestHubBroadcastsToSubscribedClient(t *testing.T) {
	hub := gateway.NewHub(zap.NewNop())
	stop := make(chan struct{})
	go hub.Run(stop)
	defer close(stop)

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		gateway.NewClient(hub, "test-client", conn).Register()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": "subscribe", "topic": "price:QQQ"}); err != nil {
		t.Fatalf("subscribe write failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	hub.PublishPrice(gateway.PriceTick{Ticker: "QQQ", Price: 625.0, Timestamp: time.Now().UnixMilli()})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(msg), "price:QQQ") {
		t.Errorf("message = %s, want channel price:QQQ", msg)
	}
}
