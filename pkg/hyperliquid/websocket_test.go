package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewatch/pkg/models"
)

func TestDispatchTrades(t *testing.T) {
	var received []models.RawTrade
	ws := NewWebSocketClient(func(trades []models.RawTrade) {
		received = append(received, trades...)
	}, nil)

	ws.dispatchTrades(json.RawMessage(`[
		{"coin":"SOL","side":"B","px":"150.5","sz":"2","time":1700000000000},
		{"coin":"SOL","side":"A","px":"150.6","sz":"1","time":1700000001000}
	]`))

	require.Len(t, received, 2)
	assert.Equal(t, "SOL", received[0].Symbol)
	assert.Equal(t, "150.5", received[0].Price)
	assert.False(t, received[0].IsBuyerMaker)
	assert.True(t, received[1].IsBuyerMaker)
}

func TestDispatchTradesMalformed(t *testing.T) {
	called := false
	ws := NewWebSocketClient(func([]models.RawTrade) { called = true }, nil)

	ws.dispatchTrades(json.RawMessage(`{"not":"an array"}`))
	assert.False(t, called)
}

func TestConnectAndSubscribe(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan []models.RawTrade, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		var req subscribeRequest
		require.NoError(t, conn.ReadJSON(&req))
		assert.Equal(t, "subscribe", req.Method)
		assert.Equal(t, "trades", req.Subscription.Type)
		assert.Equal(t, "SOL", req.Subscription.Coin)

		msg := wsMessage{
			Channel: "trades",
			Data:    json.RawMessage(`[{"coin":"SOL","side":"B","px":"150","sz":"1","time":1700000000000}]`),
		}
		require.NoError(t, conn.WriteJSON(msg))

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ws := NewWebSocketClient(func(trades []models.RawTrade) {
		select {
		case received <- trades:
		default:
		}
	}, nil).WithURL("ws" + strings.TrimPrefix(srv.URL, "http"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, ws.Connect(ctx))
	require.NoError(t, ws.Subscribe("SOL"))

	select {
	case trades := <-received:
		require.Len(t, trades, 1)
		assert.Equal(t, "SOL", trades[0].Symbol)
	case <-time.After(5 * time.Second):
		t.Fatal("no trades received from feed")
	}
}

func TestSubscribeRequiresConnection(t *testing.T) {
	ws := NewWebSocketClient(nil, nil)
	assert.Error(t, ws.Subscribe("SOL"))
}
