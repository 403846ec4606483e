package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"tradewatch/pkg/models"
)

// TradeHandler receives each batch of live trades from the feed.
type TradeHandler func(trades []models.RawTrade)

// WebSocketClient streams live trades for subscribed markets. Snapshots from
// the feed supplement the REST poller between collector refreshes.
type WebSocketClient struct {
	url           string
	conn          *websocket.Conn
	mu            sync.Mutex
	connected     bool
	subscriptions map[string]bool
	handler       TradeHandler
	logger        *logrus.Logger
}

type subscribeRequest struct {
	Method       string       `json:"method"`
	Subscription subscription `json:"subscription"`
}

type subscription struct {
	Type string `json:"type"`
	Coin string `json:"coin"`
}

type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type wsTrade struct {
	Coin string `json:"coin"`
	Side string `json:"side"`
	Px   string `json:"px"`
	Sz   string `json:"sz"`
	Time int64  `json:"time"`
}

func NewWebSocketClient(handler TradeHandler, logger *logrus.Logger) *WebSocketClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &WebSocketClient{
		url:           mainnetWSURL,
		subscriptions: make(map[string]bool),
		handler:       handler,
		logger:        logger,
	}
}

// WithURL overrides the feed endpoint, for tests.
func (ws *WebSocketClient) WithURL(url string) *WebSocketClient {
	ws.url = url
	return ws
}

func (ws *WebSocketClient) Connect(ctx context.Context) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.connected {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, ws.url, nil)
	if err != nil {
		return fmt.Errorf("connect trade feed: %w", err)
	}

	ws.conn = conn
	ws.connected = true

	go ws.readLoop(ctx)
	go ws.keepAlive(ctx)

	return nil
}

// Subscribe requests the live trade stream for a market.
func (ws *WebSocketClient) Subscribe(symbol string) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if !ws.connected {
		return fmt.Errorf("trade feed not connected")
	}
	if ws.subscriptions[symbol] {
		return nil
	}

	req := subscribeRequest{
		Method:       "subscribe",
		Subscription: subscription{Type: "trades", Coin: symbol},
	}
	if err := ws.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("subscribe %s: %w", symbol, err)
	}
	ws.subscriptions[symbol] = true
	return nil
}

func (ws *WebSocketClient) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			ws.handleDisconnect()
			return
		default:
			var msg wsMessage
			if err := ws.conn.ReadJSON(&msg); err != nil {
				ws.logger.WithError(err).Error("Failed to read trade feed message")
				ws.handleDisconnect()
				return
			}
			if msg.Channel != "trades" {
				continue
			}
			ws.dispatchTrades(msg.Data)
		}
	}
}

func (ws *WebSocketClient) dispatchTrades(data json.RawMessage) {
	var wire []wsTrade
	if err := json.Unmarshal(data, &wire); err != nil {
		ws.logger.WithError(err).Warn("Malformed trade feed payload")
		return
	}

	trades := make([]models.RawTrade, len(wire))
	for i, t := range wire {
		trades[i] = models.RawTrade{
			Symbol:       t.Coin,
			Price:        t.Px,
			Quantity:     t.Sz,
			Timestamp:    t.Time,
			IsBuyerMaker: t.Side != "B",
		}
	}
	if ws.handler != nil {
		ws.handler(trades)
	}
}

func (ws *WebSocketClient) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ws.mu.Lock()
			if ws.connected {
				if err := ws.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					ws.logger.WithError(err).Error("Failed to send ping")
					ws.mu.Unlock()
					ws.handleDisconnect()
					return
				}
			}
			ws.mu.Unlock()
		}
	}
}

func (ws *WebSocketClient) handleDisconnect() {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	ws.connected = false
	if ws.conn != nil {
		ws.conn.Close()
	}
}
