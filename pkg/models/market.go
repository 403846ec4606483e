package models

import (
	"time"
)

type Market struct {
	Symbol     string `json:"symbol"`
	BaseAsset  string `json:"baseSymbol"`
	QuoteAsset string `json:"quoteSymbol"`
	Status     string `json:"status"`
}

// OrderBook is a depth snapshot with both sides ordered best-first.
type OrderBook struct {
	Symbol    string
	Bids      []OrderBookLevel
	Asks      []OrderBookLevel
	Timestamp time.Time
}

type OrderBookLevel struct {
	Price float64
	Size  float64
}

// BestBid returns the top bid level, or false when the side is empty.
func (ob *OrderBook) BestBid() (OrderBookLevel, bool) {
	if len(ob.Bids) == 0 {
		return OrderBookLevel{}, false
	}
	return ob.Bids[0], true
}

// BestAsk returns the top ask level, or false when the side is empty.
func (ob *OrderBook) BestAsk() (OrderBookLevel, bool) {
	if len(ob.Asks) == 0 {
		return OrderBookLevel{}, false
	}
	return ob.Asks[0], true
}

// Kline is one OHLCV candle. OpenTime/CloseTime are milliseconds since epoch.
type Kline struct {
	OpenTime    int64   `json:"openTime"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	CloseTime   int64   `json:"closeTime"`
	QuoteVolume float64 `json:"quoteVolume"`
	TradeCount  int64   `json:"trades"`
}
