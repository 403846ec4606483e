package models

// RawTrade is a trade record as delivered by an exchange API, before numeric
// coercion. Price and quantity arrive as decimal strings; optional fields are
// empty strings or nil when the exchange did not supply them.
type RawTrade struct {
	Address       string   // trader address, empty for anonymous market trades
	Symbol        string
	Price         string
	Quantity      string
	QuoteQuantity string   // price*quantity, if the exchange provides it
	IsBuyerMaker  bool
	Timestamp     int64    // milliseconds since epoch
	Profit        *float64 // realized pnl, when the exchange reports it (Hyperliquid closedPnl)
}

// TradeRecord is the canonical numeric form consumed by the analysis core.
// Records are immutable once produced.
type TradeRecord struct {
	Address      string  `json:"address,omitempty"`
	Symbol       string  `json:"symbol"`
	Price        float64 `json:"price"`
	Quantity     float64 `json:"quantity"`
	QuoteValue   float64 `json:"quoteValue"`
	IsBuyerMaker bool    `json:"isBuyerMaker"`
	Timestamp    int64   `json:"timestamp"`
	Profit       float64 `json:"profit"`
}
