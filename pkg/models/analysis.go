package models

import (
	"encoding/json"
	"math"
)

// AddressStats is the per-address performance summary. Computed fresh on every
// call and never mutated afterwards.
type AddressStats struct {
	Address         string  `json:"address"`
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	BreakevenTrades int     `json:"breakeven_trades"`
	WinRate         float64 `json:"win_rate"`
	TotalProfit     float64 `json:"total_profit"`
	TotalLoss       float64 `json:"total_loss"`
	AvgProfit       float64 `json:"avg_profit"`
	AvgLoss         float64 `json:"avg_loss"`
	MaxProfit       float64 `json:"max_profit"`
	MaxLoss         float64 `json:"max_loss"`
	ProfitFactor    float64 `json:"profit_factor"` // +Inf when TotalLoss == 0
	SharpeRatio     float64 `json:"sharpe_ratio"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	MostActiveHour  int     `json:"most_active_hour"`
	MostTraded      string  `json:"most_traded_symbol"`
	MostProfitable  string  `json:"most_profitable_symbol"`
}

// DepthStats summarizes one order-book snapshot.
type DepthStats struct {
	BidVolume        float64 `json:"bid_volume"`
	AskVolume        float64 `json:"ask_volume"`
	BidValue         float64 `json:"bid_value"`
	AskValue         float64 `json:"ask_value"`
	Spread           float64 `json:"spread"`
	SpreadPercentage float64 `json:"spread_percentage"`
	MidPrice         float64 `json:"mid_price"`
	Imbalance        float64 `json:"imbalance"` // -1..1, negative means heavier ask side
}

// TradeFlowStats summarizes recent trade activity for one market.
type TradeFlowStats struct {
	TotalTrades   int     `json:"total_trades"`
	TotalVolume   float64 `json:"total_volume"`
	TotalValue    float64 `json:"total_value"`
	AvgTradeSize  float64 `json:"avg_trade_size"`
	AvgTradeValue float64 `json:"avg_trade_value"`
	BuyRatio      float64 `json:"buy_ratio"`
	PriceTrend    int     `json:"price_trend"` // 1 up, -1 down, 0 flat
	Volatility    float64 `json:"volatility"`
}

// PriceStats carries kline-derived technicals. MA7/MA25/RSI are NaN when the
// window holds fewer candles than the indicator needs.
type PriceStats struct {
	CurrentPrice      float64 `json:"current_price"`
	PriceChange24h    float64 `json:"price_change_24h"`
	PriceChangePct24h float64 `json:"price_change_percentage_24h"`
	High24h           float64 `json:"high_24h"`
	Low24h            float64 `json:"low_24h"`
	Volume24h         float64 `json:"volume_24h"`
	MA7               float64 `json:"ma7"`
	MA25              float64 `json:"ma25"`
	RSI               float64 `json:"rsi"`
	Trend             string  `json:"trend"` // strong_up, up, neutral, down, strong_down
}

// MarketStats is the composed per-market analysis result. A nil sub-result
// means that input was unavailable or empty.
type MarketStats struct {
	Symbol    string          `json:"symbol"`
	Depth     *DepthStats     `json:"market_depth,omitempty"`
	TradeFlow *TradeFlowStats `json:"trade_analysis,omitempty"`
	Price     *PriceStats     `json:"price_analysis,omitempty"`
}

// ActiveMarket pairs a symbol with its analysis for ranked listings.
type ActiveMarket struct {
	Symbol string       `json:"symbol"`
	Stats  *MarketStats `json:"analysis"`
}

// jsonFloat renders non-finite values as null so results survive encoding/json.
func jsonFloat(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func (s AddressStats) MarshalJSON() ([]byte, error) {
	type alias AddressStats
	return json.Marshal(struct {
		alias
		ProfitFactor *float64 `json:"profit_factor"`
		SharpeRatio  *float64 `json:"sharpe_ratio"`
	}{
		alias:        alias(s),
		ProfitFactor: jsonFloat(s.ProfitFactor),
		SharpeRatio:  jsonFloat(s.SharpeRatio),
	})
}

func (s PriceStats) MarshalJSON() ([]byte, error) {
	type alias PriceStats
	return json.Marshal(struct {
		alias
		MA7  *float64 `json:"ma7"`
		MA25 *float64 `json:"ma25"`
		RSI  *float64 `json:"rsi"`
	}{
		alias: alias(s),
		MA7:   jsonFloat(s.MA7),
		MA25:  jsonFloat(s.MA25),
		RSI:   jsonFloat(s.RSI),
	})
}

func (s TradeFlowStats) MarshalJSON() ([]byte, error) {
	type alias TradeFlowStats
	return json.Marshal(struct {
		alias
		Volatility *float64 `json:"volatility"`
	}{
		alias:      alias(s),
		Volatility: jsonFloat(s.Volatility),
	})
}
