package analysis

import (
	"sort"

	"github.com/sirupsen/logrus"

	"tradewatch/pkg/models"
)

// Default activity thresholds for the market scan.
const (
	DefaultMarketMinTrades = 100
	DefaultMarketMinVolume = 1000
)

// Price-trend classification threshold: relative moves within 0.1% count as
// flat.
const trendThreshold = 0.001

// MarketAnalyzer computes order-book, trade-flow and kline-derived statistics
// for a market. Stateless; safe for concurrent use on independent inputs.
type MarketAnalyzer struct {
	logger *logrus.Logger
}

func NewMarketAnalyzer(logger *logrus.Logger) *MarketAnalyzer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &MarketAnalyzer{logger: logger}
}

// AnalyzeMarket composes the three sub-analyses for one symbol. Sub-results
// whose input is empty come back nil; the call only fails (KindEmptyInput)
// when every input was empty.
func (a *MarketAnalyzer) AnalyzeMarket(symbol string, book *models.OrderBook, trades []models.TradeRecord, klines []models.Kline) (*models.MarketStats, error) {
	stats := &models.MarketStats{Symbol: symbol}

	if book != nil {
		depth, err := a.analyzeDepth(book)
		if err != nil {
			a.logger.WithError(err).WithField("symbol", symbol).Debug("Depth analysis skipped")
		} else {
			stats.Depth = depth
		}
	}

	if len(trades) > 0 {
		stats.TradeFlow = a.analyzeTradeFlow(trades)
	}
	if len(klines) > 0 {
		stats.Price = a.analyzePrice(klines)
	}

	if stats.Depth == nil && stats.TradeFlow == nil && stats.Price == nil {
		return nil, errOf(KindEmptyInput, "no data for market %s", symbol)
	}
	return stats, nil
}

// analyzeDepth summarizes an order-book snapshot. Both sides must be
// populated; a one-sided book has no spread or mid price to report.
func (a *MarketAnalyzer) analyzeDepth(book *models.OrderBook) (*models.DepthStats, error) {
	bestBid, okBid := book.BestBid()
	bestAsk, okAsk := book.BestAsk()
	if !okBid || !okAsk {
		return nil, errOf(KindEmptyInput, "order book side empty: %d bids, %d asks", len(book.Bids), len(book.Asks))
	}

	stats := &models.DepthStats{}
	for _, level := range book.Bids {
		stats.BidVolume += level.Size
		stats.BidValue += level.Price * level.Size
	}
	for _, level := range book.Asks {
		stats.AskVolume += level.Size
		stats.AskValue += level.Price * level.Size
	}

	stats.Spread = bestAsk.Price - bestBid.Price
	stats.MidPrice = (bestBid.Price + bestAsk.Price) / 2
	if stats.MidPrice != 0 {
		stats.SpreadPercentage = stats.Spread / stats.MidPrice * 100
	}

	totalVolume := stats.BidVolume + stats.AskVolume
	if totalVolume > 0 {
		stats.Imbalance = (stats.BidVolume - stats.AskVolume) / totalVolume
	}
	return stats, nil
}

// analyzeTradeFlow summarizes recent trades. The list is held newest-first;
// an explicit sort enforces that instead of trusting the venue's ordering.
func (a *MarketAnalyzer) analyzeTradeFlow(trades []models.TradeRecord) *models.TradeFlowStats {
	sorted := make([]models.TradeRecord, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})

	stats := &models.TradeFlowStats{TotalTrades: len(sorted)}
	takerBuys := 0
	for _, t := range sorted {
		stats.TotalVolume += t.Quantity
		stats.TotalValue += t.QuoteValue
		if !t.IsBuyerMaker {
			takerBuys++
		}
	}
	n := float64(stats.TotalTrades)
	stats.AvgTradeSize = stats.TotalVolume / n
	stats.AvgTradeValue = stats.TotalValue / n
	stats.BuyRatio = float64(takerBuys) / n

	oldest := sorted[len(sorted)-1].Price
	newest := sorted[0].Price
	if oldest != 0 {
		change := (newest - oldest) / oldest
		switch {
		case change > trendThreshold:
			stats.PriceTrend = 1
		case change < -trendThreshold:
			stats.PriceTrend = -1
		}
	}

	// Period-over-period returns taken chronologically; scaled by sqrt of the
	// trade count, not calendar time.
	var returns []float64
	for i := len(sorted) - 1; i > 0; i-- {
		prev := sorted[i].Price
		if prev == 0 {
			continue
		}
		returns = append(returns, (sorted[i-1].Price-prev)/prev)
	}
	stats.Volatility = sampleStddev(returns) * sqrtN(stats.TotalTrades)

	return stats
}

// analyzePrice derives technicals from hourly klines. Klines are normalized
// to oldest-first before indexing; the venues disagree on delivery order.
func (a *MarketAnalyzer) analyzePrice(klines []models.Kline) *models.PriceStats {
	sorted := make([]models.Kline, len(klines))
	copy(sorted, klines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenTime < sorted[j].OpenTime
	})

	closes := make([]float64, len(sorted))
	stats := &models.PriceStats{
		High24h: sorted[0].High,
		Low24h:  sorted[0].Low,
	}
	for i, k := range sorted {
		closes[i] = k.Close
		stats.Volume24h += k.Volume
		if k.High > stats.High24h {
			stats.High24h = k.High
		}
		if k.Low < stats.Low24h {
			stats.Low24h = k.Low
		}
	}

	stats.CurrentPrice = closes[len(closes)-1]
	first := closes[0]
	stats.PriceChange24h = stats.CurrentPrice - first
	if first != 0 {
		stats.PriceChangePct24h = stats.PriceChange24h / first * 100
	}

	stats.MA7 = sma(closes, 7)
	stats.MA25 = sma(closes, 25)
	stats.RSI = rsi(closes, 14)
	stats.Trend = classifyTrend(stats.CurrentPrice, stats.MA7, stats.MA25, stats.RSI)

	return stats
}

// classifyTrend labels the price position relative to its moving averages.
// NaN indicators fail every comparison, so thin history lands in neutral.
func classifyTrend(price, ma7, ma25, rsiValue float64) string {
	switch {
	case price > ma7 && ma7 > ma25 && rsiValue > 70:
		return "strong_up"
	case price > ma7 && ma7 > ma25:
		return "up"
	case price < ma7 && ma7 < ma25 && rsiValue < 30:
		return "strong_down"
	case price < ma7 && ma7 < ma25:
		return "down"
	default:
		return "neutral"
	}
}

// FindActiveMarkets keeps markets meeting the activity thresholds and ranks
// them by total traded value. Markets without trade-flow data are excluded,
// never treated as failures.
func (a *MarketAnalyzer) FindActiveMarkets(markets []models.ActiveMarket, minTrades int, minVolume float64) []models.ActiveMarket {
	if minTrades <= 0 {
		minTrades = DefaultMarketMinTrades
	}
	if minVolume <= 0 {
		minVolume = DefaultMarketMinVolume
	}

	return Rank(markets,
		func(m models.ActiveMarket) bool {
			return m.Stats != nil && m.Stats.TradeFlow != nil &&
				m.Stats.TradeFlow.TotalTrades >= minTrades &&
				m.Stats.TradeFlow.TotalValue >= minVolume
		},
		func(m models.ActiveMarket) float64 {
			return m.Stats.TradeFlow.TotalValue
		},
		0)
}
