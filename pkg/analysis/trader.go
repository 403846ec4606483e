package analysis

import (
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"tradewatch/pkg/models"
)

// DefaultMinTrades is the minimum activity threshold applied when ranking
// traders without an explicit override.
const DefaultMinTrades = 10

// TraderAnalyzer computes per-address performance statistics. It holds no
// mutable state; methods are safe to call concurrently on independent inputs.
type TraderAnalyzer struct {
	logger *logrus.Logger
}

func NewTraderAnalyzer(logger *logrus.Logger) *TraderAnalyzer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TraderAnalyzer{logger: logger}
}

// AnalyzeAddress computes the full statistics summary for one address over a
// trade batch. A batch with no trades for the address yields a typed
// KindEmptyInput error so callers can tell "no data" apart from a crash.
func (a *TraderAnalyzer) AnalyzeAddress(trades []models.TradeRecord, address string) (*models.AddressStats, error) {
	if address == "" {
		return nil, errOf(KindEmptyInput, "address is empty")
	}

	var addressTrades []models.TradeRecord
	for _, t := range trades {
		if t.Address == address {
			addressTrades = append(addressTrades, t)
		}
	}
	if len(addressTrades) == 0 {
		a.logger.WithField("address", address).Warn("No trades found for address")
		return nil, errOf(KindEmptyInput, "no trades for address %s", address)
	}

	stats := &models.AddressStats{
		Address:     address,
		TotalTrades: len(addressTrades),
	}

	returns := make([]float64, len(addressTrades))
	for i, t := range addressTrades {
		returns[i] = t.Profit
		switch {
		case t.Profit > 0:
			stats.WinningTrades++
			stats.TotalProfit += t.Profit
			if t.Profit > stats.MaxProfit {
				stats.MaxProfit = t.Profit
			}
		case t.Profit < 0:
			stats.LosingTrades++
			stats.TotalLoss += t.Profit
			if t.Profit < stats.MaxLoss {
				stats.MaxLoss = t.Profit
			}
		default:
			stats.BreakevenTrades++
		}
	}

	stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades)
	if stats.WinningTrades > 0 {
		stats.AvgProfit = stats.TotalProfit / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLoss = stats.TotalLoss / float64(stats.LosingTrades)
	}

	switch {
	case stats.TotalLoss != 0:
		stats.ProfitFactor = math.Abs(stats.TotalProfit / stats.TotalLoss)
	case stats.TotalProfit > 0:
		stats.ProfitFactor = math.Inf(1)
	default:
		stats.ProfitFactor = 0
	}

	stats.SharpeRatio = sharpeRatio(returns)
	// Drawdown runs over the cumulative profit series in arrival order; the
	// batch owner controls ordering, not this engine.
	stats.MaxDrawdown = maxDrawdown(returns)
	stats.MostActiveHour = mostActiveHour(addressTrades)
	stats.MostTraded, stats.MostProfitable = symbolDistribution(addressTrades)

	return stats, nil
}

// FindTopTraders analyzes every distinct address in the batch, drops those
// below the minimum trade count, and returns the rest ranked by Sharpe ratio.
// A failure for one address never aborts the scan.
func (a *TraderAnalyzer) FindTopTraders(trades []models.TradeRecord, minTrades int) []*models.AddressStats {
	if minTrades <= 0 {
		minTrades = DefaultMinTrades
	}

	seen := make(map[string]bool)
	var addresses []string
	for _, t := range trades {
		if t.Address != "" && !seen[t.Address] {
			seen[t.Address] = true
			addresses = append(addresses, t.Address)
		}
	}

	results := make([]*models.AddressStats, 0, len(addresses))
	for _, addr := range addresses {
		stats, err := a.AnalyzeAddress(trades, addr)
		if err != nil {
			if errors.Is(err, ErrEmptyInput) {
				continue
			}
			a.logger.WithError(err).WithField("address", addr).Warn("Skipping address")
			continue
		}
		results = append(results, stats)
	}

	return Rank(results,
		func(s *models.AddressStats) bool { return s.TotalTrades >= minTrades },
		func(s *models.AddressStats) float64 { return s.SharpeRatio },
		0)
}

// mostActiveHour buckets trades by hour of day in host-local time and returns
// the mode. Ties go to the hour encountered first in the batch.
func mostActiveHour(trades []models.TradeRecord) int {
	counts := make(map[int]int)
	var order []int
	for _, t := range trades {
		hour := time.UnixMilli(t.Timestamp).Hour()
		if _, ok := counts[hour]; !ok {
			order = append(order, hour)
		}
		counts[hour]++
	}

	best, bestCount := -1, 0
	for _, hour := range order {
		if counts[hour] > bestCount {
			best, bestCount = hour, counts[hour]
		}
	}
	return best
}

// symbolDistribution reports the most traded and the most profitable symbol
// independently; they may differ.
func symbolDistribution(trades []models.TradeRecord) (mostTraded, mostProfitable string) {
	type symbolStat struct {
		count  int
		profit float64
	}
	stats := make(map[string]*symbolStat)
	var order []string
	for _, t := range trades {
		if t.Symbol == "" {
			continue
		}
		st, ok := stats[t.Symbol]
		if !ok {
			st = &symbolStat{}
			stats[t.Symbol] = st
			order = append(order, t.Symbol)
		}
		st.count++
		st.profit += t.Profit
	}
	if len(order) == 0 {
		return "", ""
	}

	mostTraded, mostProfitable = order[0], order[0]
	for _, sym := range order[1:] {
		if stats[sym].count > stats[mostTraded].count {
			mostTraded = sym
		}
		if stats[sym].profit > stats[mostProfitable].profit {
			mostProfitable = sym
		}
	}
	return mostTraded, mostProfitable
}
