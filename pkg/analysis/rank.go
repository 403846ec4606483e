package analysis

import (
	"math"
	"sort"

	"tradewatch/pkg/models"
)

// Rank filters a result set by an activity predicate, sorts it descending by
// the metric, and truncates to limit (0 means no truncation). The sort is
// stable, so entities with equal metric values keep their input order. NaN
// metrics rank below everything.
func Rank[T any](items []T, keep func(T) bool, metric func(T) float64, limit int) []T {
	ranked := make([]T, 0, len(items))
	for _, item := range items {
		if keep == nil || keep(item) {
			ranked = append(ranked, item)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return rankValue(metric(ranked[i])) > rankValue(metric(ranked[j]))
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func rankValue(f float64) float64 {
	if math.IsNaN(f) {
		return math.Inf(-1)
	}
	return f
}

// AddressMetric resolves a metric name from the API or CLI to an accessor
// over AddressStats. The second return is false for unknown names.
func AddressMetric(name string) (func(*models.AddressStats) float64, bool) {
	switch name {
	case "", "sharpe_ratio":
		return func(s *models.AddressStats) float64 { return s.SharpeRatio }, true
	case "win_rate":
		return func(s *models.AddressStats) float64 { return s.WinRate }, true
	case "total_profit":
		return func(s *models.AddressStats) float64 { return s.TotalProfit }, true
	case "profit_factor":
		return func(s *models.AddressStats) float64 { return s.ProfitFactor }, true
	case "max_drawdown":
		// Lower drawdown ranks higher.
		return func(s *models.AddressStats) float64 { return -s.MaxDrawdown }, true
	default:
		return nil, false
	}
}
