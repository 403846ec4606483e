package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewatch/pkg/models"
)

func TestRank(t *testing.T) {
	type scored struct {
		name  string
		score float64
	}

	metric := func(s scored) float64 { return s.score }

	t.Run("sorts descending", func(t *testing.T) {
		items := []scored{{"b", 2}, {"c", 3}, {"a", 1}}

		ranked := Rank(items, nil, metric, 0)
		require.Len(t, ranked, 3)
		assert.Equal(t, "c", ranked[0].name)
		assert.Equal(t, "b", ranked[1].name)
		assert.Equal(t, "a", ranked[2].name)
	})

	t.Run("stable on ties", func(t *testing.T) {
		items := []scored{{"first", 1}, {"second", 1}, {"third", 1}}

		ranked := Rank(items, nil, metric, 0)
		assert.Equal(t, "first", ranked[0].name)
		assert.Equal(t, "second", ranked[1].name)
		assert.Equal(t, "third", ranked[2].name)
	})

	t.Run("filter then truncate", func(t *testing.T) {
		items := []scored{{"a", 5}, {"b", 1}, {"c", 4}, {"d", 3}}
		keep := func(s scored) bool { return s.score > 1 }

		ranked := Rank(items, keep, metric, 2)
		require.Len(t, ranked, 2)
		assert.Equal(t, "a", ranked[0].name)
		assert.Equal(t, "c", ranked[1].name)
	})

	t.Run("nan ranks last", func(t *testing.T) {
		items := []scored{{"nan", math.NaN()}, {"low", -100}}

		ranked := Rank(items, nil, metric, 0)
		assert.Equal(t, "low", ranked[0].name)
		assert.Equal(t, "nan", ranked[1].name)
	})
}

func TestAddressMetric(t *testing.T) {
	stats := &models.AddressStats{
		SharpeRatio:  1.5,
		WinRate:      0.6,
		TotalProfit:  1000,
		ProfitFactor: 2.5,
		MaxDrawdown:  200,
	}

	tests := []struct {
		name     string
		expected float64
	}{
		{"", 1.5},
		{"sharpe_ratio", 1.5},
		{"win_rate", 0.6},
		{"total_profit", 1000},
		{"profit_factor", 2.5},
		{"max_drawdown", -200},
	}

	for _, tt := range tests {
		metric, ok := AddressMetric(tt.name)
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.expected, metric(stats), tt.name)
	}

	_, ok := AddressMetric("net_worth")
	assert.False(t, ok)
}
