package analysis

import (
	"math"
)

const (
	annualRiskFreeRate = 0.02
	tradingDaysPerYear = 252
)

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation. The Sharpe computation uses it
// to keep the established scoring.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sumSq := 0.0
	for _, x := range xs {
		sumSq += (x - m) * (x - m)
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// sampleStddev divides by n-1. Volatility is estimated from a sample of recent
// returns, so it takes the Bessel-corrected form.
func sampleStddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	sumSq := 0.0
	for _, x := range xs {
		sumSq += (x - m) * (x - m)
	}
	return math.Sqrt(sumSq / float64(len(xs)-1))
}

// sharpeRatio treats each trade's profit as one return observation and
// annualizes by sqrt(252) as if each were a trading day. That keeps the
// established scoring; it is not a calendar-time Sharpe.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	dailyRF := annualRiskFreeRate / tradingDaysPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - dailyRF
	}
	sd := stddev(excess)
	if sd == 0 {
		return 0
	}
	return mean(excess) / sd * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown computes the largest peak-to-trough decline of the cumulative
// profit series, taken in the order the trades arrived.
func maxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	cumulative := 0.0
	peak := math.Inf(-1)
	worst := 0.0
	for _, r := range returns {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > worst {
			worst = dd
		}
	}
	return worst
}

func sqrtN(n int) float64 {
	return math.Sqrt(float64(n))
}

// sma returns the simple moving average of the last period values of xs, or
// NaN when there is not enough history. NaN propagates to the caller rather
// than being replaced by a default.
func sma(xs []float64, period int) float64 {
	if period <= 0 || len(xs) < period {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs[len(xs)-period:] {
		sum += x
	}
	return sum / float64(period)
}

// rsi computes a 14-style RSI from the average gain/loss over the last
// period deltas. Conventions for the degenerate cases:
// zero average loss with positive average gain is 100, and a flat series
// (both averages zero) is 50.
func rsi(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return math.NaN()
	}
	gains, losses := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses -= delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
