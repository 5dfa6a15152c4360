package analysis

import (
	"math"

	"trade_bot/internal/models"
)

// Periods groups the indicator window lengths
type Periods struct {
	MA         int
	BB         int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
	RSI        int
	ATR        int
	Stochastic int
	ADX        int
	Momentum   int
}

// DefaultPeriods matches the standard 14/12/26/9 setup
func DefaultPeriods() Periods {
	return Periods{
		MA:         14,
		BB:         14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		RSI:        14,
		ATR:        14,
		Stochastic: 14,
		ADX:        14,
		Momentum:   10,
	}
}

// CalculateIndicators computes the full bundle for the reference asset and the
// traded asset in one pass so the cross-asset correlation is shared.
// Insufficient history yields neutral fields, never an error.
func CalculateIndicators(reference, asset []models.Candle, p Periods) (models.IndicatorBundle, models.IndicatorBundle) {
	refBundle := calculateBundle(reference, p)
	assetBundle := calculateBundle(asset, p)

	corr := Correlation(closes(reference), closes(asset))
	refBundle.Correlation = corr
	assetBundle.Correlation = corr

	return refBundle, assetBundle
}

func calculateBundle(klines []models.Candle, p Periods) models.IndicatorBundle {
	ind := models.NeutralIndicators()
	if len(klines) == 0 {
		return ind
	}

	prices := closes(klines)

	ind.MovingAvg = MovingAverage(prices, p.MA)
	ind.Bollinger = Bollinger(prices, p.BB)
	ind.MACD = MACDLine(prices, p.MACDFast, p.MACDSlow, p.MACDSignal)
	ind.RSI = RSI(prices, p.RSI)
	ind.ATR = ATR(klines, p.ATR)
	ind.ADX = ADX(klines, p.ADX)
	ind.OBV = OBV(klines)
	ind.Stochastic = StochasticOscillator(klines, p.Stochastic)
	ind.Momentum = Momentum(prices, p.Momentum)

	return ind
}

func closes(klines []models.Candle) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close
	}
	return out
}

// MovingAverage is a simple MA over the last period closes
func MovingAverage(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		period = len(prices)
	}
	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period)
}

// Bollinger returns the 2-sigma bands around the period SMA
func Bollinger(prices []float64, period int) models.BollingerBands {
	if len(prices) < period || period < 2 {
		return models.BollingerBands{}
	}
	window := prices[len(prices)-period:]
	mid := MovingAverage(prices, period)

	variance := 0.0
	for _, p := range window {
		variance += (p - mid) * (p - mid)
	}
	sigma := math.Sqrt(variance / float64(period))

	return models.BollingerBands{
		Upper: mid + 2*sigma,
		Mid:   mid,
		Lower: mid - 2*sigma,
	}
}

func ema(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if len(prices) < period {
		sum := 0.0
		for _, p := range prices {
			sum += p
		}
		return sum / float64(len(prices))
	}

	multiplier := 2.0 / float64(period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	out := sum / float64(period)

	for i := period; i < len(prices); i++ {
		out = prices[i]*multiplier + out*(1-multiplier)
	}
	return out
}

// MACDLine computes the MACD line and its signal line. Needs roughly
// slow+signal closes before the signal line stabilizes; short series return zeros.
func MACDLine(prices []float64, fast, slow, signal int) models.MACD {
	if len(prices) < slow+signal {
		return models.MACD{}
	}

	// build a short series of MACD values to smooth into the signal line
	points := signal + 6
	if points > len(prices)-slow {
		points = len(prices) - slow
	}
	macdValues := make([]float64, 0, points)
	for i := len(prices) - points; i < len(prices); i++ {
		macdValues = append(macdValues, ema(prices[:i+1], fast)-ema(prices[:i+1], slow))
	}

	multiplier := 2.0 / float64(signal+1)
	sig := macdValues[0]
	for _, v := range macdValues[1:] {
		sig = v*multiplier + sig*(1-multiplier)
	}

	return models.MACD{Line: macdValues[len(macdValues)-1], Signal: sig}
}

// RSI over the last period changes; neutral 50 when history is short
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 50
	}

	gains, losses := 0.0, 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ATR is the average true range over the period
func ATR(klines []models.Candle, period int) float64 {
	if len(klines) < period+1 {
		return 0
	}

	sum := 0.0
	for i := len(klines) - period; i < len(klines); i++ {
		tr := math.Max(klines[i].High-klines[i].Low,
			math.Max(math.Abs(klines[i].High-klines[i-1].Close),
				math.Abs(klines[i].Low-klines[i-1].Close)))
		sum += tr
	}
	return sum / float64(period)
}

// ADX measures trend strength via smoothed directional movement
func ADX(klines []models.Candle, period int) float64 {
	if len(klines) < 2*period+1 {
		return 0
	}

	var dxs []float64
	plusSum, minusSum, trSum := 0.0, 0.0, 0.0

	for i := 1; i < len(klines); i++ {
		upMove := klines[i].High - klines[i-1].High
		downMove := klines[i-1].Low - klines[i].Low

		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}

		tr := math.Max(klines[i].High-klines[i].Low,
			math.Max(math.Abs(klines[i].High-klines[i-1].Close),
				math.Abs(klines[i].Low-klines[i-1].Close)))

		plusSum += plusDM
		minusSum += minusDM
		trSum += tr

		if i >= period {
			if i > period {
				// Wilder smoothing: drop 1/period of the running sums
				plusSum -= plusSum / float64(period)
				minusSum -= minusSum / float64(period)
				trSum -= trSum / float64(period)
			}
			if trSum == 0 {
				dxs = append(dxs, 0)
				continue
			}
			plusDI := 100 * plusSum / trSum
			minusDI := 100 * minusSum / trSum
			if plusDI+minusDI == 0 {
				dxs = append(dxs, 0)
				continue
			}
			dxs = append(dxs, 100*math.Abs(plusDI-minusDI)/(plusDI+minusDI))
		}
	}

	if len(dxs) < period {
		return 0
	}
	sum := 0.0
	for _, dx := range dxs[len(dxs)-period:] {
		sum += dx
	}
	return sum / float64(period)
}

// OBV is the cumulative on-balance volume over the whole series
func OBV(klines []models.Candle) float64 {
	obv := 0.0
	for i := 1; i < len(klines); i++ {
		if klines[i].Close > klines[i-1].Close {
			obv += klines[i].Volume
		} else if klines[i].Close < klines[i-1].Close {
			obv -= klines[i].Volume
		}
	}
	return obv
}

// StochasticOscillator returns %K and a 3-period %D
func StochasticOscillator(klines []models.Candle, period int) models.Stochastic {
	if len(klines) < period+2 {
		return models.Stochastic{K: 50, D: 50}
	}

	k := func(end int) float64 {
		lowest, highest := math.MaxFloat64, -math.MaxFloat64
		for _, c := range klines[end-period : end] {
			if c.Low < lowest {
				lowest = c.Low
			}
			if c.High > highest {
				highest = c.High
			}
		}
		if highest == lowest {
			return 50
		}
		return 100 * (klines[end-1].Close - lowest) / (highest - lowest)
	}

	n := len(klines)
	k0 := k(n)
	d := k0
	if n >= period+2 {
		d = (k0 + k(n-1) + k(n-2)) / 3
	}
	return models.Stochastic{K: k0, D: d}
}

// Momentum is the close-to-close difference over the lookback
func Momentum(prices []float64, lookback int) float64 {
	if len(prices) < lookback+1 {
		return 0
	}
	return prices[len(prices)-1] - prices[len(prices)-1-lookback]
}

// Correlation is the Pearson coefficient over the overlapping tail of both series
func Correlation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	a = a[len(a)-n:]
	b = b[len(b)-n:]

	meanA, meanB := 0.0, 0.0
	for i := 0; i < n; i++ {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}
