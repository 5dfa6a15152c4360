package analysis

import (
	"math"
	"testing"

	"trade_bot/internal/models"
)

// downtrend builds n candles falling linearly from start
func downtrend(n int, start, step float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		close := start - float64(i)*step
		out[i] = models.Candle{
			Open:   close + step,
			High:   close + step,
			Low:    close - step/2,
			Close:  close,
			Volume: 1000,
		}
	}
	return out
}

func uptrend(n int, start, step float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		close := start + float64(i)*step
		out[i] = models.Candle{
			Open:   close - step,
			High:   close + step/2,
			Low:    close - step,
			Close:  close,
			Volume: 1000,
		}
	}
	return out
}

func TestShortHistoryIsNeutral(t *testing.T) {
	ref, asset := CalculateIndicators(downtrend(3, 100, 1), downtrend(3, 50, 1), DefaultPeriods())

	for name, b := range map[string]models.IndicatorBundle{"ref": ref, "asset": asset} {
		if b.RSI != 50 {
			t.Errorf("%s RSI = %.2f on 3 candles, want neutral 50", name, b.RSI)
		}
		if b.MACD.Line != 0 || b.MACD.Signal != 0 {
			t.Errorf("%s MACD = %+v on 3 candles, want zeros", name, b.MACD)
		}
		if b.ADX != 0 || b.ATR != 0 {
			t.Errorf("%s ADX=%.2f ATR=%.2f on 3 candles, want zeros", name, b.ADX, b.ATR)
		}
	}
}

func TestRSIDirection(t *testing.T) {
	p := DefaultPeriods()

	down, _ := CalculateIndicators(downtrend(100, 200, 0.5), downtrend(100, 200, 0.5), p)
	if down.RSI >= 50 {
		t.Errorf("RSI = %.2f on a steady downtrend, want below 50", down.RSI)
	}
	up, _ := CalculateIndicators(uptrend(100, 100, 0.5), uptrend(100, 100, 0.5), p)
	if up.RSI <= 50 {
		t.Errorf("RSI = %.2f on a steady uptrend, want above 50", up.RSI)
	}
	if down.RSI < 0 || down.RSI > 100 || up.RSI < 0 || up.RSI > 100 {
		t.Error("RSI outside [0, 100]")
	}
}

func TestMomentumSign(t *testing.T) {
	p := DefaultPeriods()
	up, _ := CalculateIndicators(uptrend(50, 100, 1), uptrend(50, 100, 1), p)
	if up.Momentum <= 0 {
		t.Errorf("Momentum = %.2f on an uptrend", up.Momentum)
	}
	down, _ := CalculateIndicators(downtrend(50, 100, 1), downtrend(50, 100, 1), p)
	if down.Momentum >= 0 {
		t.Errorf("Momentum = %.2f on a downtrend", down.Momentum)
	}
}

func TestOBVSign(t *testing.T) {
	if obv := OBV(uptrend(20, 100, 1)); obv <= 0 {
		t.Errorf("OBV = %.0f on rising closes, want positive", obv)
	}
	if obv := OBV(downtrend(20, 100, 1)); obv >= 0 {
		t.Errorf("OBV = %.0f on falling closes, want negative", obv)
	}
}

func TestBollingerOrdering(t *testing.T) {
	prices := []float64{100, 102, 98, 101, 99, 103, 97, 100, 102, 98, 101, 99, 103, 97}
	bb := Bollinger(prices, 14)
	if !(bb.Lower < bb.Mid && bb.Mid < bb.Upper) {
		t.Errorf("bands out of order: %+v", bb)
	}
	if math.Abs(bb.Mid-MovingAverage(prices, 14)) > 1e-9 {
		t.Error("mid band disagrees with the SMA")
	}
}

func TestCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	if c := Correlation(a, a); math.Abs(c-1) > 1e-9 {
		t.Errorf("self correlation = %.4f, want 1", c)
	}
	b := []float64{5, 4, 3, 2, 1}
	if c := Correlation(a, b); math.Abs(c+1) > 1e-9 {
		t.Errorf("inverse correlation = %.4f, want -1", c)
	}
	flat := []float64{3, 3, 3, 3, 3}
	if c := Correlation(a, flat); c != 0 {
		t.Errorf("flat series correlation = %.4f, want 0", c)
	}
	if c := Correlation([]float64{1}, []float64{1}); c != 0 {
		t.Errorf("single point correlation = %.4f, want 0", c)
	}
}

func TestSharedCorrelation(t *testing.T) {
	ref, asset := CalculateIndicators(uptrend(60, 100, 1), uptrend(60, 50, 0.5), DefaultPeriods())
	if ref.Correlation != asset.Correlation {
		t.Error("correlation must be shared across both bundles")
	}
	if ref.Correlation < 0.99 {
		t.Errorf("correlation = %.4f on two linear uptrends, want ~1", ref.Correlation)
	}
}

func TestStochasticBounds(t *testing.T) {
	st := StochasticOscillator(uptrend(30, 100, 1), 14)
	if st.K < 0 || st.K > 100 || st.D < 0 || st.D > 100 {
		t.Errorf("stochastic out of bounds: %+v", st)
	}
	// closes keep printing near the highs on a steady uptrend
	if st.K < 50 {
		t.Errorf("K = %.2f on an uptrend, want high", st.K)
	}
}
