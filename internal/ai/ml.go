package ai

import (
	"context"
	"math"

	"trade_bot/internal/models"
)

// FeaturePredictor is an in-process price predictor. It blends momentum,
// mean-reversion, volume and trend signals extracted from the candle
// history into a direction with a confidence score.
type FeaturePredictor struct {
	momentumWeight      float64
	meanReversionWeight float64
	volumeWeight        float64
	trendWeight         float64
}

func NewFeaturePredictor() *FeaturePredictor {
	return &FeaturePredictor{
		momentumWeight:      0.3,
		meanReversionWeight: 0.2,
		volumeWeight:        0.25,
		trendWeight:         0.25,
	}
}

type priceFeatures struct {
	velocity     float64 // avg of last 5 returns, percent
	acceleration float64
	volatility   float64
	volumeRatio  float64
	buyPressure  float64
	volumeAccel  float64
	trendBias    float64 // -1..1, share of bullish candles
}

func (p *FeaturePredictor) Predict(ctx context.Context, mc MarketContext) (*models.MLPrediction, error) {
	if len(mc.Candles) < 30 {
		return nil, nil // not enough data, collaborator stays silent
	}

	f := extractFeatures(mc.Candles)

	signals := map[string]float64{
		"momentum":       p.momentumSignal(f, mc.Indicators),
		"mean_reversion": p.meanReversionSignal(mc.Price, mc.Indicators),
		"volume":         p.volumeSignal(f),
		"trend":          p.trendSignal(f, mc.Indicators),
	}

	combined := signals["momentum"]*p.momentumWeight +
		signals["mean_reversion"]*p.meanReversionWeight +
		signals["volume"]*p.volumeWeight +
		signals["trend"]*p.trendWeight

	direction := "hold"
	if combined > 0.1 {
		direction = "up"
	} else if combined < -0.1 {
		direction = "down"
	}

	return &models.MLPrediction{
		Direction:  direction,
		Confidence: signalAgreement(signals),
	}, nil
}

func extractFeatures(candles []models.Candle) priceFeatures {
	var f priceFeatures

	returns := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev != 0 {
			returns = append(returns, (candles[i].Close-prev)/prev*100)
		}
	}
	f.volatility = stdDev(returns)

	if len(returns) >= 5 {
		sum := 0.0
		for i := len(returns) - 5; i < len(returns); i++ {
			sum += returns[i]
		}
		f.velocity = sum / 5
	}
	if len(returns) >= 10 {
		var recent, prev float64
		for i := len(returns) - 5; i < len(returns); i++ {
			recent += returns[i]
		}
		for i := len(returns) - 10; i < len(returns)-5; i++ {
			prev += returns[i]
		}
		f.acceleration = (recent - prev) / 5
	}

	if avg := averageVolume(candles, 20); avg > 0 {
		f.volumeRatio = candles[len(candles)-1].Volume / avg
	}

	last := candles[len(candles)-1]
	if rng := last.High - last.Low; rng > 0 {
		f.buyPressure = (last.Close - last.Low) / rng
	}

	if len(candles) >= 10 {
		var recentVol, prevVol float64
		for i := len(candles) - 5; i < len(candles); i++ {
			recentVol += candles[i].Volume
		}
		for i := len(candles) - 10; i < len(candles)-5; i++ {
			prevVol += candles[i].Volume
		}
		if prevVol > 0 {
			f.volumeAccel = (recentVol - prevVol) / prevVol
		}
	}

	bullish := 0
	start := len(candles) - 10
	if start < 0 {
		start = 0
	}
	for i := start; i < len(candles); i++ {
		if candles[i].Close > candles[i].Open {
			bullish++
		}
	}
	f.trendBias = float64(bullish-5) / 5

	return f
}

func (p *FeaturePredictor) momentumSignal(f priceFeatures, ind models.IndicatorBundle) float64 {
	signal := clamp(f.velocity/0.5, -1, 1) * 0.4
	signal += clamp(f.acceleration/0.2, -1, 1) * 0.3
	signal += clamp((ind.MACD.Line-ind.MACD.Signal)/math.Max(math.Abs(ind.MACD.Signal), 0.01), -1, 1) * 0.3
	return clamp(signal, -1, 1)
}

func (p *FeaturePredictor) meanReversionSignal(price float64, ind models.IndicatorBundle) float64 {
	signal := 0.0
	if ind.RSI > 70 {
		signal -= (ind.RSI - 70) / 30
	} else if ind.RSI < 30 {
		signal += (30 - ind.RSI) / 30
	}
	if half := ind.Bollinger.Upper - ind.Bollinger.Mid; half > 0 {
		pos := (price - ind.Bollinger.Mid) / half
		if pos > 1 {
			signal -= (pos - 1) * 0.5
		} else if pos < -1 {
			signal += (-1 - pos) * 0.5
		}
	}
	return clamp(signal, -1, 1)
}

func (p *FeaturePredictor) volumeSignal(f priceFeatures) float64 {
	signal := 0.0
	if f.volumeRatio > 1.5 {
		signal += (f.buyPressure - 0.5) * (f.volumeRatio - 1) * 0.5
	}
	signal += clamp(f.volumeAccel*0.5, -0.5, 0.5)
	return clamp(signal, -1, 1)
}

func (p *FeaturePredictor) trendSignal(f priceFeatures, ind models.IndicatorBundle) float64 {
	signal := f.trendBias * 0.4
	signal += clamp(ind.Momentum/math.Max(ind.ATR, 1e-9)/2, -1, 1) * 0.6
	return clamp(signal, -1, 1)
}

// signalAgreement scores confidence by how many signals point the same way
func signalAgreement(signals map[string]float64) float64 {
	positive, negative := 0, 0
	for _, s := range signals {
		if s > 0.1 {
			positive++
		} else if s < -0.1 {
			negative++
		}
	}
	total := len(signals)
	agree := positive
	if negative > agree {
		agree = negative
	}

	base := float64(agree) / float64(total)
	if agree == total {
		base = 0.9
	}

	strength := 0.0
	for _, s := range signals {
		strength += math.Abs(s)
	}
	strength /= float64(total)

	return clamp(base*0.6+strength*0.4, 0, 1)
}

// OutcomePredictor estimates the probability that a trade taken now would
// close profitably, from the same feature set plus the proposed action
type OutcomePredictor struct {
	price *FeaturePredictor
}

func NewOutcomePredictor() *OutcomePredictor {
	return &OutcomePredictor{price: NewFeaturePredictor()}
}

func (o *OutcomePredictor) PredictProfitability(ctx context.Context, mc MarketContext, action string) (*models.ProfitabilityPrediction, error) {
	pred, err := o.price.Predict(ctx, mc)
	if err != nil || pred == nil {
		return nil, err
	}

	// baseline 0.5, shifted by how well the predicted direction matches
	// the proposed action
	prob := 0.5
	switch {
	case action == "buy" && pred.Direction == "up",
		action == "sell" && pred.Direction == "down":
		prob += 0.3 * pred.Confidence
	case action == "buy" && pred.Direction == "down",
		action == "sell" && pred.Direction == "up":
		prob -= 0.3 * pred.Confidence
	}

	// choppy markets erode the edge
	f := extractFeatures(mc.Candles)
	if f.volatility > 2 {
		prob -= 0.1
	}

	prob = clamp(prob, 0, 1)
	return &models.ProfitabilityPrediction{
		Probability: prob,
		Profitable:  prob >= 0.5,
		Confidence:  pred.Confidence,
	}, nil
}

func averageVolume(candles []models.Candle, period int) float64 {
	if len(candles) < period {
		period = len(candles)
	}
	if period == 0 {
		return 0
	}
	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += candles[i].Volume
	}
	return sum / float64(period)
}

func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
