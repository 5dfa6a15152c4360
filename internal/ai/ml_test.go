package ai

import (
	"context"
	"testing"

	"trade_bot/internal/models"
)

func risingCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	price := 100.0
	for i := range out {
		out[i] = models.Candle{
			Open:   price,
			High:   price * 1.006,
			Low:    price * 0.999,
			Close:  price * 1.005,
			Volume: 1000 + float64(i)*10,
		}
		price *= 1.005
	}
	return out
}

func fallingCandles(n int) []models.Candle {
	out := make([]models.Candle, n)
	price := 100.0
	for i := range out {
		out[i] = models.Candle{
			Open:   price,
			High:   price * 1.001,
			Low:    price * 0.994,
			Close:  price * 0.995,
			Volume: 1000 + float64(i)*10,
		}
		price *= 0.995
	}
	return out
}

func TestPredictorSilentOnShortHistory(t *testing.T) {
	p := NewFeaturePredictor()
	pred, err := p.Predict(context.Background(), MarketContext{
		Coin:    "SOL",
		Price:   100,
		Candles: risingCandles(29),
	})
	if err != nil {
		t.Fatal(err)
	}
	if pred != nil {
		t.Errorf("got %+v on 29 candles, want nil", pred)
	}
}

func TestPredictorFollowsTrend(t *testing.T) {
	p := NewFeaturePredictor()
	ctx := context.Background()

	candles := risingCandles(60)
	up, err := p.Predict(ctx, MarketContext{
		Coin:       "SOL",
		Price:      candles[len(candles)-1].Close,
		Candles:    candles,
		Indicators: models.IndicatorBundle{RSI: 50, Momentum: 5, ATR: 1, MACD: models.MACD{Line: 1, Signal: 0.5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if up.Direction != "up" {
		t.Errorf("steady uptrend predicted %q", up.Direction)
	}
	if up.Confidence < 0 || up.Confidence > 1 {
		t.Errorf("confidence %.4f outside [0, 1]", up.Confidence)
	}

	candles = fallingCandles(60)
	down, err := p.Predict(ctx, MarketContext{
		Coin:       "SOL",
		Price:      candles[len(candles)-1].Close,
		Candles:    candles,
		Indicators: models.IndicatorBundle{RSI: 50, Momentum: -5, ATR: 1, MACD: models.MACD{Line: -1, Signal: -0.5}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if down.Direction != "down" {
		t.Errorf("steady downtrend predicted %q", down.Direction)
	}
}

func TestOutcomePredictorDirectionMatch(t *testing.T) {
	o := NewOutcomePredictor()
	ctx := context.Background()

	candles := risingCandles(60)
	mc := MarketContext{
		Coin:       "SOL",
		Price:      candles[len(candles)-1].Close,
		Candles:    candles,
		Indicators: models.IndicatorBundle{RSI: 50, Momentum: 5, ATR: 1, MACD: models.MACD{Line: 1, Signal: 0.5}},
	}

	buy, err := o.PredictProfitability(ctx, mc, "buy")
	if err != nil {
		t.Fatal(err)
	}
	sell, err := o.PredictProfitability(ctx, mc, "sell")
	if err != nil {
		t.Fatal(err)
	}

	// buying into an uptrend must score higher than selling into it
	if buy.Probability <= sell.Probability {
		t.Errorf("buy p=%.4f <= sell p=%.4f on an uptrend", buy.Probability, sell.Probability)
	}
	if buy.Probability <= 0.5 {
		t.Errorf("buy p=%.4f, want above the 0.5 baseline", buy.Probability)
	}
	if !buy.Profitable {
		t.Error("buy not marked profitable")
	}
}

func TestOutcomePredictorSilentOnShortHistory(t *testing.T) {
	o := NewOutcomePredictor()
	pred, err := o.PredictProfitability(context.Background(), MarketContext{Candles: risingCandles(10)}, "buy")
	if err != nil || pred != nil {
		t.Errorf("got (%+v, %v) on short history, want (nil, nil)", pred, err)
	}
}

func TestClamp(t *testing.T) {
	if clamp(5, 0, 1) != 1 || clamp(-5, 0, 1) != 0 || clamp(0.5, 0, 1) != 0.5 {
		t.Error("clamp misbehaves")
	}
}
