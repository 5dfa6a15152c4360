package engine

import (
	"testing"

	"trade_bot/config"
	"trade_bot/internal/models"
)

func blenderConfig() *config.Config {
	return &config.Config{
		ReferenceCoin: "BTC",
		RSIThreshold:  40,
		MACDThreshold: map[string]float64{"BTC": -50, "SOL": -0.5},
		ADXThreshold:  0.5,
		OBVThreshold:  500,
		Weights:       config.IndicatorWeights{MACD: 0.4, RSI: 0.2, ADX: 0.1, OBV: 0.1},
	}
}

func TestBaseConfidenceAllConditions(t *testing.T) {
	cfg := blenderConfig()
	ref := models.IndicatorBundle{
		MACD: models.MACD{Line: -100}, RSI: 30, ADX: 1, OBV: 1000,
	}
	asset := models.IndicatorBundle{
		MACD: models.MACD{Line: -1}, RSI: 35, ADX: 0.8, OBV: 600,
	}
	if got := BaseConfidence(cfg, "SOL", ref, asset); !almostEqual(got, 0.8) {
		t.Errorf("all four conditions met: got %.4f, want 0.8", got)
	}
}

func TestBaseConfidenceRequiresBothAssets(t *testing.T) {
	cfg := blenderConfig()
	// reference in a deep MACD trough, traded coin is not
	ref := models.IndicatorBundle{MACD: models.MACD{Line: -100}, RSI: 50}
	asset := models.IndicatorBundle{MACD: models.MACD{Line: 2}, RSI: 50}
	if got := BaseConfidence(cfg, "SOL", ref, asset); got != 0 {
		t.Errorf("one-sided trough scored %.4f, want 0", got)
	}

	// low RSI on the coin only
	ref = models.IndicatorBundle{RSI: 55}
	asset = models.IndicatorBundle{RSI: 20}
	if got := BaseConfidence(cfg, "SOL", ref, asset); got != 0 {
		t.Errorf("one-sided RSI scored %.4f, want 0", got)
	}
}

func TestDirection(t *testing.T) {
	if got := Direction(models.IndicatorBundle{Momentum: 3}); got != "buy" {
		t.Errorf("positive momentum: got %q", got)
	}
	if got := Direction(models.IndicatorBundle{Momentum: -3}); got != "sell" {
		t.Errorf("negative momentum: got %q", got)
	}
	if got := Direction(models.IndicatorBundle{}); got != "sell" {
		t.Errorf("zero momentum: got %q, want sell", got)
	}
}

func TestMLBoost(t *testing.T) {
	if got := MLBoost(nil, "buy", 0.6, 0.3); got != 0 {
		t.Errorf("nil prediction: got %.4f", got)
	}
	weak := &models.MLPrediction{Direction: "up", Confidence: 0.5}
	if got := MLBoost(weak, "buy", 0.6, 0.3); got != 0 {
		t.Errorf("below min confidence: got %.4f", got)
	}

	up := &models.MLPrediction{Direction: "up", Confidence: 0.8}
	if got := MLBoost(up, "buy", 0.6, 0.3); !almostEqual(got, 0.24) {
		t.Errorf("agreement: got %.4f, want 0.24", got)
	}
	if got := MLBoost(up, "sell", 0.6, 0.3); !almostEqual(got, -0.24) {
		t.Errorf("disagreement: got %.4f, want -0.24", got)
	}

	hold := &models.MLPrediction{Direction: "hold", Confidence: 0.8}
	if got := MLBoost(hold, "sell", 0.6, 0.3); !almostEqual(got, 0.24) {
		t.Errorf("hold counts as agreement: got %.4f, want 0.24", got)
	}
}

func TestProfitabilityBoost(t *testing.T) {
	if got := ProfitabilityBoost(nil, 0.2); got != 0 {
		t.Errorf("nil: got %.4f", got)
	}
	if got := ProfitabilityBoost(&models.ProfitabilityPrediction{Probability: 0.8}, 0.2); !almostEqual(got, 0.06) {
		t.Errorf("p=0.8: got %.4f, want 0.06", got)
	}
	if got := ProfitabilityBoost(&models.ProfitabilityPrediction{Probability: 0.2}, 0.2); !almostEqual(got, -0.06) {
		t.Errorf("p=0.2: got %.4f, want -0.06", got)
	}
}

func TestAdvisorBoost(t *testing.T) {
	if got := AdvisorBoost(nil, "buy", 0.25); got != 0 {
		t.Errorf("nil: got %.4f", got)
	}
	hold := &models.AdvisorSignal{Signal: "HOLD", ConfidenceScore: 0.9}
	if got := AdvisorBoost(hold, "buy", 0.25); got != 0 {
		t.Errorf("HOLD: got %.4f", got)
	}
	buy := &models.AdvisorSignal{Signal: "BUY", ConfidenceScore: 0.8}
	if got := AdvisorBoost(buy, "buy", 0.25); !almostEqual(got, 0.2) {
		t.Errorf("agreement: got %.4f, want 0.2", got)
	}
	if got := AdvisorBoost(buy, "sell", 0.25); !almostEqual(got, -0.2) {
		t.Errorf("disagreement: got %.4f, want -0.2", got)
	}
}

func TestDeepBoost(t *testing.T) {
	if got := DeepBoost(nil, "buy", 0.35); got != 0 {
		t.Errorf("nil: got %.4f", got)
	}
	hold := &models.DeepAnalysis{RecommendedAction: "HOLD", Confidence: 0.9}
	if got := DeepBoost(hold, "buy", 0.35); got != 0 {
		t.Errorf("HOLD: got %.4f", got)
	}
	sell := &models.DeepAnalysis{RecommendedAction: "SELL", Confidence: 0.6}
	if got := DeepBoost(sell, "sell", 0.35); !almostEqual(got, 0.21) {
		t.Errorf("agreement: got %.4f, want 0.21", got)
	}
	if got := DeepBoost(sell, "buy", 0.35); !almostEqual(got, -0.21) {
		t.Errorf("disagreement: got %.4f, want -0.21", got)
	}
}
