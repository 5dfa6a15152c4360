package engine

import (
	"trade_bot/config"
	"trade_bot/internal/models"
)

// BaseConfidence sums the weighted indicator conditions across the traded
// coin and the reference asset. Each condition contributes its weight only
// when satisfied on BOTH assets. The MACD test is a trough test against a
// negative threshold (mean-reversion entry, not a cross signal) and the
// RSI test only fires on the low side; the trade direction comes from
// momentum, not from these conditions.
func BaseConfidence(cfg *config.Config, coin string, ref, asset models.IndicatorBundle) float64 {
	confidence := 0.0

	refMACDThresh := cfg.MACDThreshold[cfg.ReferenceCoin]
	coinMACDThresh := cfg.MACDThreshold[coin]
	if ref.MACD.Line < refMACDThresh && asset.MACD.Line < coinMACDThresh {
		confidence += cfg.Weights.MACD
	}

	if ref.RSI < cfg.RSIThreshold && asset.RSI < cfg.RSIThreshold {
		confidence += cfg.Weights.RSI
	}

	if ref.ADX > cfg.ADXThreshold && asset.ADX > cfg.ADXThreshold {
		confidence += cfg.Weights.ADX
	}

	if ref.OBV > cfg.OBVThreshold && asset.OBV > cfg.OBVThreshold {
		confidence += cfg.Weights.OBV
	}

	return confidence
}

// Direction picks the trade side from the reference asset's momentum sign
func Direction(ref models.IndicatorBundle) string {
	if ref.Momentum > 0 {
		return "buy"
	}
	return "sell"
}

// MLBoost converts an optional price prediction into an additive
// confidence term: agreement with the indicator direction (or a hold
// verdict) adds, disagreement subtracts. A nil prediction or one below the
// minimum confidence contributes nothing.
func MLBoost(pred *models.MLPrediction, direction string, minConfidence, weight float64) float64 {
	if pred == nil || pred.Confidence < minConfidence {
		return 0
	}
	agrees := pred.Direction == "hold" ||
		(pred.Direction == "up" && direction == "buy") ||
		(pred.Direction == "down" && direction == "sell")
	if agrees {
		return pred.Confidence * weight
	}
	return -pred.Confidence * weight
}

// ProfitabilityBoost is sign-symmetric around the 0.5 decision boundary
func ProfitabilityBoost(pred *models.ProfitabilityPrediction, weight float64) float64 {
	if pred == nil {
		return 0
	}
	return (pred.Probability - 0.5) * weight
}

// AdvisorBoost folds the fast LLM's opinion into the confidence score
func AdvisorBoost(sig *models.AdvisorSignal, direction string, weight float64) float64 {
	if sig == nil || sig.Signal == "HOLD" {
		return 0
	}
	agrees := (sig.Signal == "BUY" && direction == "buy") ||
		(sig.Signal == "SELL" && direction == "sell")
	if agrees {
		return sig.ConfidenceScore * weight
	}
	return -sig.ConfidenceScore * weight
}

// DeepBoost rewards agreement between the slow analysis and the indicator
// direction; a HOLD verdict neither helps nor hurts
func DeepBoost(analysis *models.DeepAnalysis, direction string, weight float64) float64 {
	if analysis == nil || analysis.RecommendedAction == "HOLD" {
		return 0
	}
	agrees := (analysis.RecommendedAction == "BUY" && direction == "buy") ||
		(analysis.RecommendedAction == "SELL" && direction == "sell")
	if agrees {
		return analysis.Confidence * weight
	}
	return -analysis.Confidence * weight
}
