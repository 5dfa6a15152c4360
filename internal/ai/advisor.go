package ai

import (
	"context"

	"trade_bot/internal/models"
)

// MarketContext is the snapshot handed to every collaborator before a
// trade decision
type MarketContext struct {
	Coin          string
	Price         float64
	Indicators    models.IndicatorBundle
	RefIndicators models.IndicatorBundle
	Candles       []models.Candle
	BalanceUSDT   float64
	BalanceCoin   float64
	EntryPrice    *float64
}

// PricePredictor estimates short-term price direction
type PricePredictor interface {
	Predict(ctx context.Context, mc MarketContext) (*models.MLPrediction, error)
}

// ProfitabilityPredictor estimates whether a trade taken now would close
// in profit
type ProfitabilityPredictor interface {
	PredictProfitability(ctx context.Context, mc MarketContext, action string) (*models.ProfitabilityPrediction, error)
}

// Advisor is the fast LLM consulted on every cycle
type Advisor interface {
	Advise(ctx context.Context, mc MarketContext) (*models.AdvisorSignal, error)
}

// DeepAnalyzer produces the slow comprehensive market analysis
type DeepAnalyzer interface {
	Analyze(ctx context.Context, mc MarketContext) (*models.DeepAnalysis, error)
}
