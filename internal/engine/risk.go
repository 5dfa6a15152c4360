package engine

import "trade_bot/internal/models"

// risk exit reasons, recorded in the journal action field suffixes
const (
	exitStopLoss   = "stop_loss"
	exitTakeProfit = "take_profit"
	exitTrailing   = "trailing_stop"
	exitDrawdown   = "max_drawdown"
)

// drawdownBreached reports whether equity has fallen past the configured
// share of its peak
func drawdownBreached(totalUSD, peakUSD, maxDrawdownPct float64) bool {
	if peakUSD <= 0 {
		return false
	}
	return totalUSD <= peakUSD*(1-maxDrawdownPct/100)
}

// evaluateRiskExit runs the per-position rules in strict order: stop-loss,
// take-profit, trailing stop. It updates the trailing high as a side
// effect whenever the position is long. Returns the exit reason and true
// when the position must be liquidated.
func evaluateRiskExit(cs *models.CoinState, price, stopLossPct, takeProfitPct, trailingStopPct float64) (string, bool) {
	if !cs.Long() || price <= 0 {
		return "", false
	}
	entry := *cs.PositionEntryPrice

	if (entry-price)/entry >= stopLossPct/100 {
		return exitStopLoss, true
	}
	if (price-entry)/entry >= takeProfitPct/100 {
		return exitTakeProfit, true
	}

	if cs.TrailingHighPrice == nil || price > *cs.TrailingHighPrice {
		high := price
		cs.TrailingHighPrice = &high
	}
	if price <= *cs.TrailingHighPrice*(1-trailingStopPct/100) {
		return exitTrailing, true
	}
	return "", false
}
