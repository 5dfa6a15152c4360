package models

import "time"

// Candle is a single OHLCV bar; slices are chronological (oldest first)
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// MACD holds the MACD line and its signal line
type MACD struct {
	Line   float64
	Signal float64
}

// BollingerBands upper/middle/lower
type BollingerBands struct {
	Upper float64
	Mid   float64
	Lower float64
}

// Stochastic oscillator %K and %D
type Stochastic struct {
	K float64
	D float64
}

// IndicatorBundle is recomputed wholesale every refresh cycle
type IndicatorBundle struct {
	MovingAvg   float64
	Bollinger   BollingerBands
	MACD        MACD
	RSI         float64
	ATR         float64
	ADX         float64
	OBV         float64
	Stochastic  Stochastic
	Momentum    float64
	Correlation float64
}

// NeutralIndicators returns a bundle with neutral defaults so missing data
// reads as "condition not met" instead of an error
func NeutralIndicators() IndicatorBundle {
	return IndicatorBundle{RSI: 50}
}

// CoinState is the per-asset slice of the balance
type CoinState struct {
	Amount             float64
	Price              float64
	Indicators         IndicatorBundle
	Historical         []Candle
	PositionEntryPrice *float64 // nil when flat
	TrailingHighPrice  *float64 // nil when flat
}

// Long reports whether an open position is being tracked
func (c *CoinState) Long() bool {
	return c.PositionEntryPrice != nil && c.Amount > 0
}

// ClearPosition resets entry/trailing bookkeeping after a full exit
func (c *CoinState) ClearPosition() {
	c.PositionEntryPrice = nil
	c.TrailingHighPrice = nil
}

// Balance is the root aggregate, mutated only by the decision engine
type Balance struct {
	USDT            float64
	Coins           map[string]*CoinState
	SelectedCoin    string
	LastTradeTime   time.Time
	InitialTotalUSD float64
	PeakTotalUSD    float64
}

// Coin returns the state for a symbol, creating it if missing
func (b *Balance) Coin(symbol string) *CoinState {
	if b.Coins == nil {
		b.Coins = make(map[string]*CoinState)
	}
	cs, ok := b.Coins[symbol]
	if !ok {
		cs = &CoinState{Indicators: NeutralIndicators()}
		b.Coins[symbol] = cs
	}
	return cs
}

// TotalUSD values every coin at its last known price
func (b *Balance) TotalUSD() float64 {
	total := b.USDT
	for _, cs := range b.Coins {
		total += cs.Amount * cs.Price
	}
	return total
}

// Clone returns a deep copy safe to hand to dashboard readers
func (b *Balance) Clone() Balance {
	out := *b
	out.Coins = make(map[string]*CoinState, len(b.Coins))
	for sym, cs := range b.Coins {
		cp := *cs
		cp.Historical = append([]Candle(nil), cs.Historical...)
		if cs.PositionEntryPrice != nil {
			v := *cs.PositionEntryPrice
			cp.PositionEntryPrice = &v
		}
		if cs.TrailingHighPrice != nil {
			v := *cs.TrailingHighPrice
			cp.TrailingHighPrice = &v
		}
		out.Coins[sym] = &cp
	}
	return out
}

// TradeLogEntry is one line of the append-only trade journal
type TradeLogEntry struct {
	Timestamp     string   `json:"timestamp"`
	Coin          string   `json:"coin"`
	Action        string   `json:"action"`
	Volume        float64  `json:"volume"`
	Price         float64  `json:"price"`
	BalanceUSDT   float64  `json:"balance_usdt"`
	BalanceCoin   float64  `json:"balance_coin"`
	Confidence    float64  `json:"confidence"`
	RSIPrimary    float64  `json:"rsi_primary"`
	RSISecondary  float64  `json:"rsi_secondary"`
	MACDPrimary   float64  `json:"macd_primary"`
	MACDSecondary float64  `json:"macd_secondary"`
	MLDirection   string   `json:"ml_direction,omitempty"`
	MLConfidence  *float64 `json:"ml_confidence,omitempty"`
}

// MLPrediction is the price predictor output; direction is "up", "down" or "hold"
type MLPrediction struct {
	Direction  string
	Confidence float64
}

// ProfitabilityPrediction is the trade-outcome predictor output
type ProfitabilityPrediction struct {
	Probability float64
	Profitable  bool
	Confidence  float64
}

// AdvisorSignal is the fast LLM advisor output
type AdvisorSignal struct {
	Signal          string // "BUY", "SELL", "HOLD"
	ConfidenceScore float64
	Reasoning       string
	StopLoss        float64
	TakeProfit      float64
	Cached          bool
}

// DeepAnalysis is the periodic comprehensive market analysis
type DeepAnalysis struct {
	RecommendedAction string // "BUY", "SELL", "HOLD"
	Confidence        float64
	Trend             string
	KeyPatterns       []string
	Warnings          []string
	Reasoning         string
}
