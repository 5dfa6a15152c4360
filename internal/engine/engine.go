package engine

import (
	"context"
	"sync"
	"time"

	"trade_bot/config"
	"trade_bot/internal/ai"
	"trade_bot/internal/exchange"
	"trade_bot/internal/journal"
	"trade_bot/internal/models"
	"trade_bot/internal/pairs"
	"trade_bot/internal/state"
)

// Notifier announces trade events to an external channel. Nil means no
// notifications.
type Notifier interface {
	NotifyTrade(coin, action string, volume, price, confidence float64)
	NotifyRiskExit(coin, reason string, volume, price float64)
}

// Engine is the trade decision core. It owns the Balance; every mutation
// of balances and position bookkeeping goes through HandleTrade under the
// engine's lock.
type Engine struct {
	cfg    *config.Config
	client exchange.Client
	pairs  *pairs.Manager
	shared *state.SharedState
	trades *journal.Journal
	store  *journal.Store

	pricePredictor ai.PricePredictor
	profitability  ai.ProfitabilityPredictor
	advisor        ai.Advisor
	deep           ai.DeepAnalyzer
	tracker        *ai.SignalTracker
	notifier       Notifier

	mu      sync.Mutex
	balance models.Balance
}

func NewEngine(cfg *config.Config, client exchange.Client, pm *pairs.Manager, shared *state.SharedState, trades *journal.Journal) *Engine {
	return &Engine{
		cfg:    cfg,
		client: client,
		pairs:  pm,
		shared: shared,
		trades: trades,
	}
}

func (e *Engine) SetStore(s *journal.Store)                      { e.store = s }
func (e *Engine) SetPricePredictor(p ai.PricePredictor)          { e.pricePredictor = p }
func (e *Engine) SetProfitability(p ai.ProfitabilityPredictor)   { e.profitability = p }
func (e *Engine) SetAdvisor(a ai.Advisor, t *ai.SignalTracker)   { e.advisor, e.tracker = a, t }
func (e *Engine) SetDeepAnalyzer(d ai.DeepAnalyzer)              { e.deep = d }
func (e *Engine) SetNotifier(n Notifier)                         { e.notifier = n }

// InitBalance seeds the balance: from the exchange in live mode, from
// config defaults in simulation
func (e *Engine) InitBalance(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.balance = models.Balance{
		Coins:        make(map[string]*models.CoinState),
		SelectedCoin: e.cfg.DefaultCoin,
	}

	if e.cfg.TradingMode == config.ModeLive {
		raw, err := e.client.GetBalance(ctx)
		if err != nil {
			return err
		}
		for asset, amount := range raw {
			switch asset {
			case "USDT", "USD":
				e.balance.USDT += amount
			default:
				for _, coin := range e.cfg.TradableCoins {
					if asset == coin {
						e.balance.Coin(coin).Amount = amount
					}
				}
			}
		}
		e.shared.Logf("💰 Live balance loaded: %.2f USDT", e.balance.USDT)
		return nil
	}

	e.balance.USDT = e.cfg.InitialBalanceUSDT
	for coin, amount := range e.cfg.InitialCoinBalance {
		e.balance.Coin(coin).Amount = amount
	}
	e.shared.Logf("🧪 Simulation balance seeded: %.2f USDT", e.balance.USDT)
	return nil
}

// Balance returns a deep copy of the current balance
func (e *Engine) Balance() models.Balance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance.Clone()
}

// SetIndicators installs freshly computed indicator bundles and candle
// history for a coin
func (e *Engine) SetIndicators(coin string, bundle models.IndicatorBundle, candles []models.Candle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cs := e.balance.Coin(coin)
	cs.Indicators = bundle
	cs.Historical = candles
}

// SetPrice records the latest price for a coin without trading on it
func (e *Engine) SetPrice(coin string, price float64) {
	if price <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balance.Coin(coin).Price = price
}

// HandleTrade is the decision engine. Evaluation order is load-bearing:
// the drawdown breaker runs before the cooldown check (a portfolio
// blowout must not wait out a cooldown), stop-loss, take-profit and
// trailing stop run after it.
func (e *Engine) HandleTrade(ctx context.Context, coin string, price float64) error {
	if price <= 0 {
		e.shared.Logf("⚠️ %s: invalid price %.4f, skipping cycle", coin, price)
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cs := e.balance.Coin(coin)
	cs.Price = price

	total := e.balance.TotalUSD()
	if e.balance.InitialTotalUSD == 0 {
		e.balance.InitialTotalUSD = total
		e.balance.PeakTotalUSD = total
	}
	if total > e.balance.PeakTotalUSD {
		e.balance.PeakTotalUSD = total
	}

	now := time.Now()

	// portfolio circuit breaker, evaluated before cooldown. It only acts
	// on an open position; a flat book keeps trading.
	if cs.Amount > 0 && drawdownBreached(total, e.balance.PeakTotalUSD, e.cfg.MaxDrawdownPct) {
		e.shared.SetHalted(true)
		e.shared.Logf("🚨 Max drawdown breached (%.2f <= %.2f * %.0f%%), liquidating %s",
			total, e.balance.PeakTotalUSD, 100-e.cfg.MaxDrawdownPct, coin)
		e.liquidate(ctx, coin, cs, price, exitDrawdown, now)
		return nil
	}
	e.shared.SetHalted(false)

	if elapsed := now.Sub(e.balance.LastTradeTime); elapsed < time.Duration(e.cfg.CooldownPeriod)*time.Second {
		return nil
	}

	ref := e.balance.Coin(e.cfg.ReferenceCoin).Indicators
	direction := Direction(ref)
	confidence := BaseConfidence(e.cfg, coin, ref, cs.Indicators)

	mc := ai.MarketContext{
		Coin:          coin,
		Price:         price,
		Indicators:    cs.Indicators,
		RefIndicators: ref,
		Candles:       cs.Historical,
		BalanceUSDT:   e.balance.USDT,
		BalanceCoin:   cs.Amount,
		EntryPrice:    cs.PositionEntryPrice,
	}

	// optional collaborators: every failure degrades to "no boost"
	var mlPred *models.MLPrediction
	if e.cfg.MLEnabled && e.pricePredictor != nil {
		p, err := e.pricePredictor.Predict(ctx, mc)
		if err != nil {
			e.shared.Logf("⚠️ ML predictor failed for %s: %v", coin, err)
		} else {
			mlPred = p
		}
		confidence += MLBoost(mlPred, direction, e.cfg.MLMinConfidence, e.cfg.MLConfidenceWeight)
	}

	var profPred *models.ProfitabilityPrediction
	if e.cfg.ProfitabilityEnabled && e.profitability != nil {
		p, err := e.profitability.PredictProfitability(ctx, mc, direction)
		if err != nil {
			e.shared.Logf("⚠️ Profitability predictor failed for %s: %v", coin, err)
		} else {
			profPred = p
		}
		confidence += ProfitabilityBoost(profPred, e.cfg.ProfitabilityBoostWeight)
	}

	var advisorSig *models.AdvisorSignal
	if e.cfg.LLMEnabled && e.advisor != nil {
		sig, err := e.advisor.Advise(ctx, mc)
		if err != nil {
			e.shared.Logf("⚠️ LLM advisor failed for %s: %v", coin, err)
		} else {
			advisorSig = sig
			e.shared.UpdateAdvisor(sig)
		}
		confidence += AdvisorBoost(advisorSig, direction, e.cfg.LLMConfidenceWeight)
	}

	var deepA *models.DeepAnalysis
	if e.cfg.DeepAnalysisEnabled && e.deep != nil {
		d, err := e.deep.Analyze(ctx, mc)
		if err != nil {
			e.shared.Logf("⚠️ Deep analysis failed for %s: %v", coin, err)
		} else {
			deepA = d
			e.shared.UpdateDeepAnalysis(d)
		}
		confidence += DeepBoost(deepA, direction, e.cfg.DeepAnalysisWeight)
	}

	e.shared.UpdateDecision("hold", confidence)

	if confidence < e.cfg.ConfidenceThreshold {
		return nil
	}

	if e.cfg.ProfitabilityEnabled && profPred != nil && profPred.Probability < e.cfg.MinProfitabilityThreshold {
		e.shared.Logf("🛑 %s: profitability veto (p=%.2f < %.2f)",
			coin, profPred.Probability, e.cfg.MinProfitabilityThreshold)
		return nil
	}

	wantSignal := "SELL"
	if direction == "buy" {
		wantSignal = "BUY"
	}

	if e.cfg.LLMEnabled && e.cfg.LLMFinalAuthority {
		if advisorSig == nil {
			e.shared.Logf("🛑 %s: no LLM signal available, skipping for safety", coin)
			return nil
		}
		if advisorSig.Signal == "HOLD" {
			e.shared.Logf("🛑 %s: LLM says HOLD, trade vetoed (%s)", coin, advisorSig.Reasoning)
			return nil
		}
		if advisorSig.Signal != wantSignal {
			e.shared.Logf("🛑 %s: LLM disagrees (indicators: %s, LLM: %s), trade vetoed",
				coin, wantSignal, advisorSig.Signal)
			return nil
		}
		if e.cfg.LLMStabilityRequired && !advisorSig.Cached && e.tracker != nil {
			count := e.tracker.Record(coin, advisorSig.Signal)
			if count < e.cfg.LLMStabilityCount {
				e.shared.Logf("⏳ %s: %s signal %d/%d, waiting for stability",
					coin, advisorSig.Signal, count, e.cfg.LLMStabilityCount)
				return nil
			}
		}
		if e.cfg.LLMConsensusRequired {
			if deepA == nil || deepA.RecommendedAction != advisorSig.Signal {
				e.shared.Logf("🛑 %s: no consensus between fast LLM and deep analysis", coin)
				return nil
			}
		}
	}

	if e.cfg.DeepAnalysisEnabled && e.cfg.DeepAnalysisVeto &&
		deepA != nil && deepA.Confidence >= 0.7 && deepA.RecommendedAction != "HOLD" &&
		deepA.RecommendedAction != wantSignal {
		e.shared.Logf("🛑 %s: deep analysis veto (%s at %.2f confidence)",
			coin, deepA.RecommendedAction, deepA.Confidence)
		return nil
	}

	if reason, fire := evaluateRiskExit(cs, price, e.cfg.StopLossPct, e.cfg.TakeProfitPct, e.cfg.TrailingStopPct); fire {
		e.shared.Logf("🔔 %s: %s triggered at %.4f (entry %.4f)",
			coin, reason, price, *cs.PositionEntryPrice)
		e.liquidate(ctx, coin, cs, price, reason, now)
		return nil
	}

	// holdings below half the minimum lot are dust and count as flat
	dust := e.cfg.VolumeLimitsFor(coin).Min / 2

	action := direction
	if action == "sell" && cs.Amount <= dust {
		if e.balance.USDT >= e.cfg.ReentryMinUSDT {
			e.shared.Logf("🔄 %s: nothing to sell, re-entering long instead", coin)
			action = "buy"
		} else {
			return nil
		}
	} else if action == "buy" && e.balance.USDT < e.cfg.ReentryMinUSDT && cs.Amount > dust {
		e.shared.Logf("🔄 %s: no USDT for entry, rotating out instead", coin)
		action = "sell"
	}

	// sells are sized from the position's value, buys from the quote balance
	quote := e.balance.USDT
	if action == "sell" {
		quote = cs.Amount * price
	}
	volume := CalculateVolume(quote, price, e.cfg.VolumeLimitsFor(coin))
	if volume <= 0 {
		e.shared.Logf("⚠️ %s: computed volume %.8f, skipping", coin, volume)
		return nil
	}

	wasFlat := cs.Amount == 0

	newUSDT, newCoin, executed := ExecuteTrade(action, volume, price, e.balance.USDT, cs.Amount, e.cfg.TradeFee)
	if executed <= 0 {
		return nil
	}

	pair, err := e.pairs.RESTPair(coin)
	if err != nil {
		return err
	}
	if _, err := e.client.PlaceOrder(ctx, pair, action, "market", executed, price); err != nil {
		e.shared.Logf("❌ Order failed for %s %s: %v", action, coin, err)
		return nil
	}

	e.balance.USDT = newUSDT
	cs.Amount = newCoin

	if action == "buy" && wasFlat && newCoin > 0 {
		entry := price
		high := price
		cs.PositionEntryPrice = &entry
		cs.TrailingHighPrice = &high
	}
	if action == "sell" && newCoin == 0 {
		cs.ClearPosition()
	}

	e.appendJournal(coin, action, executed, price, confidence, mlPred, now)
	e.balance.LastTradeTime = now
	if e.tracker != nil {
		e.tracker.Reset(coin)
	}

	e.shared.UpdateDecision(action, confidence)
	e.shared.TradeDone()
	e.shared.Logf("✅ %s %s %.6f @ %.4f | conf %.2f | %.2f USDT left",
		action, coin, executed, price, confidence, e.balance.USDT)
	if e.notifier != nil {
		e.notifier.NotifyTrade(coin, action, executed, price, confidence)
	}
	return nil
}

// liquidate sells the entire position at the given price and clears the
// position bookkeeping. Caller holds e.mu.
func (e *Engine) liquidate(ctx context.Context, coin string, cs *models.CoinState, price float64, reason string, now time.Time) {
	volume := cs.Amount
	if volume <= 0 {
		return
	}

	newUSDT, newCoin, executed := ExecuteTrade("sell", volume, price, e.balance.USDT, cs.Amount, e.cfg.TradeFee)
	if executed <= 0 {
		return
	}

	pair, err := e.pairs.RESTPair(coin)
	if err != nil {
		// the exit must still happen, close the position locally
		e.shared.Logf("⚠️ No pair mapping for %s, closing position without an order: %v", coin, err)
	} else if _, err := e.client.PlaceOrder(ctx, pair, "sell", "market", executed, price); err != nil {
		e.shared.Logf("❌ Liquidation order failed for %s: %v", coin, err)
		return
	}

	e.balance.USDT = newUSDT
	cs.Amount = newCoin
	cs.ClearPosition()

	e.appendJournal(coin, "sell_"+reason, executed, price, 0, nil, now)
	e.balance.LastTradeTime = now

	e.shared.UpdateDecision("sell_"+reason, 0)
	e.shared.TradeDone()
	e.shared.Logf("💥 Liquidated %.6f %s @ %.4f (%s)", executed, coin, price, reason)
	if e.notifier != nil {
		e.notifier.NotifyRiskExit(coin, reason, executed, price)
	}
}

// appendJournal persists one trade record to the JSONL log and, when the
// store is wired, to the history database. Persistence failures are
// logged but never abort the trade that produced them. Caller holds e.mu.
func (e *Engine) appendJournal(coin, action string, volume, price, confidence float64, mlPred *models.MLPrediction, now time.Time) {
	cs := e.balance.Coin(coin)
	ref := e.balance.Coin(e.cfg.ReferenceCoin).Indicators

	entry := models.TradeLogEntry{
		Timestamp:     now.Format(time.RFC3339),
		Coin:          coin,
		Action:        action,
		Volume:        volume,
		Price:         price,
		BalanceUSDT:   e.balance.USDT,
		BalanceCoin:   cs.Amount,
		Confidence:    confidence,
		RSIPrimary:    cs.Indicators.RSI,
		RSISecondary:  ref.RSI,
		MACDPrimary:   cs.Indicators.MACD.Line,
		MACDSecondary: ref.MACD.Line,
	}
	if mlPred != nil {
		entry.MLDirection = mlPred.Direction
		conf := mlPred.Confidence
		entry.MLConfidence = &conf
	}

	if err := e.trades.Append(entry); err != nil {
		e.shared.Logf("⚠️ Trade log write failed: %v", err)
	}
	if e.store != nil {
		if err := e.store.InsertTrade(entry); err != nil {
			e.shared.Logf("⚠️ History store write failed: %v", err)
		}
	}
}
