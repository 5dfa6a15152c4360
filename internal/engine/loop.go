package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trade_bot/config"
	"trade_bot/internal/analysis"
	"trade_bot/internal/exchange"
	"trade_bot/internal/models"
	"trade_bot/internal/pairs"
	"trade_bot/internal/state"
)

const (
	errorBackoff   = 5 * time.Second
	statusInterval = 5 * time.Minute
)

// Orchestrator drives the decision engine on the polling cadence. It is
// the single writer of trading state; the dashboard and telegram readers
// only ever see snapshots.
type Orchestrator struct {
	cfg    *config.Config
	engine *Engine
	client exchange.Client
	pairs  *pairs.Manager
	shared *state.SharedState

	histMu     sync.Mutex
	hist       map[string]histEntry
	lastStatus time.Time
}

type histEntry struct {
	candles []models.Candle
	at      time.Time
}

func NewOrchestrator(cfg *config.Config, eng *Engine, client exchange.Client, pm *pairs.Manager, shared *state.SharedState) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		engine: eng,
		client: client,
		pairs:  pm,
		shared: shared,
		hist:   make(map[string]histEntry),
	}
}

// Run loops until ctx is cancelled. Each cycle sleeps first, then trades;
// a failing cycle logs, backs off briefly and continues. One bad cycle
// must never take the process down.
func (o *Orchestrator) Run(ctx context.Context) {
	o.shared.Logf("🚀 Trading loop started (%s, %s mode, poll %ds)",
		o.pairs.Exchange(), o.cfg.TradingMode, o.cfg.PollInterval)

	for {
		select {
		case <-ctx.Done():
			o.shared.Logf("⏹️ Trading loop stopped")
			return
		case <-time.After(time.Duration(o.cfg.PollInterval) * time.Second):
		}

		if !o.shared.Running() {
			continue
		}

		if err := o.cycle(ctx); err != nil {
			o.shared.Logf("❌ Cycle failed: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(errorBackoff):
			}
			continue
		}

		o.shared.CycleDone()
		o.shared.UpdateBalance(o.engine.Balance())
	}
}

func (o *Orchestrator) cycle(ctx context.Context) error {
	coin := o.shared.Coin()
	refCoin := o.cfg.ReferenceCoin

	refCandles, refErr := o.historical(ctx, refCoin)
	coinCandles, coinErr := o.historical(ctx, coin)
	if refErr != nil && len(refCandles) == 0 {
		return fmt.Errorf("no historical data for %s: %w", refCoin, refErr)
	}
	if coinErr != nil && len(coinCandles) == 0 {
		return fmt.Errorf("no historical data for %s: %w", coin, coinErr)
	}

	refBundle, coinBundle := analysis.CalculateIndicators(refCandles, coinCandles, o.periods())
	o.engine.SetIndicators(refCoin, refBundle, refCandles)
	o.engine.SetIndicators(coin, coinBundle, coinCandles)

	price, err := o.resolvePrice(ctx, coin)
	if err != nil {
		return err
	}
	if refPrice, err := o.resolvePrice(ctx, refCoin); err == nil {
		o.engine.SetPrice(refCoin, refPrice)
		o.shared.RecordPrice(refCoin, refPrice)
	}
	o.shared.RecordPrice(coin, price)

	if err := o.engine.HandleTrade(ctx, coin, price); err != nil {
		return err
	}

	o.logStatus(coin, price, coinBundle)
	return nil
}

// historical returns candles for a coin, fetching at most once per
// cache_duration. A failed fetch falls back to the last cached series.
func (o *Orchestrator) historical(ctx context.Context, coin string) ([]models.Candle, error) {
	o.histMu.Lock()
	cached, ok := o.hist[coin]
	o.histMu.Unlock()

	ttl := time.Duration(o.cfg.CacheDuration) * time.Second
	if ok && time.Since(cached.at) < ttl {
		return cached.candles, nil
	}

	pair, err := o.pairs.RESTPair(coin)
	if err != nil {
		return cached.candles, err
	}

	candles, err := o.client.GetHistoricalData(ctx, pair, 1440, 60)
	if err != nil || len(candles) == 0 {
		// try the alternate symbol some exchanges use
		if alt, altErr := o.pairs.RESTPairAlt(coin); altErr == nil && alt != pair {
			candles, err = o.client.GetHistoricalData(ctx, alt, 1440, 60)
		}
	}
	if err != nil || len(candles) == 0 {
		if ok {
			o.shared.Logf("⚠️ Historical fetch failed for %s, using stale cache: %v", coin, err)
			return cached.candles, nil
		}
		if err == nil {
			err = fmt.Errorf("empty candle response for %s", coin)
		}
		return nil, err
	}

	o.histMu.Lock()
	o.hist[coin] = histEntry{candles: candles, at: time.Now()}
	o.histMu.Unlock()
	return candles, nil
}

// resolvePrice reads the live ticker, or in simulation prefers the price
// pushed by the websocket feed when one is present
func (o *Orchestrator) resolvePrice(ctx context.Context, coin string) (float64, error) {
	if o.cfg.TradingMode == config.ModeSimulation {
		b := o.engine.Balance()
		if pushed := b.Coin(coin).Price; pushed > 0 {
			return pushed, nil
		}
	}

	pair, err := o.pairs.RESTPair(coin)
	if err != nil {
		return 0, err
	}
	ticker, err := o.client.GetTicker(ctx, pair)
	if err != nil {
		return 0, fmt.Errorf("ticker fetch for %s: %w", coin, err)
	}
	return ticker.Last, nil
}

// logStatus prints the human-readable status line at most once per
// statusInterval
func (o *Orchestrator) logStatus(coin string, price float64, ind models.IndicatorBundle) {
	if time.Since(o.lastStatus) < statusInterval {
		return
	}
	o.lastStatus = time.Now()

	b := o.engine.Balance()
	o.shared.Logf("📊 %s @ %.4f | RSI %.1f | MACD %.4f | total %.2f USD (peak %.2f)",
		coin, price, ind.RSI, ind.MACD.Line, b.TotalUSD(), b.PeakTotalUSD)
}

func (o *Orchestrator) periods() analysis.Periods {
	return analysis.Periods{
		MA:         o.cfg.MAPeriod,
		BB:         o.cfg.BBPeriod,
		MACDFast:   o.cfg.MACDFastPeriod,
		MACDSlow:   o.cfg.MACDSlowPeriod,
		MACDSignal: o.cfg.MACDSignalPeriod,
		RSI:        o.cfg.RSIPeriod,
		ATR:        o.cfg.ATRPeriod,
		Stochastic: o.cfg.StochasticPeriod,
		ADX:        o.cfg.ADXPeriod,
		Momentum:   10,
	}
}
