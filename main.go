package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade_bot/config"
	"trade_bot/internal/ai"
	"trade_bot/internal/engine"
	"trade_bot/internal/exchange"
	"trade_bot/internal/journal"
	"trade_bot/internal/pairs"
	"trade_bot/internal/state"
	"trade_bot/internal/telegram"
	"trade_bot/internal/web"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("🚀 Starting Trading Bot...")

	cfg := config.Load()

	pm := pairs.NewManager(cfg.Exchange, cfg.TradableCoins)
	coin, err := pm.ValidateCoin(cfg.DefaultCoin)
	if err != nil {
		log.Fatalf("Bad DEFAULT_COIN: %v", err)
	}

	client := buildClient(cfg)
	log.Printf("🔌 Exchange: %s (%s mode)", client.Name(), cfg.TradingMode)

	shared := state.New(cfg.Exchange, string(cfg.TradingMode), coin)

	trades := journal.New(cfg.TradeLogPath)
	store, err := journal.OpenStore(cfg.HistoryDBPath)
	if err != nil {
		log.Printf("⚠️ History store unavailable, continuing without it: %v", err)
		store = nil
	}

	eng := engine.NewEngine(cfg, client, pm, shared, trades)
	if store != nil {
		eng.SetStore(store)
	}

	if cfg.MLEnabled {
		eng.SetPricePredictor(ai.NewFeaturePredictor())
	}
	if cfg.ProfitabilityEnabled {
		eng.SetProfitability(ai.NewOutcomePredictor())
	}
	if cfg.LLMEnabled {
		advisor := ai.NewOllamaAdvisor(cfg.OllamaBaseURL, cfg.OllamaModel,
			time.Duration(cfg.OllamaTimeout)*time.Second)
		eng.SetAdvisor(advisor, ai.NewSignalTracker(cfg.SignalStatePath))
	}
	if cfg.DeepAnalysisEnabled && cfg.AnthropicAPIKey != "" {
		eng.SetDeepAnalyzer(ai.NewAnthropicAnalyzer(cfg.AnthropicAPIKey, cfg.AnthropicModel,
			time.Duration(cfg.DeepAnalysisInterval)*time.Second))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.InitBalance(ctx); err != nil {
		log.Fatalf("Balance init failed: %v", err)
	}
	shared.UpdateBalance(eng.Balance())

	// simulation gets live prices pushed over the websocket feed
	if cfg.TradingMode == config.ModeSimulation && cfg.Exchange == "kraken" {
		feed := buildPriceFeed(cfg, pm, eng, shared)
		if feed != nil {
			go feed.Run(ctx)
		}
	}

	var bot *telegram.Bot
	if cfg.TelegramToken != "" {
		bot, err = telegram.NewBot(cfg.TelegramToken, cfg.AuthorizedUserID, shared, pm)
		if err != nil {
			log.Printf("⚠️ Telegram bot unavailable: %v", err)
		} else {
			eng.SetNotifier(bot)
			go bot.Start()
		}
	}

	web.NewServer(shared, pm, trades, store, cfg.Port).Start()

	shared.SetRunning(true)
	orch := engine.NewOrchestrator(cfg, eng, client, pm, shared)
	go orch.Run(ctx)

	log.Println("✅ All systems initialized")
	log.Printf("🌐 Web dashboard: http://localhost:%s", cfg.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("🛑 Shutting down...")
	shared.SetRunning(false)
	cancel()
	if bot != nil {
		bot.Stop()
	}
	if store != nil {
		store.Close()
	}
	log.Println("👋 Goodbye!")
}

// buildClient picks the exchange client; simulation wraps it in the
// emulator so orders never leave the process
func buildClient(cfg *config.Config) exchange.Client {
	var client exchange.Client
	switch cfg.Exchange {
	case "okx":
		client = exchange.NewOKXClient(cfg.APIKey, cfg.APISecret, os.Getenv("API_PASSPHRASE"))
	case "coinbase":
		client = exchange.NewCoinbaseClient(cfg.APIKey, cfg.APISecret)
	case "bybit":
		client = exchange.NewBybitClient(cfg.APIKey, cfg.APISecret)
	case "binance":
		client = exchange.NewBinanceClient(cfg.APIKey, cfg.APISecret, cfg.TradingMode != config.ModeLive)
	default:
		client = exchange.NewKrakenClient(cfg.APIKey, cfg.APISecret)
	}

	if cfg.TradingMode != config.ModeLive {
		return exchange.NewEmulator(client)
	}
	return client
}

func buildPriceFeed(cfg *config.Config, pm *pairs.Manager, eng *engine.Engine, shared *state.SharedState) *exchange.PriceFeed {
	var wsPairs []string
	byPair := make(map[string]string)
	for _, coin := range pm.SupportedCoins() {
		wp, err := pm.WebsocketPair(coin)
		if err != nil {
			continue
		}
		wsPairs = append(wsPairs, wp)
		byPair[wp] = coin
	}
	if len(wsPairs) == 0 {
		return nil
	}

	return exchange.NewPriceFeed(wsPairs, func(pair string, price float64) {
		coin, ok := byPair[pair]
		if !ok {
			return
		}
		eng.SetPrice(coin, price)
		shared.RecordPrice(coin, price)
	})
}
