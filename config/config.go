package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type TradingMode string

const (
	ModeSimulation TradingMode = "SIMULATION"
	ModeLive       TradingMode = "LIVE"
)

// VolumeLimits bound the volume of a single trade for one coin
type VolumeLimits struct {
	Min float64
	Max float64
}

// IndicatorWeights are the per-condition confidence contributions
type IndicatorWeights struct {
	MACD float64
	RSI  float64
	ADX  float64
	OBV  float64
}

type Config struct {
	Exchange    string // "kraken", "okx", "coinbase", "bybit", "binance"
	TradingMode TradingMode

	APIKey    string
	APISecret string

	TradableCoins []string
	DefaultCoin   string
	ReferenceCoin string

	InitialBalanceUSDT float64
	InitialCoinBalance map[string]float64

	PollInterval   int // seconds between trade checks
	CooldownPeriod int // seconds between trades
	CacheDuration  int // seconds to cache historical data

	TradeFee            float64
	ConfidenceThreshold float64

	RSIThreshold  float64
	MACDThreshold map[string]float64 // per coin, negative (trough test)
	ADXThreshold  float64
	OBVThreshold  float64
	Weights       IndicatorWeights

	StopLossPct     float64
	TakeProfitPct   float64
	TrailingStopPct float64
	MaxDrawdownPct  float64

	CoinVolumeLimits map[string]VolumeLimits
	ReentryMinUSDT   float64

	// Indicator periods
	MAPeriod         int
	BBPeriod         int
	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int
	RSIPeriod        int
	ATRPeriod        int
	StochasticPeriod int
	ADXPeriod        int

	// ML price predictor
	MLEnabled          bool
	MLMinConfidence    float64
	MLConfidenceWeight float64

	// Profitability predictor
	ProfitabilityEnabled       bool
	ProfitabilityBoostWeight   float64
	MinProfitabilityThreshold  float64

	// Fast LLM advisor (Ollama)
	LLMEnabled           bool
	LLMFinalAuthority    bool
	LLMConfidenceWeight  float64
	LLMStabilityRequired bool
	LLMStabilityCount    int
	LLMConsensusRequired bool
	OllamaBaseURL        string
	OllamaModel          string
	OllamaTimeout        int // seconds

	// Deep analysis (Anthropic)
	DeepAnalysisEnabled bool
	DeepAnalysisInterval int // seconds between refreshes
	DeepAnalysisWeight  float64
	DeepAnalysisVeto    bool
	AnthropicAPIKey     string
	AnthropicModel      string

	// Notifications / dashboard
	TelegramToken    string
	AuthorizedUserID int64
	Port             string

	// Persistence
	TradeLogPath    string
	HistoryDBPath   string
	SignalStatePath string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	defaultCoin := strings.ToUpper(getEnv("DEFAULT_COIN", "SOL"))

	mode := ModeSimulation
	if strings.EqualFold(os.Getenv("TRADING_MODE"), "LIVE") {
		mode = ModeLive
	}

	userID, _ := strconv.ParseInt(os.Getenv("AUTHORIZED_USER_ID"), 10, 64)

	return &Config{
		Exchange:    strings.ToLower(getEnv("EXCHANGE", "kraken")),
		TradingMode: mode,

		APIKey:    os.Getenv("API_KEY"),
		APISecret: os.Getenv("API_SECRET"),

		TradableCoins: []string{"SOL", "BTC"},
		DefaultCoin:   defaultCoin,
		ReferenceCoin: "BTC",

		InitialBalanceUSDT: getEnvFloat("INITIAL_BALANCE_USDT", 1000),
		InitialCoinBalance: map[string]float64{
			"SOL": getEnvFloat("INITIAL_BALANCE_SOL", 10),
			"BTC": getEnvFloat("INITIAL_BALANCE_BTC", 0.01),
		},

		PollInterval:   getEnvInt("POLL_INTERVAL", 300),
		CooldownPeriod: getEnvInt("COOLDOWN_PERIOD", 300),
		CacheDuration:  getEnvInt("CACHE_DURATION", 300),

		TradeFee:            getEnvFloat("TRADE_FEE", 0.003),
		ConfidenceThreshold: getEnvFloat("CONFIDENCE_THRESHOLD", 0.35),

		RSIThreshold: getEnvFloat("RSI_THRESHOLD", 40),
		MACDThreshold: map[string]float64{
			"BTC": getEnvFloat("MACD_THRESHOLD_BTC", -50),
			"SOL": getEnvFloat("MACD_THRESHOLD_SOL", -0.5),
		},
		ADXThreshold: getEnvFloat("ADX_THRESHOLD", 0.5),
		OBVThreshold: getEnvFloat("OBV_THRESHOLD", 500),
		Weights: IndicatorWeights{
			MACD: getEnvFloat("WEIGHT_MACD", 0.4),
			RSI:  getEnvFloat("WEIGHT_RSI", 0.2),
			ADX:  getEnvFloat("WEIGHT_ADX", 0.1),
			OBV:  getEnvFloat("WEIGHT_OBV", 0.1),
		},

		StopLossPct:     getEnvFloat("STOP_LOSS_PCT", 5),
		TakeProfitPct:   getEnvFloat("TAKE_PROFIT_PCT", 10),
		TrailingStopPct: getEnvFloat("TRAILING_STOP_PCT", 5),
		MaxDrawdownPct:  getEnvFloat("MAX_DRAWDOWN_PCT", 15),

		CoinVolumeLimits: map[string]VolumeLimits{
			"SOL": {
				Min: getEnvFloat("MIN_VOLUME_SOL", 0.1),
				Max: getEnvFloat("MAX_VOLUME_SOL", 10),
			},
			"BTC": {
				Min: getEnvFloat("MIN_VOLUME_BTC", 0.0001),
				Max: getEnvFloat("MAX_VOLUME_BTC", 0.25),
			},
		},
		ReentryMinUSDT: getEnvFloat("REENTRY_MIN_USDT", 5),

		MAPeriod:         getEnvInt("MA_PERIOD", 14),
		BBPeriod:         getEnvInt("BB_PERIOD", 14),
		MACDFastPeriod:   getEnvInt("MACD_FAST_PERIOD", 12),
		MACDSlowPeriod:   getEnvInt("MACD_SLOW_PERIOD", 26),
		MACDSignalPeriod: getEnvInt("MACD_SIGNAL_PERIOD", 9),
		RSIPeriod:        getEnvInt("RSI_PERIOD", 14),
		ATRPeriod:        getEnvInt("ATR_PERIOD", 14),
		StochasticPeriod: getEnvInt("STOCHASTIC_PERIOD", 14),
		ADXPeriod:        getEnvInt("ADX_PERIOD", 14),

		MLEnabled:          getEnvBool("ML_ENABLED", true),
		MLMinConfidence:    getEnvFloat("ML_MIN_CONFIDENCE", 0.6),
		MLConfidenceWeight: getEnvFloat("ML_CONFIDENCE_WEIGHT", 0.3),

		ProfitabilityEnabled:      getEnvBool("PROFITABILITY_ENABLED", false),
		ProfitabilityBoostWeight:  getEnvFloat("PROFITABILITY_BOOST_WEIGHT", 0.2),
		MinProfitabilityThreshold: getEnvFloat("MIN_PROFITABILITY_THRESHOLD", 0.0),

		LLMEnabled:           getEnvBool("LLM_ENABLED", false),
		LLMFinalAuthority:    getEnvBool("LLM_FINAL_AUTHORITY", true),
		LLMConfidenceWeight:  getEnvFloat("LLM_CONFIDENCE_WEIGHT", 0.25),
		LLMStabilityRequired: getEnvBool("LLM_STABILITY_REQUIRED", true),
		LLMStabilityCount:    getEnvInt("LLM_STABILITY_COUNT", 2),
		LLMConsensusRequired: getEnvBool("LLM_CONSENSUS_REQUIRED", false),
		OllamaBaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:          getEnv("OLLAMA_MODEL", "deepseek-r1:8b"),
		OllamaTimeout:        getEnvInt("OLLAMA_TIMEOUT", 120),

		DeepAnalysisEnabled:  getEnvBool("DEEP_ANALYSIS_ENABLED", false),
		DeepAnalysisInterval: getEnvInt("DEEP_ANALYSIS_INTERVAL", 7200),
		DeepAnalysisWeight:   getEnvFloat("DEEP_ANALYSIS_WEIGHT", 0.35),
		DeepAnalysisVeto:     getEnvBool("DEEP_ANALYSIS_VETO", true),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:       getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),

		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		AuthorizedUserID: userID,
		Port:             getEnv("PORT", "8080"),

		TradeLogPath:    getEnv("TRADE_LOG_PATH", "trade_log.json"),
		HistoryDBPath:   getEnv("HISTORY_DB_PATH", "trade_history.db"),
		SignalStatePath: getEnv("SIGNAL_STATE_PATH", "signal_state.json"),
	}
}

// VolumeLimitsFor returns the configured limits for a coin, zero-valued if absent
func (c *Config) VolumeLimitsFor(coin string) VolumeLimits {
	return c.CoinVolumeLimits[strings.ToUpper(coin)]
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil {
			return val
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.ParseBool(v); err == nil {
			return val
		}
	}
	return def
}
