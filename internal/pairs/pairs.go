package pairs

import (
	"fmt"
	"strings"
)

// Pair holds the symbols an exchange uses for one coin against USD/USDT
type Pair struct {
	REST      string
	RESTAlt   string
	Websocket string
}

// Manager resolves coin symbols to exchange-specific pair names
type Manager struct {
	exchange string
	pairs    map[string]Pair
	coins    []string
}

var exchangePairs = map[string]map[string]Pair{
	"kraken": {
		"SOL": {REST: "SOLUSDT", RESTAlt: "SOLUSD", Websocket: "SOL/USD"},
		"BTC": {REST: "XXBTZUSD", RESTAlt: "XBTUSDT", Websocket: "XBT/USD"},
	},
	"okx": {
		"SOL": {REST: "SOL-USDT", Websocket: "SOL-USDT"},
		"BTC": {REST: "BTC-USDT", Websocket: "BTC-USDT"},
	},
	"coinbase": {
		"SOL": {REST: "SOL-USD", Websocket: "SOL-USD"},
		"BTC": {REST: "BTC-USD", Websocket: "BTC-USD"},
	},
	"bybit": {
		"SOL": {REST: "SOLUSDT", Websocket: "SOLUSDT"},
		"BTC": {REST: "BTCUSDT", Websocket: "BTCUSDT"},
	},
	"binance": {
		"SOL": {REST: "SOLUSDT", Websocket: "solusdt"},
		"BTC": {REST: "BTCUSDT", Websocket: "btcusdt"},
	},
}

// NewManager builds a manager for one exchange; unknown exchanges fall back to kraken naming
func NewManager(exchange string, coins []string) *Manager {
	exchange = strings.ToLower(exchange)
	mapping, ok := exchangePairs[exchange]
	if !ok {
		exchange = "kraken"
		mapping = exchangePairs["kraken"]
	}
	upper := make([]string, len(coins))
	for i, c := range coins {
		upper[i] = strings.ToUpper(c)
	}
	return &Manager{exchange: exchange, pairs: mapping, coins: upper}
}

func (m *Manager) Exchange() string { return m.exchange }

// SupportedCoins lists the tradable coin symbols
func (m *Manager) SupportedCoins() []string {
	return append([]string(nil), m.coins...)
}

// ValidateCoin normalizes a coin symbol, erroring on unsupported coins
func (m *Manager) ValidateCoin(coin string) (string, error) {
	upper := strings.ToUpper(coin)
	for _, c := range m.coins {
		if c == upper {
			return upper, nil
		}
	}
	return "", fmt.Errorf("unsupported coin %q (supported: %v)", coin, m.coins)
}

// RESTPair returns the primary REST symbol for a coin
func (m *Manager) RESTPair(coin string) (string, error) {
	upper, err := m.ValidateCoin(coin)
	if err != nil {
		return "", err
	}
	p, ok := m.pairs[upper]
	if !ok {
		return "", fmt.Errorf("missing pair mapping for %s on %s", upper, m.exchange)
	}
	return p.REST, nil
}

// RESTPairAlt returns the fallback REST symbol, or the primary when none exists
func (m *Manager) RESTPairAlt(coin string) (string, error) {
	upper, err := m.ValidateCoin(coin)
	if err != nil {
		return "", err
	}
	p := m.pairs[upper]
	if p.RESTAlt != "" {
		return p.RESTAlt, nil
	}
	return p.REST, nil
}

// WebsocketPair returns the websocket subscription symbol
func (m *Manager) WebsocketPair(coin string) (string, error) {
	upper, err := m.ValidateCoin(coin)
	if err != nil {
		return "", err
	}
	return m.pairs[upper].Websocket, nil
}
