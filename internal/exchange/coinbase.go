package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trade_bot/internal/models"
)

const coinbaseBaseURL = "https://api.coinbase.com"

// CoinbaseClient talks to the Coinbase Advanced Trade REST API
type CoinbaseClient struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
}

func NewCoinbaseClient(apiKey, apiSecret string) *CoinbaseClient {
	return &CoinbaseClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   coinbaseBaseURL,
		client:    newHTTPClient(),
	}
}

func (c *CoinbaseClient) Name() string { return "coinbase" }

func (c *CoinbaseClient) sign(timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(timestamp + method + path + body))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *CoinbaseClient) request(ctx context.Context, method, path, body string, private bool) (*simplejson.Json, error) {
	var result *simplejson.Json
	err := withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader([]byte(body)))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if private {
			if c.apiKey == "" {
				return fmt.Errorf("coinbase credentials not configured")
			}
			ts := strconv.FormatInt(time.Now().Unix(), 10)
			req.Header.Set("CB-ACCESS-KEY", c.apiKey)
			req.Header.Set("CB-ACCESS-TIMESTAMP", ts)
			req.Header.Set("CB-ACCESS-SIGN", c.sign(ts, method, path, body))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("coinbase HTTP %d", resp.StatusCode)
		}

		js, err := simplejson.NewFromReader(resp.Body)
		if err != nil {
			return err
		}
		result = js
		return nil
	})
	return result, err
}

func (c *CoinbaseClient) GetBalance(ctx context.Context) (map[string]float64, error) {
	js, err := c.request(ctx, http.MethodGet, "/api/v3/brokerage/accounts", "", true)
	if err != nil {
		return nil, err
	}

	balances := make(map[string]float64)
	accounts := js.Get("accounts")
	arr, _ := accounts.Array()
	for i := range arr {
		row := accounts.GetIndex(i)
		ccy := row.Get("currency").MustString()
		if v, err := strconv.ParseFloat(row.Get("available_balance").Get("value").MustString(), 64); err == nil {
			balances[ccy] = v
		}
	}
	return balances, nil
}

func (c *CoinbaseClient) GetTicker(ctx context.Context, pair string) (*Ticker, error) {
	js, err := c.request(ctx, http.MethodGet, "/api/v3/brokerage/products/"+pair, "", true)
	if err != nil {
		return nil, err
	}

	last, err := strconv.ParseFloat(js.Get("price").MustString(), 64)
	if err != nil {
		return nil, fmt.Errorf("no ticker data for %s", pair)
	}
	return &Ticker{Pair: pair, Last: last}, nil
}

func coinbaseGranularity(intervalMinutes int) string {
	switch {
	case intervalMinutes >= 1440:
		return "ONE_DAY"
	case intervalMinutes >= 360:
		return "SIX_HOUR"
	case intervalMinutes >= 60:
		return "ONE_HOUR"
	case intervalMinutes >= 15:
		return "FIFTEEN_MINUTE"
	case intervalMinutes >= 5:
		return "FIVE_MINUTE"
	default:
		return "ONE_MINUTE"
	}
}

func (c *CoinbaseClient) GetHistoricalData(ctx context.Context, pair string, intervalMinutes, limit int) ([]models.Candle, error) {
	end := time.Now()
	start := end.Add(-time.Duration(intervalMinutes*limit) * time.Minute)
	path := fmt.Sprintf("/api/v3/brokerage/products/%s/candles?start=%d&end=%d&granularity=%s",
		pair, start.Unix(), end.Unix(), coinbaseGranularity(intervalMinutes))

	js, err := c.request(ctx, http.MethodGet, path, "", true)
	if err != nil {
		return nil, err
	}

	rows := js.Get("candles")
	arr, err := rows.Array()
	if err != nil {
		return nil, fmt.Errorf("unexpected candles payload: %w", err)
	}

	// Coinbase returns newest first
	candles := make([]models.Candle, 0, len(arr))
	for i := len(arr) - 1; i >= 0; i-- {
		row := rows.GetIndex(i)
		ts, _ := strconv.ParseInt(row.Get("start").MustString(), 10, 64)
		candles = append(candles, models.Candle{
			Timestamp: time.Unix(ts, 0),
			Open:      parsePrice(row.Get("open")),
			High:      parsePrice(row.Get("high")),
			Low:       parsePrice(row.Get("low")),
			Close:     parsePrice(row.Get("close")),
			Volume:    parsePrice(row.Get("volume")),
		})
	}
	return candles, nil
}

func (c *CoinbaseClient) PlaceOrder(ctx context.Context, pair, side, orderType string, volume, price float64) (*OrderResult, error) {
	clientID := uuid.NewString()

	orderConfig := map[string]any{}
	if orderType == "limit" {
		orderConfig["limit_limit_gtc"] = map[string]string{
			"base_size":   decimal.NewFromFloat(volume).Round(8).String(),
			"limit_price": decimal.NewFromFloat(price).Round(5).String(),
		}
	} else {
		orderConfig["market_market_ioc"] = map[string]string{
			"base_size": decimal.NewFromFloat(volume).Round(8).String(),
		}
	}

	payload := map[string]any{
		"client_order_id":     clientID,
		"product_id":          pair,
		"side":                map[string]string{"buy": "BUY", "sell": "SELL"}[side],
		"order_configuration": orderConfig,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	js, err := c.request(ctx, http.MethodPost, "/api/v3/brokerage/orders", string(body), true)
	if err != nil {
		return nil, err
	}
	if !js.Get("success").MustBool(true) {
		return nil, fmt.Errorf("coinbase order rejected: %s", js.Get("error_response").Get("message").MustString())
	}

	id := js.Get("order_id").MustString()
	if id == "" {
		id = clientID
	}
	return &OrderResult{
		ID:     id,
		Pair:   pair,
		Side:   side,
		Type:   orderType,
		Volume: volume,
		Price:  price,
		Filled: orderType == "market",
	}, nil
}
