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

const bybitBaseURL = "https://api.bybit.com"

// BybitClient talks to the Bybit v5 REST API (spot category)
type BybitClient struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
}

func NewBybitClient(apiKey, apiSecret string) *BybitClient {
	return &BybitClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   bybitBaseURL,
		client:    newHTTPClient(),
	}
}

func (b *BybitClient) Name() string { return "bybit" }

func (b *BybitClient) sign(timestamp, payload string) string {
	mac := hmac.New(sha256.New, []byte(b.apiSecret))
	mac.Write([]byte(timestamp + b.apiKey + "5000" + payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (b *BybitClient) request(ctx context.Context, method, path, query, body string, private bool) (*simplejson.Json, error) {
	var result *simplejson.Json
	err := withRetry(ctx, func() error {
		fullURL := b.baseURL + path
		if query != "" {
			fullURL += "?" + query
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bytes.NewReader([]byte(body)))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if private {
			if b.apiKey == "" {
				return fmt.Errorf("bybit credentials not configured")
			}
			ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
			payload := body
			if method == http.MethodGet {
				payload = query
			}
			req.Header.Set("X-BAPI-API-KEY", b.apiKey)
			req.Header.Set("X-BAPI-TIMESTAMP", ts)
			req.Header.Set("X-BAPI-RECV-WINDOW", "5000")
			req.Header.Set("X-BAPI-SIGN", b.sign(ts, payload))
		}

		resp, err := b.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		js, err := simplejson.NewFromReader(resp.Body)
		if err != nil {
			return err
		}
		if code := js.Get("retCode").MustInt(); code != 0 {
			return fmt.Errorf("bybit error %d: %s", code, js.Get("retMsg").MustString())
		}
		result = js.Get("result")
		return nil
	})
	return result, err
}

func (b *BybitClient) GetBalance(ctx context.Context) (map[string]float64, error) {
	js, err := b.request(ctx, http.MethodGet, "/v5/account/wallet-balance", "accountType=UNIFIED", "", true)
	if err != nil {
		return nil, err
	}

	balances := make(map[string]float64)
	coins := js.Get("list").GetIndex(0).Get("coin")
	arr, _ := coins.Array()
	for i := range arr {
		row := coins.GetIndex(i)
		sym := row.Get("coin").MustString()
		if v, err := strconv.ParseFloat(row.Get("walletBalance").MustString(), 64); err == nil {
			balances[sym] = v
		}
	}
	return balances, nil
}

func (b *BybitClient) GetTicker(ctx context.Context, pair string) (*Ticker, error) {
	js, err := b.request(ctx, http.MethodGet, "/v5/market/tickers", "category=spot&symbol="+pair, "", false)
	if err != nil {
		return nil, err
	}

	row := js.Get("list").GetIndex(0)
	last, err := strconv.ParseFloat(row.Get("lastPrice").MustString(), 64)
	if err != nil {
		return nil, fmt.Errorf("no ticker data for %s", pair)
	}
	bid, _ := strconv.ParseFloat(row.Get("bid1Price").MustString(), 64)
	ask, _ := strconv.ParseFloat(row.Get("ask1Price").MustString(), 64)

	return &Ticker{Pair: pair, Last: last, Bid: bid, Ask: ask}, nil
}

func (b *BybitClient) GetHistoricalData(ctx context.Context, pair string, intervalMinutes, limit int) ([]models.Candle, error) {
	interval := strconv.Itoa(intervalMinutes)
	if intervalMinutes >= 1440 {
		interval = "D"
	}
	query := fmt.Sprintf("category=spot&symbol=%s&interval=%s&limit=%d", pair, interval, limit)
	js, err := b.request(ctx, http.MethodGet, "/v5/market/kline", query, "", false)
	if err != nil {
		return nil, err
	}

	rows := js.Get("list")
	arr, err := rows.Array()
	if err != nil {
		return nil, fmt.Errorf("unexpected kline payload: %w", err)
	}

	// Bybit returns newest first
	candles := make([]models.Candle, 0, len(arr))
	for i := len(arr) - 1; i >= 0; i-- {
		row := rows.GetIndex(i)
		ms, _ := strconv.ParseInt(row.GetIndex(0).MustString(), 10, 64)
		candles = append(candles, models.Candle{
			Timestamp: time.UnixMilli(ms),
			Open:      parsePrice(row.GetIndex(1)),
			High:      parsePrice(row.GetIndex(2)),
			Low:       parsePrice(row.GetIndex(3)),
			Close:     parsePrice(row.GetIndex(4)),
			Volume:    parsePrice(row.GetIndex(5)),
		})
	}
	return candles, nil
}

func (b *BybitClient) PlaceOrder(ctx context.Context, pair, side, orderType string, volume, price float64) (*OrderResult, error) {
	sideName := "Buy"
	if side == "sell" {
		sideName = "Sell"
	}
	typeName := "Market"
	if orderType == "limit" {
		typeName = "Limit"
	}

	payload := map[string]string{
		"category":    "spot",
		"symbol":      pair,
		"side":        sideName,
		"orderType":   typeName,
		"qty":         decimal.NewFromFloat(volume).Round(8).String(),
		"orderLinkId": uuid.NewString(),
	}
	if orderType == "limit" {
		payload["price"] = decimal.NewFromFloat(price).Round(5).String()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	js, err := b.request(ctx, http.MethodPost, "/v5/order/create", "", string(body), true)
	if err != nil {
		return nil, err
	}

	id := js.Get("orderId").MustString()
	if id == "" {
		id = payload["orderLinkId"]
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
