package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	simplejson "github.com/bitly/go-simplejson"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trade_bot/internal/models"
)

const krakenBaseURL = "https://api.kraken.com"

// KrakenClient talks to the Kraken REST API
type KrakenClient struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
}

func NewKrakenClient(apiKey, apiSecret string) *KrakenClient {
	return &KrakenClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   krakenBaseURL,
		client:    newHTTPClient(),
	}
}

func (k *KrakenClient) Name() string { return "kraken" }

// sign implements the Kraken API-Sign scheme:
// HMAC-SHA512(path + SHA256(nonce + postdata)) keyed with the base64-decoded secret
func (k *KrakenClient) sign(urlPath string, data url.Values) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(k.apiSecret)
	if err != nil {
		return "", fmt.Errorf("decode api secret: %w", err)
	}

	postdata := data.Encode()
	inner := sha256.Sum256([]byte(data.Get("nonce") + postdata))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(urlPath))
	mac.Write(inner[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (k *KrakenClient) public(ctx context.Context, path string, query url.Values) (*simplejson.Json, error) {
	var result *simplejson.Json
	err := withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+path+"?"+query.Encode(), nil)
		if err != nil {
			return err
		}
		resp, err := k.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		js, err := simplejson.NewFromReader(resp.Body)
		if err != nil {
			return err
		}
		if errs, _ := js.Get("error").StringArray(); len(errs) > 0 {
			return fmt.Errorf("kraken error: %s", strings.Join(errs, ", "))
		}
		result = js.Get("result")
		return nil
	})
	return result, err
}

func (k *KrakenClient) private(ctx context.Context, path string, data url.Values) (*simplejson.Json, error) {
	if k.apiKey == "" || k.apiSecret == "" {
		return nil, fmt.Errorf("kraken credentials not configured")
	}

	var result *simplejson.Json
	err := withRetry(ctx, func() error {
		data.Set("nonce", strconv.FormatInt(time.Now().UnixMilli(), 10))
		sig, err := k.sign(path, data)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+path, strings.NewReader(data.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("API-Key", k.apiKey)
		req.Header.Set("API-Sign", sig)

		resp, err := k.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		js, err := simplejson.NewFromReader(resp.Body)
		if err != nil {
			return err
		}
		if errs, _ := js.Get("error").StringArray(); len(errs) > 0 {
			return fmt.Errorf("kraken error: %s", strings.Join(errs, ", "))
		}
		result = js.Get("result")
		return nil
	})
	return result, err
}

func (k *KrakenClient) GetBalance(ctx context.Context) (map[string]float64, error) {
	js, err := k.private(ctx, "/0/private/Balance", url.Values{})
	if err != nil {
		return nil, err
	}

	raw, err := js.Map()
	if err != nil {
		return nil, fmt.Errorf("unexpected balance payload: %w", err)
	}

	balances := make(map[string]float64, len(raw))
	for asset := range raw {
		amount, err := js.Get(asset).String()
		if err != nil {
			continue
		}
		if v, err := strconv.ParseFloat(amount, 64); err == nil {
			balances[normalizeKrakenAsset(asset)] = v
		}
	}
	return balances, nil
}

// Kraken prefixes legacy assets (XXBT, ZUSD); map them to plain symbols
func normalizeKrakenAsset(asset string) string {
	switch asset {
	case "XXBT", "XBT":
		return "BTC"
	case "ZUSD":
		return "USD"
	case "USDT":
		return "USDT"
	}
	if len(asset) == 4 && (asset[0] == 'X' || asset[0] == 'Z') {
		return asset[1:]
	}
	return asset
}

func (k *KrakenClient) GetTicker(ctx context.Context, pair string) (*Ticker, error) {
	query := url.Values{"pair": {pair}}
	js, err := k.public(ctx, "/0/public/Ticker", query)
	if err != nil {
		return nil, err
	}

	raw, err := js.Map()
	if err != nil || len(raw) == 0 {
		return nil, fmt.Errorf("no ticker data for %s", pair)
	}

	// the result key may be Kraken's canonical pair name, not the requested one
	var entry *simplejson.Json
	for key := range raw {
		entry = js.Get(key)
		break
	}

	last, err := strconv.ParseFloat(entry.Get("c").GetIndex(0).MustString(), 64)
	if err != nil {
		return nil, fmt.Errorf("parse last price for %s: %w", pair, err)
	}
	bid, _ := strconv.ParseFloat(entry.Get("b").GetIndex(0).MustString(), 64)
	ask, _ := strconv.ParseFloat(entry.Get("a").GetIndex(0).MustString(), 64)

	return &Ticker{Pair: pair, Last: last, Bid: bid, Ask: ask}, nil
}

func (k *KrakenClient) GetHistoricalData(ctx context.Context, pair string, intervalMinutes, limit int) ([]models.Candle, error) {
	query := url.Values{
		"pair":     {pair},
		"interval": {strconv.Itoa(intervalMinutes)},
	}
	js, err := k.public(ctx, "/0/public/OHLC", query)
	if err != nil {
		return nil, err
	}

	raw, err := js.Map()
	if err != nil {
		return nil, fmt.Errorf("unexpected OHLC payload: %w", err)
	}

	var rows *simplejson.Json
	for key := range raw {
		if key == "last" {
			continue
		}
		rows = js.Get(key)
		break
	}
	if rows == nil {
		return nil, fmt.Errorf("no OHLC data for %s", pair)
	}

	arr, err := rows.Array()
	if err != nil {
		return nil, fmt.Errorf("unexpected OHLC rows: %w", err)
	}

	candles := make([]models.Candle, 0, len(arr))
	for i := range arr {
		row := rows.GetIndex(i)
		// [time, open, high, low, close, vwap, volume, count]
		ts := row.GetIndex(0).MustFloat64()
		c := models.Candle{
			Timestamp: time.Unix(int64(ts), 0),
			Open:      parsePrice(row.GetIndex(1)),
			High:      parsePrice(row.GetIndex(2)),
			Low:       parsePrice(row.GetIndex(3)),
			Close:     parsePrice(row.GetIndex(4)),
			Volume:    parsePrice(row.GetIndex(6)),
		}
		candles = append(candles, c)
	}

	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

func parsePrice(js *simplejson.Json) float64 {
	if s, err := js.String(); err == nil {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	return js.MustFloat64()
}

func (k *KrakenClient) PlaceOrder(ctx context.Context, pair, side, orderType string, volume, price float64) (*OrderResult, error) {
	data := url.Values{
		"pair":      {pair},
		"type":      {side},
		"ordertype": {orderType},
		"volume":    {decimal.NewFromFloat(volume).Round(8).String()},
		"cl_ord_id": {uuid.NewString()},
	}
	if orderType == "limit" {
		data.Set("price", decimal.NewFromFloat(price).Round(5).String())
	}

	js, err := k.private(ctx, "/0/private/AddOrder", data)
	if err != nil {
		return nil, err
	}

	txids, _ := js.Get("txid").StringArray()
	id := uuid.NewString()
	if len(txids) > 0 {
		id = txids[0]
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
