package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
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

const okxBaseURL = "https://www.okx.com"

// OKXClient talks to the OKX v5 REST API
type OKXClient struct {
	apiKey     string
	apiSecret  string
	passphrase string
	baseURL    string
	client     *http.Client
}

func NewOKXClient(apiKey, apiSecret, passphrase string) *OKXClient {
	return &OKXClient{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		passphrase: passphrase,
		baseURL:    okxBaseURL,
		client:     newHTTPClient(),
	}
}

func (o *OKXClient) Name() string { return "okx" }

func (o *OKXClient) sign(timestamp, method, path, body string) string {
	mac := hmac.New(sha256.New, []byte(o.apiSecret))
	mac.Write([]byte(timestamp + method + path + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (o *OKXClient) request(ctx context.Context, method, path, body string, private bool) (*simplejson.Json, error) {
	var result *simplejson.Json
	err := withRetry(ctx, func() error {
		var reader *bytes.Reader
		if body != "" {
			reader = bytes.NewReader([]byte(body))
		} else {
			reader = bytes.NewReader(nil)
		}
		req, err := http.NewRequestWithContext(ctx, method, o.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if private {
			if o.apiKey == "" {
				return fmt.Errorf("okx credentials not configured")
			}
			ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
			req.Header.Set("OK-ACCESS-KEY", o.apiKey)
			req.Header.Set("OK-ACCESS-SIGN", o.sign(ts, method, path, body))
			req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
			req.Header.Set("OK-ACCESS-PASSPHRASE", o.passphrase)
		}

		resp, err := o.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		js, err := simplejson.NewFromReader(resp.Body)
		if err != nil {
			return err
		}
		if code := js.Get("code").MustString(); code != "" && code != "0" {
			return fmt.Errorf("okx error %s: %s", code, js.Get("msg").MustString())
		}
		result = js.Get("data")
		return nil
	})
	return result, err
}

func (o *OKXClient) GetBalance(ctx context.Context) (map[string]float64, error) {
	js, err := o.request(ctx, http.MethodGet, "/api/v5/account/balance", "", true)
	if err != nil {
		return nil, err
	}

	balances := make(map[string]float64)
	details := js.GetIndex(0).Get("details")
	arr, _ := details.Array()
	for i := range arr {
		row := details.GetIndex(i)
		ccy := row.Get("ccy").MustString()
		if v, err := strconv.ParseFloat(row.Get("availBal").MustString(), 64); err == nil {
			balances[ccy] = v
		}
	}
	return balances, nil
}

func (o *OKXClient) GetTicker(ctx context.Context, pair string) (*Ticker, error) {
	js, err := o.request(ctx, http.MethodGet, "/api/v5/market/ticker?instId="+pair, "", false)
	if err != nil {
		return nil, err
	}

	row := js.GetIndex(0)
	last, err := strconv.ParseFloat(row.Get("last").MustString(), 64)
	if err != nil {
		return nil, fmt.Errorf("no ticker data for %s", pair)
	}
	bid, _ := strconv.ParseFloat(row.Get("bidPx").MustString(), 64)
	ask, _ := strconv.ParseFloat(row.Get("askPx").MustString(), 64)

	return &Ticker{Pair: pair, Last: last, Bid: bid, Ask: ask}, nil
}

func okxBar(intervalMinutes int) string {
	switch {
	case intervalMinutes >= 1440:
		return "1D"
	case intervalMinutes >= 240:
		return "4H"
	case intervalMinutes >= 60:
		return "1H"
	case intervalMinutes >= 15:
		return "15m"
	case intervalMinutes >= 5:
		return "5m"
	default:
		return "1m"
	}
}

func (o *OKXClient) GetHistoricalData(ctx context.Context, pair string, intervalMinutes, limit int) ([]models.Candle, error) {
	path := fmt.Sprintf("/api/v5/market/candles?instId=%s&bar=%s&limit=%d", pair, okxBar(intervalMinutes), limit)
	js, err := o.request(ctx, http.MethodGet, path, "", false)
	if err != nil {
		return nil, err
	}

	arr, err := js.Array()
	if err != nil {
		return nil, fmt.Errorf("unexpected candles payload: %w", err)
	}

	// OKX returns newest first; reverse into chronological order
	candles := make([]models.Candle, 0, len(arr))
	for i := len(arr) - 1; i >= 0; i-- {
		row := js.GetIndex(i)
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

func (o *OKXClient) PlaceOrder(ctx context.Context, pair, side, orderType string, volume, price float64) (*OrderResult, error) {
	payload := map[string]string{
		"instId":  pair,
		"tdMode":  "cash",
		"side":    side,
		"ordType": orderType,
		"sz":      decimal.NewFromFloat(volume).Round(8).String(),
		"clOrdId": uuid.NewString()[:24],
	}
	if orderType == "limit" {
		payload["px"] = decimal.NewFromFloat(price).Round(5).String()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	js, err := o.request(ctx, http.MethodPost, "/api/v5/trade/order", string(body), true)
	if err != nil {
		return nil, err
	}

	id := js.GetIndex(0).Get("ordId").MustString()
	if id == "" {
		id = payload["clOrdId"]
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
