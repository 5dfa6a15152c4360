package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trade_bot/internal/models"
)

// BinanceClient wraps the official go-binance spot client
type BinanceClient struct {
	client *binance.Client
}

func NewBinanceClient(apiKey, secretKey string, testnet bool) *BinanceClient {
	if testnet {
		binance.UseTestnet = true
	}
	return &BinanceClient{client: binance.NewClient(apiKey, secretKey)}
}

func (b *BinanceClient) Name() string { return "binance" }

func (b *BinanceClient) GetBalance(ctx context.Context) (map[string]float64, error) {
	var account *binance.Account
	err := withRetry(ctx, func() error {
		var err error
		account, err = b.client.NewGetAccountService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	balances := make(map[string]float64)
	for _, bal := range account.Balances {
		free := parseFloat(bal.Free)
		if free > 0 {
			balances[bal.Asset] = free
		}
	}
	return balances, nil
}

func (b *BinanceClient) GetTicker(ctx context.Context, pair string) (*Ticker, error) {
	var stats []*binance.PriceChangeStats
	err := withRetry(ctx, func() error {
		var err error
		stats, err = b.client.NewListPriceChangeStatsService().Symbol(pair).Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, fmt.Errorf("no ticker data for %s", pair)
	}

	st := stats[0]
	return &Ticker{
		Pair: pair,
		Last: parseFloat(st.LastPrice),
		Bid:  parseFloat(st.BidPrice),
		Ask:  parseFloat(st.AskPrice),
	}, nil
}

func binanceInterval(intervalMinutes int) string {
	switch {
	case intervalMinutes >= 1440:
		return "1d"
	case intervalMinutes >= 240:
		return "4h"
	case intervalMinutes >= 60:
		return "1h"
	case intervalMinutes >= 15:
		return "15m"
	case intervalMinutes >= 5:
		return "5m"
	default:
		return "1m"
	}
}

func (b *BinanceClient) GetHistoricalData(ctx context.Context, pair string, intervalMinutes, limit int) ([]models.Candle, error) {
	var klines []*binance.Kline
	err := withRetry(ctx, func() error {
		var err error
		klines, err = b.client.NewKlinesService().
			Symbol(pair).
			Interval(binanceInterval(intervalMinutes)).
			Limit(limit).
			Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	candles := make([]models.Candle, len(klines))
	for i, k := range klines {
		candles[i] = models.Candle{
			Timestamp: time.Unix(k.OpenTime/1000, 0),
			Open:      parseFloat(k.Open),
			High:      parseFloat(k.High),
			Low:       parseFloat(k.Low),
			Close:     parseFloat(k.Close),
			Volume:    parseFloat(k.Volume),
		}
	}
	return candles, nil
}

func (b *BinanceClient) PlaceOrder(ctx context.Context, pair, side, orderType string, volume, price float64) (*OrderResult, error) {
	svc := b.client.NewCreateOrderService().
		Symbol(pair).
		Quantity(decimal.NewFromFloat(volume).Round(8).String()).
		NewClientOrderID(uuid.NewString())

	if side == "buy" {
		svc = svc.Side(binance.SideTypeBuy)
	} else {
		svc = svc.Side(binance.SideTypeSell)
	}
	if orderType == "limit" {
		svc = svc.Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Price(decimal.NewFromFloat(price).Round(5).String())
	} else {
		svc = svc.Type(binance.OrderTypeMarket)
	}

	order, err := svc.Do(ctx)
	if err != nil {
		return nil, err
	}
	return &OrderResult{
		ID:     strconv.FormatInt(order.OrderID, 10),
		Pair:   pair,
		Side:   side,
		Type:   orderType,
		Volume: volume,
		Price:  price,
		Filled: order.Status == binance.OrderStatusTypeFilled,
	}, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
