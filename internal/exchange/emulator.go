package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trade_bot/internal/models"
)

// Emulator is the simulation client: market data comes from the wrapped
// real client, orders fill instantly without touching the exchange
type Emulator struct {
	source Client
}

func NewEmulator(source Client) *Emulator {
	return &Emulator{source: source}
}

func (e *Emulator) Name() string { return e.source.Name() + "-sim" }

// GetBalance returns an empty map; in simulation the portfolio lives in the
// engine's Balance, seeded from config
func (e *Emulator) GetBalance(ctx context.Context) (map[string]float64, error) {
	return map[string]float64{}, nil
}

func (e *Emulator) GetTicker(ctx context.Context, pair string) (*Ticker, error) {
	return e.source.GetTicker(ctx, pair)
}

func (e *Emulator) GetHistoricalData(ctx context.Context, pair string, intervalMinutes, limit int) ([]models.Candle, error) {
	return e.source.GetHistoricalData(ctx, pair, intervalMinutes, limit)
}

func (e *Emulator) PlaceOrder(ctx context.Context, pair, side, orderType string, volume, price float64) (*OrderResult, error) {
	if volume <= 0 {
		return nil, fmt.Errorf("invalid volume %.8f", volume)
	}
	return &OrderResult{
		ID:     fmt.Sprintf("SIM_%d_%s", time.Now().Unix(), uuid.NewString()[:8]),
		Pair:   pair,
		Side:   side,
		Type:   orderType,
		Volume: volume,
		Price:  price,
		Filled: true,
	}, nil
}
