package exchange

import (
	"context"
	"strings"
	"testing"

	"trade_bot/internal/models"
)

type fakeSource struct{}

func (fakeSource) Name() string { return "kraken" }
func (fakeSource) GetBalance(ctx context.Context) (map[string]float64, error) {
	return map[string]float64{"USDT": 42}, nil
}
func (fakeSource) GetTicker(ctx context.Context, pair string) (*Ticker, error) {
	return &Ticker{Pair: pair, Last: 123.45}, nil
}
func (fakeSource) GetHistoricalData(ctx context.Context, pair string, intervalMinutes, limit int) ([]models.Candle, error) {
	return []models.Candle{{Close: 123.45}}, nil
}
func (fakeSource) PlaceOrder(ctx context.Context, pair, side, orderType string, volume, price float64) (*OrderResult, error) {
	panic("real order placed in simulation")
}

func TestEmulatorDelegatesMarketData(t *testing.T) {
	e := NewEmulator(fakeSource{})
	ctx := context.Background()

	if e.Name() != "kraken-sim" {
		t.Errorf("name = %q", e.Name())
	}

	tk, err := e.GetTicker(ctx, "SOLUSDT")
	if err != nil || tk.Last != 123.45 {
		t.Errorf("ticker = %+v, %v", tk, err)
	}
	candles, err := e.GetHistoricalData(ctx, "SOLUSDT", 1440, 60)
	if err != nil || len(candles) != 1 {
		t.Errorf("candles = %v, %v", candles, err)
	}
}

func TestEmulatorBalanceIsEmpty(t *testing.T) {
	// the simulated portfolio lives in the engine, not the client
	e := NewEmulator(fakeSource{})
	b, err := e.GetBalance(context.Background())
	if err != nil || len(b) != 0 {
		t.Errorf("balance = %v, %v, want empty", b, err)
	}
}

func TestEmulatorFillsInstantly(t *testing.T) {
	e := NewEmulator(fakeSource{})
	res, err := e.PlaceOrder(context.Background(), "SOLUSDT", "buy", "market", 2, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Filled || res.Volume != 2 || res.Price != 100 {
		t.Errorf("result = %+v", res)
	}
	if !strings.HasPrefix(res.ID, "SIM_") {
		t.Errorf("order id = %q, want SIM_ prefix", res.ID)
	}
}

func TestEmulatorRejectsZeroVolume(t *testing.T) {
	e := NewEmulator(fakeSource{})
	if _, err := e.PlaceOrder(context.Background(), "SOLUSDT", "buy", "market", 0, 100); err == nil {
		t.Error("zero volume accepted")
	}
}
