package engine

import (
	"math"
	"testing"

	"trade_bot/config"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestExecuteTradeBuy(t *testing.T) {
	// 5 SOL at $100 with 0.3% fee costs 501.5
	usdt, coin, executed := ExecuteTrade("buy", 5, 100, 1000, 0, 0.003)
	if !almostEqual(usdt, 498.5) {
		t.Errorf("usdt = %.4f, want 498.5", usdt)
	}
	if !almostEqual(coin, 5) || !almostEqual(executed, 5) {
		t.Errorf("coin = %.4f, executed = %.4f, want 5", coin, executed)
	}
}

func TestExecuteTradeBuyClampsToBalance(t *testing.T) {
	// requested buy costs 501.5 but only 100 USDT available:
	// volume shrinks so the whole balance is spent, fee included
	usdt, coin, executed := ExecuteTrade("buy", 5, 100, 100, 0, 0.003)
	if usdt != 0 {
		t.Errorf("usdt = %.20f, want exactly 0 after clamped spend-all", usdt)
	}
	want := 100 / (100 * 1.003)
	if !almostEqual(coin, want) || !almostEqual(executed, want) {
		t.Errorf("coin = %.8f, executed = %.8f, want %.8f", coin, executed, want)
	}
}

func TestExecuteTradeBuySpendAllNeverGoesNegative(t *testing.T) {
	// recomputing the clamped cost used to leave a tiny negative balance
	// on some inputs, which then blocked the next cycle's sizing
	for _, bal := range []float64{1000, 123.45, 99.99, 0.07, 1e-6} {
		usdt, _, executed := ExecuteTrade("buy", 1e9, 100, bal, 0, 0.003)
		if usdt < 0 {
			t.Errorf("balance %.8f: usdt = %.20f, want >= 0", bal, usdt)
		}
		if usdt != 0 {
			t.Errorf("balance %.8f: usdt = %.20f, want 0 after spend-all", bal, usdt)
		}
		if executed <= 0 {
			t.Errorf("balance %.8f: executed = %.8f, want > 0", bal, executed)
		}
	}
}

func TestExecuteTradeSellClampsToHoldings(t *testing.T) {
	usdt, coin, executed := ExecuteTrade("sell", 10, 100, 0, 4, 0.003)
	if !almostEqual(executed, 4) {
		t.Errorf("executed = %.4f, want 4 (clamped)", executed)
	}
	if !almostEqual(coin, 0) {
		t.Errorf("coin = %.4f, want 0", coin)
	}
	if !almostEqual(usdt, 4*100*0.997) {
		t.Errorf("usdt = %.4f, want %.4f", usdt, 4*100*0.997)
	}
}

func TestExecuteTradeInvalidInputs(t *testing.T) {
	cases := []struct {
		name           string
		action         string
		volume, price  float64
		usdt, holdings float64
	}{
		{"zero volume", "buy", 0, 100, 1000, 0},
		{"zero price", "buy", 5, 0, 1000, 0},
		{"unknown action", "short", 5, 100, 1000, 0},
		{"sell with nothing", "sell", 5, 100, 1000, 0},
	}
	for _, tc := range cases {
		usdt, coin, executed := ExecuteTrade(tc.action, tc.volume, tc.price, tc.usdt, tc.holdings, 0.003)
		if usdt != tc.usdt || coin != tc.holdings || executed != 0 {
			t.Errorf("%s: got (%.4f, %.4f, %.4f), want unchanged balances and 0 executed",
				tc.name, usdt, coin, executed)
		}
	}
}

func TestCalculateVolume(t *testing.T) {
	limits := config.VolumeLimits{Min: 0.1, Max: 10}

	if v := CalculateVolume(500, 100, limits); !almostEqual(v, 5) {
		t.Errorf("plain sizing: got %.4f, want 5", v)
	}
	if v := CalculateVolume(2, 100, limits); !almostEqual(v, 0.1) {
		t.Errorf("min raise: got %.4f, want 0.1", v)
	}
	if v := CalculateVolume(5000, 100, limits); !almostEqual(v, 10) {
		t.Errorf("max cap: got %.4f, want 10", v)
	}
	if v := CalculateVolume(0, 100, limits); v != 0 {
		t.Errorf("zero balance: got %.4f, want 0", v)
	}
	if v := CalculateVolume(500, 0, limits); v != 0 {
		t.Errorf("zero price: got %.4f, want 0", v)
	}
	// Max of 0 means uncapped
	if v := CalculateVolume(5000, 100, config.VolumeLimits{Min: 0.1}); !almostEqual(v, 50) {
		t.Errorf("uncapped: got %.4f, want 50", v)
	}
}
