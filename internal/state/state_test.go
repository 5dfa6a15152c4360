package state

import (
	"fmt"
	"testing"

	"trade_bot/internal/models"
)

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := New("kraken", "SIMULATION", "SOL")

	entry := 100.0
	b := models.Balance{
		USDT: 500,
		Coins: map[string]*models.CoinState{
			"SOL": {Amount: 10, Price: 100, PositionEntryPrice: &entry},
		},
	}
	s.UpdateBalance(b)
	s.RecordPrice("SOL", 100)

	snap := s.Snapshot()

	// mutate the copy every way we can
	snap.Balance.USDT = -1
	snap.Balance.Coins["SOL"].Amount = -1
	*snap.Balance.Coins["SOL"].PositionEntryPrice = -1
	snap.PriceHistory["SOL"][0].Price = -1

	fresh := s.Snapshot()
	if fresh.Balance.USDT != 500 {
		t.Errorf("USDT = %.2f, snapshot leaked into live state", fresh.Balance.USDT)
	}
	if fresh.Balance.Coins["SOL"].Amount != 10 {
		t.Errorf("amount = %.2f, coin state shared", fresh.Balance.Coins["SOL"].Amount)
	}
	if *fresh.Balance.Coins["SOL"].PositionEntryPrice != 100 {
		t.Error("entry price pointer shared between snapshots")
	}
	if fresh.PriceHistory["SOL"][0].Price != 100 {
		t.Error("price history slice shared")
	}
}

func TestSnapshotTotals(t *testing.T) {
	s := New("kraken", "SIMULATION", "SOL")
	s.UpdateBalance(models.Balance{
		USDT:  100,
		Coins: map[string]*models.CoinState{"SOL": {Amount: 2, Price: 50}},
	})
	if snap := s.Snapshot(); snap.TotalUSD != 200 {
		t.Errorf("TotalUSD = %.2f, want 200", snap.TotalUSD)
	}
}

func TestLogRingBounded(t *testing.T) {
	s := New("kraken", "SIMULATION", "SOL")
	for i := 0; i < maxLogEntries+100; i++ {
		s.Logf("line %d", i)
	}

	logs := s.Logs(0)
	if len(logs) != maxLogEntries {
		t.Fatalf("logs = %d lines, want %d", len(logs), maxLogEntries)
	}
	// oldest 100 lines must have been dropped
	last := logs[len(logs)-1]
	want := fmt.Sprintf("line %d", maxLogEntries+99)
	if len(last) < len(want) || last[len(last)-len(want):] != want {
		t.Errorf("last line = %q, want suffix %q", last, want)
	}
}

func TestLogsTail(t *testing.T) {
	s := New("kraken", "SIMULATION", "SOL")
	for i := 0; i < 10; i++ {
		s.Logf("line %d", i)
	}
	if got := s.Logs(3); len(got) != 3 {
		t.Errorf("Logs(3) = %d lines", len(got))
	}
	if got := s.Logs(100); len(got) != 10 {
		t.Errorf("Logs(100) = %d lines, want all 10", len(got))
	}
}

func TestPriceHistoryBounded(t *testing.T) {
	s := New("kraken", "SIMULATION", "SOL")
	for i := 0; i < maxHistoryPoints+50; i++ {
		s.RecordPrice("SOL", float64(i))
	}

	snap := s.Snapshot()
	points := snap.PriceHistory["SOL"]
	if len(points) != maxHistoryPoints {
		t.Fatalf("history = %d points, want %d", len(points), maxHistoryPoints)
	}
	if points[0].Price != 50 {
		t.Errorf("oldest kept point = %.0f, want 50", points[0].Price)
	}
}

func TestCounters(t *testing.T) {
	s := New("kraken", "SIMULATION", "SOL")
	s.CycleDone()
	s.CycleDone()
	s.TradeDone()
	s.UpdateDecision("buy", 0.42)

	snap := s.Snapshot()
	if snap.CycleCount != 2 || snap.TradeCount != 1 {
		t.Errorf("cycles=%d trades=%d", snap.CycleCount, snap.TradeCount)
	}
	if snap.LastAction != "buy" || snap.LastConfidence != 0.42 {
		t.Errorf("decision = %s/%.2f", snap.LastAction, snap.LastConfidence)
	}
	if snap.LastCycleAt.IsZero() {
		t.Error("LastCycleAt not stamped")
	}
}

func TestFlags(t *testing.T) {
	s := New("kraken", "SIMULATION", "SOL")
	if s.Running() {
		t.Error("running should start false")
	}
	s.SetRunning(true)
	s.SetHalted(true)
	s.SetCoin("BTC")
	if !s.Running() || !s.Halted() || s.Coin() != "BTC" {
		t.Errorf("running=%v halted=%v coin=%s", s.Running(), s.Halted(), s.Coin())
	}
}
