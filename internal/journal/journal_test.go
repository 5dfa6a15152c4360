package journal

import (
	"os"
	"path/filepath"
	"testing"

	"trade_bot/internal/models"
)

func entry(coin, action string, price float64) models.TradeLogEntry {
	return models.TradeLogEntry{
		Timestamp: "2026-01-02T15:04:05Z",
		Coin:      coin,
		Action:    action,
		Volume:    1.5,
		Price:     price,
	}
}

func TestJournalAppendAndTail(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "trades.json"))

	for i, e := range []models.TradeLogEntry{
		entry("SOL", "buy", 100),
		entry("SOL", "sell", 110),
		entry("BTC", "buy", 60000),
	} {
		if err := j.Append(e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	all, err := j.Tail(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d entries, want 3", len(all))
	}
	if all[0].Action != "buy" || all[2].Coin != "BTC" {
		t.Errorf("entries out of order: %+v", all)
	}

	last, err := j.Tail(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(last) != 2 || last[0].Price != 110 {
		t.Errorf("Tail(2) = %+v", last)
	}
}

func TestJournalTailMissingFile(t *testing.T) {
	j := New(filepath.Join(t.TempDir(), "never_written.json"))
	entries, err := j.Tail(10)
	if err != nil || entries != nil {
		t.Errorf("missing file: got (%v, %v), want (nil, nil)", entries, err)
	}
}

func TestJournalTailSkipsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.json")
	j := New(path)
	if err := j.Append(entry("SOL", "buy", 100)); err != nil {
		t.Fatal(err)
	}

	// a torn write in the middle of the file
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{\"coin\": tru\n")
	f.Close()

	if err := j.Append(entry("SOL", "sell", 110)); err != nil {
		t.Fatal(err)
	}

	entries, err := j.Tail(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (garbage line skipped)", len(entries))
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.InsertTrade(entry("SOL", "buy", 100)); err != nil {
		t.Fatal(err)
	}
	if err := store.InsertTrade(entry("SOL", "sell", 110)); err != nil {
		t.Fatal(err)
	}

	trades, err := store.RecentTrades(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	// newest first
	if trades[0].Action != "sell" || trades[0].Price != 110 {
		t.Errorf("first trade = %+v, want the sell", trades[0])
	}

	if one, _ := store.RecentTrades(1); len(one) != 1 {
		t.Errorf("RecentTrades(1) = %d rows", len(one))
	}
}
