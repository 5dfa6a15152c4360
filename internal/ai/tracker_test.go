package ai

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTrackerConsecutiveCounting(t *testing.T) {
	tr := NewSignalTracker(filepath.Join(t.TempDir(), "signals.json"))

	if n := tr.Record("SOL", "BUY"); n != 1 {
		t.Errorf("first BUY: count = %d", n)
	}
	if n := tr.Record("SOL", "BUY"); n != 2 {
		t.Errorf("second BUY: count = %d", n)
	}
	if !tr.Stable("SOL", "BUY", 2) {
		t.Error("two consecutive BUYs should be stable at 2")
	}

	// a flip resets the streak
	if n := tr.Record("SOL", "SELL"); n != 1 {
		t.Errorf("after flip: count = %d", n)
	}
	if tr.Stable("SOL", "SELL", 2) {
		t.Error("single SELL should not be stable at 2")
	}
	if !tr.ChangedFrom("SOL", "BUY") {
		t.Error("ChangedFrom should see the flip to SELL")
	}
}

func TestTrackerCoinsAreIndependent(t *testing.T) {
	tr := NewSignalTracker(filepath.Join(t.TempDir(), "signals.json"))
	tr.Record("SOL", "BUY")
	tr.Record("BTC", "SELL")

	if n := tr.Record("SOL", "BUY"); n != 2 {
		t.Errorf("SOL streak = %d, BTC leaked into it", n)
	}
}

func TestTrackerPersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.json")

	tr := NewSignalTracker(path)
	tr.Record("SOL", "BUY")
	tr.Record("SOL", "BUY")

	// a second tracker over the same file picks up the streak
	tr2 := NewSignalTracker(path)
	if n := tr2.Record("SOL", "BUY"); n != 3 {
		t.Errorf("restarted tracker count = %d, want 3", n)
	}
}

func TestTrackerReset(t *testing.T) {
	tr := NewSignalTracker(filepath.Join(t.TempDir(), "signals.json"))
	tr.Record("SOL", "BUY")
	tr.Record("SOL", "BUY")
	tr.Reset("SOL")

	if tr.Stable("SOL", "BUY", 1) {
		t.Error("reset streak still stable")
	}
	if n := tr.Record("SOL", "BUY"); n != 1 {
		t.Errorf("after reset: count = %d", n)
	}
}

func TestTrackerCorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signals.json")
	if err := os.WriteFile(path, []byte("not json at all"), 0644); err != nil {
		t.Fatal(err)
	}

	tr := NewSignalTracker(path)
	if n := tr.Record("SOL", "BUY"); n != 1 {
		t.Errorf("corrupt file: count = %d, want fresh start", n)
	}
}
