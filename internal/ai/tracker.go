package ai

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// SignalTracker remembers the advisor's recent signals per coin so the
// engine can require N consecutive identical signals before acting. State
// survives restarts via a small JSON file.
type SignalTracker struct {
	mu   sync.Mutex
	path string
	data map[string]*signalHistory
}

type signalHistory struct {
	LastSignal  string    `json:"last_signal"`
	Consecutive int       `json:"consecutive"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewSignalTracker(path string) *SignalTracker {
	t := &SignalTracker{
		path: path,
		data: make(map[string]*signalHistory),
	}
	t.load()
	return t
}

func (t *SignalTracker) load() {
	raw, err := os.ReadFile(t.path)
	if err != nil {
		return // first run
	}
	if err := json.Unmarshal(raw, &t.data); err != nil {
		log.Printf("⚠️ Corrupt signal state file %s, starting fresh: %v", t.path, err)
		t.data = make(map[string]*signalHistory)
	}
}

func (t *SignalTracker) save() {
	raw, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(t.path, raw, 0644); err != nil {
		log.Printf("⚠️ Failed to persist signal state: %v", err)
	}
}

// Record registers a fresh advisor signal and returns the updated
// consecutive count for that signal
func (t *SignalTracker) Record(coin, signal string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.data[coin]
	if !ok || h.LastSignal != signal {
		h = &signalHistory{LastSignal: signal, Consecutive: 1}
		t.data[coin] = h
	} else {
		h.Consecutive++
	}
	h.UpdatedAt = time.Now()
	t.save()
	return h.Consecutive
}

// ChangedFrom reports whether the latest signal differs from the previous one
func (t *SignalTracker) ChangedFrom(coin, signal string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.data[coin]
	return ok && h.LastSignal != signal
}

// Stable reports whether the same signal has been seen at least `required`
// times in a row
func (t *SignalTracker) Stable(coin, signal string, required int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.data[coin]
	return ok && h.LastSignal == signal && h.Consecutive >= required
}

// Reset clears the history for a coin, used after a trade executes
func (t *SignalTracker) Reset(coin string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.data, coin)
	t.save()
}
