package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"trade_bot/internal/models"
)

// Journal is the append-only trade log, one JSON object per line. The
// trading loop is the sole writer; the mutex guards against a dashboard
// triggered flush racing a cycle.
type Journal struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Journal {
	return &Journal{path: path}
}

// Append writes one entry; a failed write is reported but must never
// abort the trade that produced it
func (j *Journal) Append(entry models.TradeLogEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open trade log: %w", err)
	}
	defer f.Close()

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode trade log entry: %w", err)
	}
	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("write trade log: %w", err)
	}
	return nil
}

// Tail reads back the last n entries, skipping lines that fail to parse
func (j *Journal) Tail(n int) ([]models.TradeLogEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	raw, err := os.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []models.TradeLogEntry
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == '\n' {
			line := raw[start:i]
			start = i + 1
			if len(line) == 0 {
				continue
			}
			var e models.TradeLogEntry
			if err := json.Unmarshal(line, &e); err == nil {
				entries = append(entries, e)
			}
		}
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}
