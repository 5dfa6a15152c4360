package exchange

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jpillora/backoff"

	"trade_bot/internal/models"
)

// Ticker is the last-trade snapshot for a pair
type Ticker struct {
	Pair string
	Last float64
	Bid  float64
	Ask  float64
}

// OrderResult reports a placed (or simulated) order
type OrderResult struct {
	ID     string
	Pair   string
	Side   string // "buy" or "sell"
	Type   string // "market" or "limit"
	Volume float64
	Price  float64
	Filled bool
}

// Client is the uniform surface every exchange adapter provides.
// Adapters retry transient failures themselves with bounded backoff; callers
// treat any error as "no data this cycle", never as fatal.
type Client interface {
	Name() string
	GetBalance(ctx context.Context) (map[string]float64, error)
	GetTicker(ctx context.Context, pair string) (*Ticker, error)
	GetHistoricalData(ctx context.Context, pair string, intervalMinutes, limit int) ([]models.Candle, error)
	PlaceOrder(ctx context.Context, pair, side, orderType string, volume, price float64) (*OrderResult, error)
}

const maxAttempts = 3

// withRetry runs fn up to maxAttempts times with exponential backoff between
// attempts, honoring context cancellation
func withRetry(ctx context.Context, fn func() error) error {
	b := &backoff.Backoff{
		Min:    2 * time.Second,
		Max:    15 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
	return fmt.Errorf("after %d attempts: %w", maxAttempts, err)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
