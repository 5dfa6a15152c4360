package exchange

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
)

const krakenWSURL = "wss://ws.kraken.com"

// PriceFeed streams live ticker prices over the Kraken public websocket
// and pushes them to a callback. It reconnects on any error.
type PriceFeed struct {
	pairs   []string
	onPrice func(pair string, price float64)
}

func NewPriceFeed(pairs []string, onPrice func(pair string, price float64)) *PriceFeed {
	return &PriceFeed{pairs: pairs, onPrice: onPrice}
}

// Run blocks until ctx is cancelled, reconnecting with backoff
func (f *PriceFeed) Run(ctx context.Context) {
	bo := &backoff.Backoff{Min: 2 * time.Second, Max: time.Minute, Jitter: true}

	for {
		if ctx.Err() != nil {
			return
		}

		if err := f.stream(ctx); err != nil && ctx.Err() == nil {
			wait := bo.Duration()
			log.Printf("⚠️ Websocket feed dropped: %v (reconnect in %s)", err, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			}
			continue
		}
		bo.Reset()
	}
}

func (f *PriceFeed) stream(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, krakenWSURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := map[string]any{
		"event":        "subscribe",
		"pair":         f.pairs,
		"subscription": map[string]string{"name": "ticker"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	log.Printf("📡 Websocket ticker feed connected (%v)", f.pairs)

	// close the socket when ctx ends so ReadMessage unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		f.handleMessage(raw)
	}
}

// handleMessage parses a Kraken v1 ticker frame:
// [channelID, {"c":["price","lot"],...}, "ticker", "SOL/USD"]
func (f *PriceFeed) handleMessage(raw []byte) {
	var frame []json.RawMessage
	if err := json.Unmarshal(raw, &frame); err != nil || len(frame) < 4 {
		return // heartbeat / subscription status events are objects
	}

	var payload struct {
		C []json.Number `json:"c"`
	}
	if err := json.Unmarshal(frame[1], &payload); err != nil || len(payload.C) == 0 {
		return
	}
	price, err := payload.C[0].Float64()
	if err != nil || price <= 0 {
		return
	}

	var pair string
	if err := json.Unmarshal(frame[3], &pair); err != nil {
		return
	}
	f.onPrice(pair, price)
}
