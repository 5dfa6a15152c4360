package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"trade_bot/internal/models"
)

const (
	advisorCacheTTL = 10 * time.Minute
	advisorMinGap   = 30 * time.Second
)

// OllamaAdvisor consults a local LLM for a BUY/SELL/HOLD opinion. Responses
// are cached per coin so repeated cycles inside the TTL reuse the last
// answer instead of hammering the model.
type OllamaAdvisor struct {
	baseURL string
	model   string
	client  *http.Client

	mu        sync.Mutex
	cache     map[string]cachedSignal
	lastQuery time.Time
}

type cachedSignal struct {
	signal models.AdvisorSignal
	at     time.Time
}

func NewOllamaAdvisor(baseURL, model string, timeout time.Duration) *OllamaAdvisor {
	return &OllamaAdvisor{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		cache:   make(map[string]cachedSignal),
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

func (o *OllamaAdvisor) Advise(ctx context.Context, mc MarketContext) (*models.AdvisorSignal, error) {
	o.mu.Lock()
	if c, ok := o.cache[mc.Coin]; ok && time.Since(c.at) < advisorCacheTTL {
		o.mu.Unlock()
		sig := c.signal
		sig.Cached = true
		return &sig, nil
	}
	// throttle fresh queries even across coins
	if wait := advisorMinGap - time.Since(o.lastQuery); wait > 0 {
		if c, ok := o.cache[mc.Coin]; ok {
			o.mu.Unlock()
			sig := c.signal
			sig.Cached = true
			return &sig, nil
		}
		o.mu.Unlock()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		o.mu.Lock()
	}
	o.lastQuery = time.Now()
	o.mu.Unlock()

	sig, err := o.query(ctx, mc)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.cache[mc.Coin] = cachedSignal{signal: *sig, at: time.Now()}
	o.mu.Unlock()
	return sig, nil
}

func (o *OllamaAdvisor) query(ctx context.Context, mc MarketContext) (*models.AdvisorSignal, error) {
	reqBody := ollamaRequest{
		Model:  o.model,
		Prompt: o.buildPrompt(mc),
		Stream: false,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("ollama API error: %s", string(body))
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(body, &ollamaResp); err != nil {
		return nil, err
	}
	return o.parseResponse(ollamaResp.Response)
}

func (o *OllamaAdvisor) buildPrompt(mc MarketContext) string {
	position := "no open position"
	if mc.EntryPrice != nil {
		position = fmt.Sprintf("long from %.4f (%.2f%% unrealized)",
			*mc.EntryPrice, (mc.Price-*mc.EntryPrice) / *mc.EntryPrice*100)
	}

	return fmt.Sprintf(`You are a disciplined crypto spot trader. Return ONLY valid JSON.
Symbol: %s/USDT
Current Price: %.4f
Position: %s
Balance: %.2f USDT, %.6f %s

Indicators (%s):
- RSI: %.2f
- MACD: %.4f (Signal: %.4f)
- ADX: %.2f
- OBV: %.0f
- Momentum: %.4f
- Bollinger: %.4f / %.4f / %.4f

Reference asset (BTC):
- RSI: %.2f
- MACD: %.4f
- Correlation: %.2f

Recent candles:
%s

Decide whether to BUY, SELL or HOLD right now. Be conservative: HOLD when
the setup is unclear.

OUTPUT JSON schema:
{
  "signal": "BUY"|"SELL"|"HOLD",
  "confidence": 0.0-1.0,
  "stop_loss": price_or_0,
  "take_profit": price_or_0,
  "reasoning": "max 2 sentences"
}`,
		mc.Coin, mc.Price, position,
		mc.BalanceUSDT, mc.BalanceCoin, mc.Coin,
		mc.Coin,
		mc.Indicators.RSI,
		mc.Indicators.MACD.Line, mc.Indicators.MACD.Signal,
		mc.Indicators.ADX,
		mc.Indicators.OBV,
		mc.Indicators.Momentum,
		mc.Indicators.Bollinger.Upper, mc.Indicators.Bollinger.Mid, mc.Indicators.Bollinger.Lower,
		mc.RefIndicators.RSI,
		mc.RefIndicators.MACD.Line,
		mc.Indicators.Correlation,
		formatCandles(mc.Candles, 10),
	)
}

func formatCandles(candles []models.Candle, n int) string {
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	var sb strings.Builder
	for i, c := range candles {
		sb.WriteString(fmt.Sprintf("%d. O:%.4f H:%.4f L:%.4f C:%.4f V:%.0f\n",
			i+1, c.Open, c.High, c.Low, c.Close, c.Volume))
	}
	return sb.String()
}

func (o *OllamaAdvisor) parseResponse(content string) (*models.AdvisorSignal, error) {
	// reasoning models wrap their actual answer in think tags
	if end := strings.LastIndex(content, "</think>"); end != -1 {
		content = content[end+len("</think>"):]
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var result struct {
		Signal     string  `json:"signal"`
		Confidence float64 `json:"confidence"`
		StopLoss   float64 `json:"stop_loss"`
		TakeProfit float64 `json:"take_profit"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("failed to parse advisor response: %v", err)
	}

	signal := strings.ToUpper(strings.TrimSpace(result.Signal))
	switch signal {
	case "BUY", "SELL", "HOLD":
	default:
		log.Printf("⚠️ Advisor returned unknown signal %q, treating as HOLD", result.Signal)
		signal = "HOLD"
	}
	if result.Confidence > 1 {
		result.Confidence /= 100 // some models answer in percent
	}

	return &models.AdvisorSignal{
		Signal:          signal,
		ConfidenceScore: result.Confidence,
		Reasoning:       result.Reasoning,
		StopLoss:        result.StopLoss,
		TakeProfit:      result.TakeProfit,
	}, nil
}
