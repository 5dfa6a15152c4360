package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"trade_bot/internal/models"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"

// AnthropicAnalyzer runs the slow comprehensive analysis on a long refresh
// interval. Between refreshes the last analysis is served from cache.
type AnthropicAnalyzer struct {
	apiKey   string
	model    string
	interval time.Duration
	client   *http.Client

	mu    sync.Mutex
	cache map[string]cachedAnalysis
}

type cachedAnalysis struct {
	analysis models.DeepAnalysis
	at       time.Time
}

func NewAnthropicAnalyzer(apiKey, model string, interval time.Duration) *AnthropicAnalyzer {
	return &AnthropicAnalyzer{
		apiKey:   apiKey,
		model:    model,
		interval: interval,
		client:   &http.Client{Timeout: 60 * time.Second},
		cache:    make(map[string]cachedAnalysis),
	}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (a *AnthropicAnalyzer) Analyze(ctx context.Context, mc MarketContext) (*models.DeepAnalysis, error) {
	a.mu.Lock()
	if c, ok := a.cache[mc.Coin]; ok && time.Since(c.at) < a.interval {
		a.mu.Unlock()
		out := c.analysis
		return &out, nil
	}
	a.mu.Unlock()

	analysis, err := a.query(ctx, mc)
	if err != nil {
		// a stale analysis beats none at all
		a.mu.Lock()
		c, ok := a.cache[mc.Coin]
		a.mu.Unlock()
		if ok {
			out := c.analysis
			return &out, nil
		}
		return nil, err
	}

	a.mu.Lock()
	a.cache[mc.Coin] = cachedAnalysis{analysis: *analysis, at: time.Now()}
	a.mu.Unlock()
	return analysis, nil
}

func (a *AnthropicAnalyzer) query(ctx context.Context, mc MarketContext) (*models.DeepAnalysis, error) {
	reqBody := anthropicRequest{
		Model:     a.model,
		MaxTokens: 1024,
		Messages: []anthropicMessage{
			{Role: "user", Content: a.buildPrompt(mc)},
		},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("anthropic API error: %s", string(body))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, err
	}
	if len(apiResp.Content) == 0 {
		return nil, fmt.Errorf("empty response from Anthropic")
	}
	return a.parseResponse(apiResp.Content[0].Text)
}

func (a *AnthropicAnalyzer) buildPrompt(mc MarketContext) string {
	return fmt.Sprintf(`You are a senior crypto market analyst. Produce a comprehensive
market assessment for %s/USDT. Return ONLY valid JSON.

Current Price: %.4f
Indicators:
- RSI: %.2f
- MACD: %.4f (Signal: %.4f)
- ADX: %.2f
- ATR: %.4f
- OBV: %.0f
- Stochastic K/D: %.2f / %.2f
- Momentum: %.4f
- Moving Average: %.4f
- Bollinger: %.4f / %.4f / %.4f
- Correlation to BTC: %.2f

BTC reference: RSI %.2f, MACD %.4f

Candle history:
%s

Assess trend structure, chart patterns, support/resistance, volume behavior
and macro risk. Then recommend an action.

OUTPUT JSON:
{
  "recommended_action": "BUY"|"SELL"|"HOLD",
  "confidence": 0.0-1.0,
  "trend": "bullish"|"bearish"|"sideways",
  "key_patterns": ["..."],
  "warnings": ["..."],
  "reasoning": "max 4 sentences"
}`,
		mc.Coin, mc.Price,
		mc.Indicators.RSI,
		mc.Indicators.MACD.Line, mc.Indicators.MACD.Signal,
		mc.Indicators.ADX,
		mc.Indicators.ATR,
		mc.Indicators.OBV,
		mc.Indicators.Stochastic.K, mc.Indicators.Stochastic.D,
		mc.Indicators.Momentum,
		mc.Indicators.MovingAvg,
		mc.Indicators.Bollinger.Upper, mc.Indicators.Bollinger.Mid, mc.Indicators.Bollinger.Lower,
		mc.Indicators.Correlation,
		mc.RefIndicators.RSI, mc.RefIndicators.MACD.Line,
		formatCandles(mc.Candles, 30),
	)
}

func (a *AnthropicAnalyzer) parseResponse(content string) (*models.DeepAnalysis, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var result struct {
		RecommendedAction string   `json:"recommended_action"`
		Confidence        float64  `json:"confidence"`
		Trend             string   `json:"trend"`
		KeyPatterns       []string `json:"key_patterns"`
		Warnings          []string `json:"warnings"`
		Reasoning         string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &result); err != nil {
		return nil, fmt.Errorf("failed to parse deep analysis: %v", err)
	}

	action := strings.ToUpper(strings.TrimSpace(result.RecommendedAction))
	switch action {
	case "BUY", "SELL", "HOLD":
	default:
		action = "HOLD"
	}
	if result.Confidence > 1 {
		result.Confidence /= 100
	}

	return &models.DeepAnalysis{
		RecommendedAction: action,
		Confidence:        result.Confidence,
		Trend:             result.Trend,
		KeyPatterns:       result.KeyPatterns,
		Warnings:          result.Warnings,
		Reasoning:         result.Reasoning,
	}, nil
}
