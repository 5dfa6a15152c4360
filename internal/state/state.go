package state

import (
	"fmt"
	"log"
	"sync"
	"time"

	"trade_bot/internal/models"
)

const (
	maxLogEntries    = 1000
	maxHistoryPoints = 500
)

// PricePoint is one sample of the dashboard price series
type PricePoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

// Snapshot is a deep copy of the bot state safe for concurrent readers
type Snapshot struct {
	Running        bool                          `json:"running"`
	Halted         bool                          `json:"halted"`
	Exchange       string                        `json:"exchange"`
	Mode           string                        `json:"mode"`
	Coin           string                        `json:"coin"`
	Balance        models.Balance                `json:"balance"`
	TotalUSD       float64                       `json:"total_usd"`
	LastConfidence float64                       `json:"last_confidence"`
	LastAction     string                        `json:"last_action"`
	CycleCount     int64                         `json:"cycle_count"`
	TradeCount     int64                         `json:"trade_count"`
	LastCycleAt    time.Time                     `json:"last_cycle_at"`
	Advisor        *models.AdvisorSignal         `json:"advisor,omitempty"`
	DeepAnalysis   *models.DeepAnalysis          `json:"deep_analysis,omitempty"`
	PriceHistory   map[string][]PricePoint       `json:"price_history"`
	StartedAt      time.Time                     `json:"started_at"`
}

// SharedState is the single point of coordination between the trading
// loop (sole writer of trading fields) and the dashboard/telegram readers
type SharedState struct {
	mu sync.RWMutex

	running        bool
	halted         bool
	exchange       string
	mode           string
	coin           string
	balance        models.Balance
	lastConfidence float64
	lastAction     string
	cycleCount     int64
	tradeCount     int64
	lastCycleAt    time.Time
	advisor        *models.AdvisorSignal
	deepAnalysis   *models.DeepAnalysis
	priceHistory   map[string][]PricePoint
	logs           []string
	startedAt      time.Time
}

func New(exchange, mode, coin string) *SharedState {
	return &SharedState{
		exchange:     exchange,
		mode:         mode,
		coin:         coin,
		priceHistory: make(map[string][]PricePoint),
		startedAt:    time.Now(),
	}
}

// Snapshot returns a deep copy; mutating it never touches live state
func (s *SharedState) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hist := make(map[string][]PricePoint, len(s.priceHistory))
	for coin, points := range s.priceHistory {
		hist[coin] = append([]PricePoint(nil), points...)
	}

	snap := Snapshot{
		Running:        s.running,
		Halted:         s.halted,
		Exchange:       s.exchange,
		Mode:           s.mode,
		Coin:           s.coin,
		Balance:        s.balance.Clone(),
		TotalUSD:       s.balance.TotalUSD(),
		LastConfidence: s.lastConfidence,
		LastAction:     s.lastAction,
		CycleCount:     s.cycleCount,
		TradeCount:     s.tradeCount,
		LastCycleAt:    s.lastCycleAt,
		PriceHistory:   hist,
		StartedAt:      s.startedAt,
	}
	if s.advisor != nil {
		a := *s.advisor
		snap.Advisor = &a
	}
	if s.deepAnalysis != nil {
		d := *s.deepAnalysis
		snap.DeepAnalysis = &d
	}
	return snap
}

func (s *SharedState) SetRunning(running bool) {
	s.mu.Lock()
	s.running = running
	s.mu.Unlock()
}

func (s *SharedState) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *SharedState) SetHalted(halted bool) {
	s.mu.Lock()
	s.halted = halted
	s.mu.Unlock()
}

func (s *SharedState) Halted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.halted
}

func (s *SharedState) SetCoin(coin string) {
	s.mu.Lock()
	s.coin = coin
	s.mu.Unlock()
}

func (s *SharedState) Coin() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coin
}

// UpdateBalance stores a deep copy of the engine's balance after a cycle
func (s *SharedState) UpdateBalance(b models.Balance) {
	s.mu.Lock()
	s.balance = b.Clone()
	s.mu.Unlock()
}

func (s *SharedState) UpdateDecision(action string, confidence float64) {
	s.mu.Lock()
	s.lastAction = action
	s.lastConfidence = confidence
	s.mu.Unlock()
}

func (s *SharedState) UpdateAdvisor(sig *models.AdvisorSignal) {
	s.mu.Lock()
	s.advisor = sig
	s.mu.Unlock()
}

func (s *SharedState) UpdateDeepAnalysis(d *models.DeepAnalysis) {
	s.mu.Lock()
	s.deepAnalysis = d
	s.mu.Unlock()
}

func (s *SharedState) CycleDone() {
	s.mu.Lock()
	s.cycleCount++
	s.lastCycleAt = time.Now()
	s.mu.Unlock()
}

func (s *SharedState) TradeDone() {
	s.mu.Lock()
	s.tradeCount++
	s.mu.Unlock()
}

// RecordPrice appends a price sample, keeping the series bounded
func (s *SharedState) RecordPrice(coin string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	points := append(s.priceHistory[coin], PricePoint{Timestamp: time.Now(), Price: price})
	if len(points) > maxHistoryPoints {
		points = points[len(points)-maxHistoryPoints:]
	}
	s.priceHistory[coin] = points
}

// Logf logs through the standard logger and keeps the line in the ring
// buffer served by the dashboard
func (s *SharedState) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Print(msg)

	s.mu.Lock()
	s.logs = append(s.logs, time.Now().Format("2006-01-02 15:04:05")+" "+msg)
	if len(s.logs) > maxLogEntries {
		s.logs = s.logs[len(s.logs)-maxLogEntries:]
	}
	s.mu.Unlock()
}

// Logs returns the most recent n log lines, newest last
func (s *SharedState) Logs(n int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.logs) {
		n = len(s.logs)
	}
	return append([]string(nil), s.logs[len(s.logs)-n:]...)
}
