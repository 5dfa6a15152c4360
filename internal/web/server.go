package web

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"trade_bot/internal/journal"
	"trade_bot/internal/pairs"
	"trade_bot/internal/state"
)

// Server is the read-mostly dashboard: JSON views over the shared state
// snapshot plus the start/stop control surface
type Server struct {
	shared *state.SharedState
	pairs  *pairs.Manager
	trades *journal.Journal
	store  *journal.Store
	port   string
}

func NewServer(shared *state.SharedState, pm *pairs.Manager, trades *journal.Journal, store *journal.Store, port string) *Server {
	return &Server{
		shared: shared,
		pairs:  pm,
		trades: trades,
		store:  store,
		port:   port,
	}
}

func (s *Server) Start() {
	http.HandleFunc("/", s.handleIndex)
	http.HandleFunc("/api/state", s.handleState)
	http.HandleFunc("/api/logs", s.handleLogs)
	http.HandleFunc("/api/history", s.handleHistory)
	http.HandleFunc("/api/trades", s.handleTrades)
	http.HandleFunc("/api/start", s.handleStart)
	http.HandleFunc("/api/stop", s.handleStop)
	http.HandleFunc("/api/coin", s.handleCoin)
	http.HandleFunc("/api/health", s.handleHealth)

	log.Printf("🌐 Web server starting on http://localhost:%s", s.port)
	go func() {
		if err := http.ListenAndServe(":"+s.port, nil); err != nil {
			log.Printf("Web server error: %v", err)
		}
	}()
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap := s.shared.Snapshot()

	coins := make(map[string]interface{}, len(snap.Balance.Coins))
	for sym, cs := range snap.Balance.Coins {
		entry := map[string]interface{}{
			"amount": cs.Amount,
			"price":  cs.Price,
			"rsi":    cs.Indicators.RSI,
			"macd":   cs.Indicators.MACD.Line,
			"adx":    cs.Indicators.ADX,
		}
		if cs.PositionEntryPrice != nil {
			entry["entry_price"] = *cs.PositionEntryPrice
		}
		if cs.TrailingHighPrice != nil {
			entry["trailing_high"] = *cs.TrailingHighPrice
		}
		coins[sym] = entry
	}

	response := map[string]interface{}{
		"running":         snap.Running,
		"halted":          snap.Halted,
		"exchange":        snap.Exchange,
		"mode":            snap.Mode,
		"coin":            snap.Coin,
		"usdt":            snap.Balance.USDT,
		"coins":           coins,
		"total_usd":       snap.TotalUSD,
		"peak_usd":        snap.Balance.PeakTotalUSD,
		"initial_usd":     snap.Balance.InitialTotalUSD,
		"last_confidence": snap.LastConfidence,
		"last_action":     snap.LastAction,
		"cycle_count":     snap.CycleCount,
		"trade_count":     snap.TradeCount,
		"uptime_sec":      int64(time.Since(snap.StartedAt).Seconds()),
		"timestamp":       time.Now().Unix(),
	}
	if snap.Advisor != nil {
		response["advisor"] = map[string]interface{}{
			"signal":     snap.Advisor.Signal,
			"confidence": snap.Advisor.ConfidenceScore,
			"reasoning":  snap.Advisor.Reasoning,
			"cached":     snap.Advisor.Cached,
		}
	}
	if snap.DeepAnalysis != nil {
		response["deep_analysis"] = map[string]interface{}{
			"action":     snap.DeepAnalysis.RecommendedAction,
			"confidence": snap.DeepAnalysis.Confidence,
			"trend":      snap.DeepAnalysis.Trend,
			"warnings":   snap.DeepAnalysis.Warnings,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	n := 100
	if v := r.URL.Query().Get("n"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			n = parsed
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"logs": s.shared.Logs(n),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	snap := s.shared.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"prices": snap.PriceHistory,
	})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	// prefer the indexed store, fall back to scanning the journal
	if s.store != nil {
		trades, err := s.store.RecentTrades(limit)
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"trades": trades})
			return
		}
		log.Printf("⚠️ History store read failed, falling back to journal: %v", err)
	}

	entries, err := s.trades.Tail(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"trades": entries})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.shared.SetRunning(true)
	s.shared.Logf("▶️ Trading enabled via API")
	json.NewEncoder(w).Encode(map[string]string{"result": "ok"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.shared.SetRunning(false)
	s.shared.Logf("⏸️ Trading paused via API")
	json.NewEncoder(w).Encode(map[string]string{"result": "ok"})
}

func (s *Server) handleCoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var data struct {
		Coin string `json:"coin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	coin, err := s.pairs.ValidateCoin(data.Coin)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.shared.SetCoin(coin)
	s.shared.Logf("🪙 Selected coin switched to %s via API", coin)
	json.NewEncoder(w).Encode(map[string]string{"result": "ok", "coin": coin})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.shared.Snapshot()

	status := "ok"
	message := "Trading loop healthy"
	if snap.Halted {
		status = "halted"
		message = "Max drawdown circuit breaker engaged"
	} else if !snap.Running {
		status = "paused"
		message = "Trading paused"
	} else if !snap.LastCycleAt.IsZero() && time.Since(snap.LastCycleAt) > 3*time.Hour {
		status = "stale"
		message = fmt.Sprintf("No cycle since %s", snap.LastCycleAt.Format(time.RFC3339))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"message":   message,
		"exchange":  snap.Exchange,
		"mode":      snap.Mode,
		"timestamp": time.Now().Unix(),
	})
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Trade Bot</title>
<style>
  body { font-family: -apple-system, sans-serif; background: #0d1117; color: #c9d1d9; margin: 0; padding: 20px; }
  h1 { font-size: 20px; }
  .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(220px, 1fr)); gap: 12px; }
  .card { background: #161b22; border: 1px solid #30363d; border-radius: 8px; padding: 14px; }
  .card .label { color: #8b949e; font-size: 12px; text-transform: uppercase; }
  .card .value { font-size: 22px; margin-top: 4px; }
  .green { color: #3fb950; } .red { color: #f85149; } .yellow { color: #d29922; }
  button { background: #238636; color: #fff; border: 0; border-radius: 6px; padding: 8px 16px; margin-right: 8px; cursor: pointer; }
  button.stop { background: #da3633; }
  #logs { background: #010409; border: 1px solid #30363d; border-radius: 8px; padding: 12px;
          font-family: monospace; font-size: 12px; height: 320px; overflow-y: auto; white-space: pre-wrap; margin-top: 16px; }
</style>
</head>
<body>
<h1>🤖 Trade Bot</h1>
<div style="margin-bottom:16px">
  <button onclick="control('start')">▶ Start</button>
  <button class="stop" onclick="control('stop')">⏸ Stop</button>
  <span id="status"></span>
</div>
<div class="grid" id="cards"></div>
<div id="logs"></div>
<script>
async function control(action) {
  await fetch('/api/' + action, {method: 'POST'});
  refresh();
}
function card(label, value, cls) {
  return '<div class="card"><div class="label">' + label + '</div><div class="value ' + (cls||'') + '">' + value + '</div></div>';
}
async function refresh() {
  const st = await (await fetch('/api/state')).json();
  const pnl = st.total_usd - st.initial_usd;
  document.getElementById('status').textContent =
    (st.halted ? '🚨 HALTED' : st.running ? '🟢 running' : '🔴 stopped') +
    ' · ' + st.exchange + ' · ' + st.mode;
  let html = '';
  html += card('Total', '$' + st.total_usd.toFixed(2));
  html += card('P&L', (pnl >= 0 ? '+' : '') + pnl.toFixed(2), pnl >= 0 ? 'green' : 'red');
  html += card('USDT', st.usdt.toFixed(2));
  html += card('Coin', st.coin);
  html += card('Confidence', st.last_confidence.toFixed(2), 'yellow');
  html += card('Last action', st.last_action || '—');
  html += card('Cycles', st.cycle_count);
  html += card('Trades', st.trade_count);
  for (const [sym, c] of Object.entries(st.coins || {})) {
    html += card(sym, c.amount.toFixed(4) + ' @ ' + c.price.toFixed(2));
  }
  document.getElementById('cards').innerHTML = html;

  const logs = await (await fetch('/api/logs?n=200')).json();
  const el = document.getElementById('logs');
  el.textContent = (logs.logs || []).join('\n');
  el.scrollTop = el.scrollHeight;
}
refresh();
setInterval(refresh, 5000);
</script>
</body>
</html>`
