package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trade_bot/internal/models"
)

// Store keeps the queryable trade history in SQLite, for the dashboard
// and post-hoc analysis. The JSONL journal stays the source of truth for
// replays; the store is an index over it.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS trades (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp    TEXT NOT NULL,
		coin         TEXT NOT NULL,
		action       TEXT NOT NULL,
		volume       REAL NOT NULL,
		price        REAL NOT NULL,
		balance_usdt REAL NOT NULL,
		balance_coin REAL NOT NULL,
		confidence   REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_coin ON trades(coin, timestamp);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) InsertTrade(e models.TradeLogEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO trades (timestamp, coin, action, volume, price, balance_usdt, balance_coin, confidence)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Timestamp, e.Coin, e.Action, e.Volume, e.Price, e.BalanceUSDT, e.BalanceCoin, e.Confidence)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// RecentTrades returns the newest trades first
func (s *Store) RecentTrades(limit int) ([]models.TradeLogEntry, error) {
	rows, err := s.db.Query(
		`SELECT timestamp, coin, action, volume, price, balance_usdt, balance_coin, confidence
		 FROM trades ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TradeLogEntry
	for rows.Next() {
		var e models.TradeLogEntry
		if err := rows.Scan(&e.Timestamp, &e.Coin, &e.Action, &e.Volume, &e.Price,
			&e.BalanceUSDT, &e.BalanceCoin, &e.Confidence); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// TradeCountSince counts trades after a cutoff, used for daily stats
func (s *Store) TradeCountSince(t time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM trades WHERE timestamp >= ?`,
		t.Format(time.RFC3339)).Scan(&n)
	return n, err
}
