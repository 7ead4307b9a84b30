// Package journal persists decisions, trades, and equity points to
// SQLite for audit and reporting.
package journal

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"signal-trader/internal/models"
)

// Journal is a SQLite-backed append-only record of engine activity.
type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	j := &Journal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing journal schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decisions (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		action TEXT NOT NULL,
		confidence REAL NOT NULL,
		buy_score REAL NOT NULL,
		sell_score REAL NOT NULL,
		price REAL NOT NULL,
		reasons TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_decisions_symbol_time ON decisions(symbol, timestamp);

	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price REAL NOT NULL,
		commission REAL NOT NULL DEFAULT 0,
		realized_pnl REAL NOT NULL DEFAULT 0,
		reason TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_trades_symbol_time ON trades(symbol, timestamp);

	CREATE TABLE IF NOT EXISTS equity (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		cash REAL NOT NULL,
		equity REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(timestamp);
	`
	_, err := j.db.Exec(schema)
	return err
}

// RecordDecision persists one decision.
func (j *Journal) RecordDecision(d models.Decision) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO decisions (id, timestamp, symbol, action, confidence, buy_score, sell_score, price, reasons)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Timestamp.UTC(), d.Symbol, string(d.Action), d.Confidence,
		d.BuyScore, d.SellScore, d.Price, strings.Join(d.Reasons, ","),
	)
	if err != nil {
		return fmt.Errorf("recording decision: %w", err)
	}
	return nil
}

// RecordTrade persists one executed trade.
func (j *Journal) RecordTrade(t models.Trade) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO trades (id, timestamp, symbol, side, quantity, price, commission, realized_pnl, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Timestamp.UTC(), t.Symbol, string(t.Side), t.Quantity,
		t.Price, t.Commission, t.RealizedPnL, t.Reason,
	)
	if err != nil {
		return fmt.Errorf("recording trade: %w", err)
	}
	return nil
}

// RecordEquity persists one equity curve point.
func (j *Journal) RecordEquity(p models.EquityPoint) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO equity (timestamp, cash, equity) VALUES (?, ?, ?)`,
		p.Timestamp.UTC(), p.Cash, p.Equity,
	)
	if err != nil {
		return fmt.Errorf("recording equity point: %w", err)
	}
	return nil
}

// Trades returns all recorded trades at or after since, in timestamp
// order.
func (j *Journal) Trades(since time.Time) ([]models.Trade, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, timestamp, symbol, side, quantity, price, commission, realized_pnl, reason
		 FROM trades WHERE timestamp >= ? ORDER BY timestamp, id`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var side, reason string
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.Symbol, &side, &t.Quantity,
			&t.Price, &t.Commission, &t.RealizedPnL, &reason); err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		t.Side = models.Side(side)
		t.Reason = reason
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// EquityCurve returns all recorded equity points at or after since.
func (j *Journal) EquityCurve(since time.Time) ([]models.EquityPoint, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT timestamp, cash, equity FROM equity WHERE timestamp >= ? ORDER BY timestamp, id`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying equity curve: %w", err)
	}
	defer rows.Close()

	var points []models.EquityPoint
	for rows.Next() {
		var p models.EquityPoint
		if err := rows.Scan(&p.Timestamp, &p.Cash, &p.Equity); err != nil {
			return nil, fmt.Errorf("scanning equity point: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}
