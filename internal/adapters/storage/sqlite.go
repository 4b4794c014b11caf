package storage

// sqlite.go — durable event sink for the simulation.
//
// One table per record kind, mirroring what the dashboard consumes:
//   - trades              every executed buy/sell with decision context
//   - bot_decisions       every decision, HOLD included
//   - portfolio_snapshots one valuation row per tick (charts)
//   - market_snapshots    price history per instrument
//   - activity_logs       system / trade log lines
//   - chat_messages       operator conversation
//   - bot_config          runtime-mutable key/value configuration
//
// Timestamps are stored as the strict ISO-8601 strings the rest of the
// system emits — they sort lexicographically, so range queries work on
// the TEXT column directly.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Louatn/polymarket-trading-bot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
    id              TEXT PRIMARY KEY,
    timestamp       TEXT NOT NULL,
    market_id       TEXT NOT NULL,
    market_question TEXT NOT NULL,
    action          TEXT NOT NULL,
    side            TEXT NOT NULL,
    quantity        REAL NOT NULL,
    price           REAL NOT NULL,
    total_cost      REAL NOT NULL,
    confidence      INTEGER NOT NULL,
    reasoning       TEXT NOT NULL,
    profit_loss     REAL
);

CREATE TABLE IF NOT EXISTS bot_decisions (
    id              TEXT PRIMARY KEY,
    timestamp       TEXT NOT NULL,
    market_id       TEXT NOT NULL,
    market_question TEXT NOT NULL,
    action          TEXT NOT NULL,
    side            TEXT,
    confidence      INTEGER NOT NULL,
    reasoning       TEXT NOT NULL,
    was_executed    INTEGER NOT NULL DEFAULT 0,
    execution_result TEXT
);

CREATE TABLE IF NOT EXISTS portfolio_snapshots (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp      TEXT NOT NULL,
    total_value    REAL NOT NULL,
    cash_balance   REAL NOT NULL,
    invested_value REAL NOT NULL,
    daily_pnl      REAL NOT NULL,
    total_pnl      REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS market_snapshots (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp  TEXT NOT NULL,
    market_id  TEXT NOT NULL,
    question   TEXT NOT NULL,
    category   TEXT,
    price      REAL NOT NULL,
    volume_24h REAL,
    liquidity  REAL
);

CREATE TABLE IF NOT EXISTS activity_logs (
    id        TEXT PRIMARY KEY,
    timestamp TEXT NOT NULL,
    type      TEXT NOT NULL,
    severity  TEXT NOT NULL,
    message   TEXT NOT NULL,
    details   TEXT
);

CREATE TABLE IF NOT EXISTS chat_messages (
    id        TEXT PRIMARY KEY,
    timestamp TEXT NOT NULL,
    sender    TEXT NOT NULL,
    content   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bot_config (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_trades_ts        ON trades(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_decisions_ts     ON bot_decisions(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_snapshots_ts     ON portfolio_snapshots(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_mkt_snapshots_id ON market_snapshots(market_id, timestamp DESC);
`

// SQLiteSink implements ports.EventSink on SQLite (pure Go, no CGo).
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the database at path, applies the
// schema and seeds default configuration keys that are missing.
func NewSQLiteSink(path string, defaults map[string]string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteSink: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteSink: enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteSink: apply schema: %w", err)
	}

	s := &SQLiteSink{db: db}
	if err := s.seedConfig(context.Background(), defaults); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// seedConfig inserts default config values without overwriting ones
// already persisted from a previous run.
func (s *SQLiteSink) seedConfig(ctx context.Context, defaults map[string]string) error {
	for key, value := range defaults {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO bot_config (key, value, updated_at) VALUES (?, ?, ?)`,
			key, value, domain.ISOTime(time.Now()),
		); err != nil {
			return fmt.Errorf("storage.seedConfig: %q: %w", key, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// AppendTrade inserts an executed trade.
func (s *SQLiteSink) AppendTrade(ctx context.Context, t domain.Trade) error {
	if t.ID == "" {
		t.ID = "trade_" + shortID()
	}
	var pnl any
	if t.ProfitLoss != nil {
		pnl = *t.ProfitLoss
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, timestamp, market_id, market_question, action, side,
		                    quantity, price, total_cost, confidence, reasoning, profit_loss)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Timestamp, t.InstrumentID, t.Question, string(t.Action), string(t.Side),
		t.Quantity, t.Price, t.TotalCost, t.Confidence, t.Reasoning, pnl,
	)
	if err != nil {
		return fmt.Errorf("storage.AppendTrade: %w", err)
	}
	return nil
}

// AppendDecision inserts a decision record, HOLD included.
func (s *SQLiteSink) AppendDecision(ctx context.Context, d domain.DecisionRecord) error {
	if d.ID == "" {
		d.ID = "dec_" + shortID()
	}
	executed := 0
	if d.WasExecuted {
		executed = 1
	}
	var side, result any
	if d.Side != "" {
		side = string(d.Side)
	}
	if d.ExecutionResult != "" {
		result = string(d.ExecutionResult)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_decisions (id, timestamp, market_id, market_question, action,
		                           side, confidence, reasoning, was_executed, execution_result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Timestamp, d.InstrumentID, d.Question, string(d.Action),
		side, d.Confidence, d.Reasoning, executed, result,
	)
	if err != nil {
		return fmt.Errorf("storage.AppendDecision: %w", err)
	}
	return nil
}

// AppendSnapshot inserts a portfolio valuation row.
func (s *SQLiteSink) AppendSnapshot(ctx context.Context, snap domain.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots (timestamp, total_value, cash_balance,
		                                 invested_value, daily_pnl, total_pnl)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.Timestamp, snap.TotalValue, snap.CashBalance,
		snap.InvestedValue, snap.DailyPnL, snap.TotalPnL,
	)
	if err != nil {
		return fmt.Errorf("storage.AppendSnapshot: %w", err)
	}
	return nil
}

// AppendMarketSnapshot inserts a price history row for an instrument.
func (s *SQLiteSink) AppendMarketSnapshot(ctx context.Context, m domain.MarketInfo) error {
	ts := domain.ISOTime(time.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market_snapshots (timestamp, market_id, question, category,
		                              price, volume_24h, liquidity)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts, m.ID, m.Question, m.Category, m.CurrentPrice, m.Volume24h, m.Liquidity,
	)
	if err != nil {
		return fmt.Errorf("storage.AppendMarketSnapshot: %w", err)
	}
	return nil
}

// AppendActivityLog inserts a log line.
func (s *SQLiteSink) AppendActivityLog(ctx context.Context, l domain.ActivityLog) error {
	if l.ID == "" {
		l.ID = "log_" + shortID()
	}
	if l.Timestamp == "" {
		l.Timestamp = domain.ISOTime(time.Now())
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, timestamp, type, severity, message, details)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.Timestamp, l.Type, l.Severity, l.Message, l.Details,
	)
	if err != nil {
		return fmt.Errorf("storage.AppendActivityLog: %w", err)
	}
	return nil
}

// AppendChatMessage inserts one side of a chat exchange.
func (s *SQLiteSink) AppendChatMessage(ctx context.Context, m domain.ChatMessage) error {
	if m.ID == "" {
		m.ID = "msg_" + shortID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, timestamp, sender, content)
		VALUES (?, ?, ?, ?)`,
		m.ID, m.Timestamp, m.Sender, m.Content,
	)
	if err != nil {
		return fmt.Errorf("storage.AppendChatMessage: %w", err)
	}
	return nil
}

// GetConfig returns a persisted config value, or fallback when the key
// is absent. Lookup failures also yield the fallback — configuration
// reads never break a tick.
func (s *SQLiteSink) GetConfig(ctx context.Context, key, fallback string) string {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM bot_config WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return fallback
	}
	return value
}

// SetConfig upserts a config value.
func (s *SQLiteSink) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO bot_config (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, domain.ISOTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("storage.SetConfig: %q: %w", key, err)
	}
	return nil
}

func shortID() string {
	return uuid.New().String()[:8]
}
