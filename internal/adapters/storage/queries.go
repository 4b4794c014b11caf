package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Louatn/polymarket-trading-bot/internal/domain"
)

// Trades returns the most recent executed trades, newest first.
func (s *SQLiteSink) Trades(ctx context.Context, limit int) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, market_id, market_question, action, side,
		       quantity, price, total_cost, confidence, reasoning, profit_loss
		FROM trades ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.Trades: %w", err)
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var action, side string
		var pnl sql.NullFloat64
		if err := rows.Scan(
			&t.ID, &t.Timestamp, &t.InstrumentID, &t.Question, &action, &side,
			&t.Quantity, &t.Price, &t.TotalCost, &t.Confidence, &t.Reasoning, &pnl,
		); err != nil {
			return nil, fmt.Errorf("storage.Trades: scan: %w", err)
		}
		t.Action = domain.Action(action)
		t.Side = domain.Side(side)
		if pnl.Valid {
			v := pnl.Float64
			t.ProfitLoss = &v
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TradeCount returns the total number of executed trades.
func (s *SQLiteSink) TradeCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return 0, fmt.Errorf("storage.TradeCount: %w", err)
	}
	return count, nil
}

// WinRate computes the percentage of realized trades (those with a
// recorded P&L) that closed positive. No realized trades yet → 0.
func (s *SQLiteSink) WinRate(ctx context.Context) (float64, error) {
	var total, wins int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN profit_loss > 0 THEN 1 ELSE 0 END), 0)
		FROM trades WHERE profit_loss IS NOT NULL`).Scan(&total, &wins)
	if err != nil {
		return 0, fmt.Errorf("storage.WinRate: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return domain.Round2(float64(wins) / float64(total) * 100), nil
}

// Decisions returns the most recent decision records, newest first.
func (s *SQLiteSink) Decisions(ctx context.Context, limit int) ([]domain.DecisionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, market_id, market_question, action, side,
		       confidence, reasoning, was_executed, execution_result
		FROM bot_decisions ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.Decisions: %w", err)
	}
	defer rows.Close()

	var out []domain.DecisionRecord
	for rows.Next() {
		var d domain.DecisionRecord
		var action string
		var side, result sql.NullString
		var executed int
		if err := rows.Scan(
			&d.ID, &d.Timestamp, &d.InstrumentID, &d.Question, &action, &side,
			&d.Confidence, &d.Reasoning, &executed, &result,
		); err != nil {
			return nil, fmt.Errorf("storage.Decisions: scan: %w", err)
		}
		d.Action = domain.Action(action)
		if side.Valid {
			d.Side = domain.Side(side.String)
		}
		if result.Valid {
			d.ExecutionResult = domain.ExecutionResult(result.String)
		}
		d.WasExecuted = executed == 1
		out = append(out, d)
	}
	return out, rows.Err()
}

// DecisionStats aggregates decision counts for the dashboard.
func (s *SQLiteSink) DecisionStats(ctx context.Context) (domain.DecisionStats, error) {
	var stats domain.DecisionStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN action = 'BUY'  THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN action = 'SELL' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN action = 'HOLD' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(was_executed), 0)
		FROM bot_decisions`).Scan(
		&stats.TotalDecisions, &stats.Buys, &stats.Sells, &stats.Holds, &stats.Executed)
	if err != nil {
		return domain.DecisionStats{}, fmt.Errorf("storage.DecisionStats: %w", err)
	}
	return stats, nil
}

// ActivityLogs returns the most recent log lines, newest first.
func (s *SQLiteSink) ActivityLogs(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, type, severity, message, COALESCE(details, '')
		FROM activity_logs ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ActivityLogs: %w", err)
	}
	defer rows.Close()

	var out []domain.ActivityLog
	for rows.Next() {
		var l domain.ActivityLog
		if err := rows.Scan(&l.ID, &l.Timestamp, &l.Type, &l.Severity, &l.Message, &l.Details); err != nil {
			return nil, fmt.Errorf("storage.ActivityLogs: scan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// PortfolioHistory returns snapshots from the last N days, oldest
// first, for charting.
func (s *SQLiteSink) PortfolioHistory(ctx context.Context, days int) ([]domain.Snapshot, error) {
	since := domain.ISOTime(time.Now().AddDate(0, 0, -days))
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, total_value, cash_balance, invested_value, daily_pnl, total_pnl
		FROM portfolio_snapshots WHERE timestamp >= ? ORDER BY timestamp ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("storage.PortfolioHistory: %w", err)
	}
	defer rows.Close()

	var out []domain.Snapshot
	for rows.Next() {
		var snap domain.Snapshot
		if err := rows.Scan(&snap.Timestamp, &snap.TotalValue, &snap.CashBalance,
			&snap.InvestedValue, &snap.DailyPnL, &snap.TotalPnL); err != nil {
			return nil, fmt.Errorf("storage.PortfolioHistory: scan: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// LatestSnapshot returns the newest snapshot, or nil when none exists.
func (s *SQLiteSink) LatestSnapshot(ctx context.Context) (*domain.Snapshot, error) {
	return s.snapshotWhere(ctx, `
		SELECT timestamp, total_value, cash_balance, invested_value, daily_pnl, total_pnl
		FROM portfolio_snapshots ORDER BY timestamp DESC LIMIT 1`)
}

// SnapshotBefore returns the newest snapshot taken at or before t, or
// nil when none exists.
func (s *SQLiteSink) SnapshotBefore(ctx context.Context, t time.Time) (*domain.Snapshot, error) {
	return s.snapshotWhere(ctx, `
		SELECT timestamp, total_value, cash_balance, invested_value, daily_pnl, total_pnl
		FROM portfolio_snapshots WHERE timestamp <= ? ORDER BY timestamp DESC LIMIT 1`,
		domain.ISOTime(t))
}

func (s *SQLiteSink) snapshotWhere(ctx context.Context, query string, args ...any) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&snap.Timestamp, &snap.TotalValue, &snap.CashBalance,
		&snap.InvestedValue, &snap.DailyPnL, &snap.TotalPnL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage.snapshotWhere: %w", err)
	}
	return &snap, nil
}

// TrackedMarkets returns the latest known price row per instrument.
func (s *SQLiteSink) TrackedMarkets(ctx context.Context) ([]domain.MarketInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ms.market_id, ms.question, COALESCE(ms.category, ''),
		       ms.price, COALESCE(ms.volume_24h, 0), COALESCE(ms.liquidity, 0)
		FROM market_snapshots ms
		INNER JOIN (
			SELECT market_id, MAX(timestamp) AS max_ts
			FROM market_snapshots GROUP BY market_id
		) latest ON ms.market_id = latest.market_id AND ms.timestamp = latest.max_ts
		ORDER BY ms.market_id`)
	if err != nil {
		return nil, fmt.Errorf("storage.TrackedMarkets: %w", err)
	}
	defer rows.Close()

	var out []domain.MarketInfo
	for rows.Next() {
		var m domain.MarketInfo
		var volume, liquidity float64
		if err := rows.Scan(&m.ID, &m.Question, &m.Category, &m.CurrentPrice, &volume, &liquidity); err != nil {
			return nil, fmt.Errorf("storage.TrackedMarkets: scan: %w", err)
		}
		m.Volume24h = int64(volume)
		m.Liquidity = int64(liquidity)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ChatHistory returns chat messages, oldest first.
func (s *SQLiteSink) ChatHistory(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, sender, content
		FROM chat_messages ORDER BY timestamp ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ChatHistory: %w", err)
	}
	defer rows.Close()

	var out []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.Timestamp, &m.Sender, &m.Content); err != nil {
			return nil, fmt.Errorf("storage.ChatHistory: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DashboardStats derives the dashboard header figures from the current
// wallet snapshot plus persisted history: daily change against the
// snapshot from ~24h ago, max drawdown over the whole value series and
// the realized win rate.
func (s *SQLiteSink) DashboardStats(ctx context.Context, snap domain.Snapshot, activePositions int) (domain.DashboardStats, error) {
	initial := snap.TotalValue - snap.TotalPnL

	totalPnLPct := 0.0
	if initial > 0 {
		totalPnLPct = snap.TotalPnL / initial * 100
	}

	yesterdayValue := initial
	prior, err := s.SnapshotBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		return domain.DashboardStats{}, err
	}
	if prior != nil {
		yesterdayValue = prior.TotalValue
	}
	dailyChange := snap.TotalValue - yesterdayValue
	dailyChangePct := 0.0
	if yesterdayValue > 0 {
		dailyChangePct = dailyChange / yesterdayValue * 100
	}

	maxDrawdown, err := s.maxDrawdown(ctx, initial)
	if err != nil {
		return domain.DashboardStats{}, err
	}

	trades, err := s.TradeCount(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	winRate, err := s.WinRate(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}

	return domain.DashboardStats{
		PortfolioValue:     domain.Round2(snap.TotalValue),
		DailyChange:        domain.Round2(dailyChange),
		DailyChangePercent: domain.Round2(dailyChangePct),
		TotalPnL:           domain.Round2(snap.TotalPnL),
		TotalPnLPercent:    domain.Round2(totalPnLPct),
		TotalTrades:        trades,
		WinRate:            winRate,
		ActivePositions:    activePositions,
		MaxDrawdown:        domain.Round2(maxDrawdown),
	}, nil
}

// maxDrawdown walks the snapshot value series and returns the largest
// peak-to-trough decline in percent.
func (s *SQLiteSink) maxDrawdown(ctx context.Context, initial float64) (float64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT total_value FROM portfolio_snapshots ORDER BY timestamp ASC`)
	if err != nil {
		return 0, fmt.Errorf("storage.maxDrawdown: %w", err)
	}
	defer rows.Close()

	peak := initial
	maxDD := 0.0
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return 0, fmt.Errorf("storage.maxDrawdown: scan: %w", err)
		}
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD, rows.Err()
}
