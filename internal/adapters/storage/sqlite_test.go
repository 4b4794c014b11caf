package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Louatn/polymarket-trading-bot/internal/adapters/storage"
	"github.com/Louatn/polymarket-trading-bot/internal/domain"
)

func newSink(t *testing.T) *storage.SQLiteSink {
	t.Helper()
	s, err := storage.NewSQLiteSink(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func tradeAt(ts string, action domain.Action, pnl *float64) domain.Trade {
	return domain.Trade{
		Timestamp:    ts,
		InstrumentID: "mkt_btc",
		Question:     "Will BTC hit 150k?",
		Action:       action,
		Side:         domain.SideYes,
		Quantity:     250,
		Price:        0.40,
		TotalCost:    100,
		Confidence:   80,
		Reasoning:    "test",
		ProfitLoss:   pnl,
	}
}

func TestSQLiteSink_Trades_RoundTrip(t *testing.T) {
	s := newSink(t)
	ctx := context.Background()

	require.NoError(t, s.AppendTrade(ctx, tradeAt("2026-03-14T10:00:00.000Z", domain.ActionBuy, nil)))
	require.NoError(t, s.AppendTrade(ctx, tradeAt("2026-03-14T11:00:00.000Z", domain.ActionSell, ptr(12.5))))

	trades, err := s.Trades(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// Newest first.
	assert.Equal(t, domain.ActionSell, trades[0].Action)
	require.NotNil(t, trades[0].ProfitLoss)
	assert.InDelta(t, 12.5, *trades[0].ProfitLoss, 1e-9)
	assert.Nil(t, trades[1].ProfitLoss)
	assert.NotEmpty(t, trades[0].ID)

	count, err := s.TradeCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteSink_WinRate(t *testing.T) {
	s := newSink(t)
	ctx := context.Background()

	// No realized trades yet.
	rate, err := s.WinRate(ctx)
	require.NoError(t, err)
	assert.Zero(t, rate)

	// A buy (no pnl) must not count toward the denominator.
	require.NoError(t, s.AppendTrade(ctx, tradeAt("2026-03-14T10:00:00.000Z", domain.ActionBuy, nil)))
	require.NoError(t, s.AppendTrade(ctx, tradeAt("2026-03-14T11:00:00.000Z", domain.ActionSell, ptr(12.5))))
	require.NoError(t, s.AppendTrade(ctx, tradeAt("2026-03-14T12:00:00.000Z", domain.ActionSell, ptr(-5))))
	require.NoError(t, s.AppendTrade(ctx, tradeAt("2026-03-14T13:00:00.000Z", domain.ActionSell, ptr(3))))

	rate, err = s.WinRate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 66.67, rate, 0.01)
}

func TestSQLiteSink_Decisions_HoldAndExecution(t *testing.T) {
	s := newSink(t)
	ctx := context.Background()

	require.NoError(t, s.AppendDecision(ctx, domain.DecisionRecord{
		Timestamp:    "2026-03-14T10:00:00.000Z",
		InstrumentID: "mkt_btc",
		Question:     "q",
		Action:       domain.ActionHold,
		Confidence:   40,
		Reasoning:    "no signal",
	}))
	require.NoError(t, s.AppendDecision(ctx, domain.DecisionRecord{
		Timestamp:       "2026-03-14T11:00:00.000Z",
		InstrumentID:    "mkt_btc",
		Question:        "q",
		Action:          domain.ActionBuy,
		Side:            domain.SideYes,
		Confidence:      85,
		Reasoning:       "signal",
		WasExecuted:     true,
		ExecutionResult: domain.ExecSuccess,
	}))
	require.NoError(t, s.AppendDecision(ctx, domain.DecisionRecord{
		Timestamp:       "2026-03-14T12:00:00.000Z",
		InstrumentID:    "mkt_btc",
		Question:        "q",
		Action:          domain.ActionBuy,
		Side:            domain.SideNo,
		Confidence:      70,
		Reasoning:       "signal",
		ExecutionResult: domain.ExecSideConflict,
	}))

	decs, err := s.Decisions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, decs, 3)

	// Newest first; the HOLD row keeps empty side and result.
	assert.Equal(t, domain.ExecSideConflict, decs[0].ExecutionResult)
	assert.True(t, decs[1].WasExecuted)
	assert.Equal(t, domain.ActionHold, decs[2].Action)
	assert.Empty(t, decs[2].Side)
	assert.Empty(t, decs[2].ExecutionResult)

	stats, err := s.DecisionStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionStats{
		TotalDecisions: 3, Buys: 2, Sells: 0, Holds: 1, Executed: 1,
	}, stats)
}

func TestSQLiteSink_Snapshots_LatestAndBefore(t *testing.T) {
	s := newSink(t)
	ctx := context.Background()

	snap, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap)

	for i, ts := range []string{
		"2026-03-12T10:00:00.000Z",
		"2026-03-13T10:00:00.000Z",
		"2026-03-14T10:00:00.000Z",
	} {
		require.NoError(t, s.AppendSnapshot(ctx, domain.Snapshot{
			Timestamp:   ts,
			TotalValue:  1000 + float64(i)*10,
			CashBalance: 900,
		}))
	}

	latest, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.InDelta(t, 1020, latest.TotalValue, 1e-9)

	cutoff := time.Date(2026, 3, 13, 12, 0, 0, 0, time.UTC)
	prior, err := s.SnapshotBefore(ctx, cutoff)
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, "2026-03-13T10:00:00.000Z", prior.Timestamp)

	none, err := s.SnapshotBefore(ctx, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSQLiteSink_TrackedMarkets_LatestRowPerMarket(t *testing.T) {
	s := newSink(t)
	ctx := context.Background()

	require.NoError(t, s.AppendMarketSnapshot(ctx, domain.MarketInfo{
		ID: "mkt_a", Question: "qa", Category: "crypto", CurrentPrice: 0.40,
	}))
	require.NoError(t, s.AppendMarketSnapshot(ctx, domain.MarketInfo{
		ID: "mkt_b", Question: "qb", Category: "politics", CurrentPrice: 0.55,
	}))
	// Later row for mkt_a supersedes the first.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.AppendMarketSnapshot(ctx, domain.MarketInfo{
		ID: "mkt_a", Question: "qa", Category: "crypto", CurrentPrice: 0.44,
	}))

	markets, err := s.TrackedMarkets(ctx)
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, "mkt_a", markets[0].ID)
	assert.InDelta(t, 0.44, markets[0].CurrentPrice, 1e-9)
	assert.Equal(t, "mkt_b", markets[1].ID)
}

func TestSQLiteSink_ActivityLogs_And_Chat(t *testing.T) {
	s := newSink(t)
	ctx := context.Background()

	require.NoError(t, s.AppendActivityLog(ctx, domain.ActivityLog{
		Timestamp: "2026-03-14T10:00:00.000Z",
		Type:      "SYSTEM", Severity: "info", Message: "started",
	}))
	logs, err := s.ActivityLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.NotEmpty(t, logs[0].ID)

	require.NoError(t, s.AppendChatMessage(ctx, domain.ChatMessage{
		Timestamp: "2026-03-14T10:00:00.000Z", Sender: "USER", Content: "hello",
	}))
	require.NoError(t, s.AppendChatMessage(ctx, domain.ChatMessage{
		Timestamp: "2026-03-14T10:00:01.000Z", Sender: "BOT", Content: "hi",
	}))
	msgs, err := s.ChatHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	// Oldest first for chat.
	assert.Equal(t, "USER", msgs[0].Sender)
}

func TestSQLiteSink_Config_SeedAndOverride(t *testing.T) {
	ctx := context.Background()
	s, err := storage.NewSQLiteSink(":memory:", map[string]string{
		"mode":     "PAPER",
		"bot_name": "PolyBot",
	})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "PAPER", s.GetConfig(ctx, "mode", "LIVE"))
	assert.Equal(t, "fallback", s.GetConfig(ctx, "missing", "fallback"))

	require.NoError(t, s.SetConfig(ctx, "mode", "LIVE"))
	assert.Equal(t, "LIVE", s.GetConfig(ctx, "mode", "PAPER"))
}

func TestSQLiteSink_DashboardStats(t *testing.T) {
	s := newSink(t)
	ctx := context.Background()

	// History: up to 1100, then down to 990 → drawdown 10%.
	for _, row := range []struct {
		ts    string
		value float64
	}{
		{"2026-03-10T10:00:00.000Z", 1000},
		{"2026-03-11T10:00:00.000Z", 1100},
		{"2026-03-12T10:00:00.000Z", 990},
	} {
		require.NoError(t, s.AppendSnapshot(ctx, domain.Snapshot{
			Timestamp: row.ts, TotalValue: row.value,
		}))
	}
	require.NoError(t, s.AppendTrade(ctx, tradeAt("2026-03-11T10:00:00.000Z", domain.ActionSell, ptr(20))))

	snap := domain.Snapshot{TotalValue: 1050, TotalPnL: 50}
	stats, err := s.DashboardStats(ctx, snap, 2)
	require.NoError(t, err)

	assert.InDelta(t, 1050, stats.PortfolioValue, 1e-9)
	assert.InDelta(t, 50, stats.TotalPnL, 1e-9)
	assert.InDelta(t, 5, stats.TotalPnLPercent, 1e-9)
	assert.Equal(t, 1, stats.TotalTrades)
	assert.InDelta(t, 100, stats.WinRate, 1e-9)
	assert.Equal(t, 2, stats.ActivePositions)
	assert.InDelta(t, 10, stats.MaxDrawdown, 1e-9)
	// All history predates now-24h, so daily change diffs against the
	// latest persisted value.
	assert.InDelta(t, 1050-990, stats.DailyChange, 1e-9)
}

func TestSQLiteSink_PortfolioHistory_OldestFirst(t *testing.T) {
	s := newSink(t)
	ctx := context.Background()

	now := time.Now().UTC()
	recent := domain.ISOTime(now.Add(-2 * time.Hour))
	older := domain.ISOTime(now.Add(-30 * time.Hour))
	ancient := domain.ISOTime(now.AddDate(0, 0, -120))

	for _, row := range []struct {
		ts    string
		value float64
	}{
		{ancient, 900},
		{older, 980},
		{recent, 1010},
	} {
		require.NoError(t, s.AppendSnapshot(ctx, domain.Snapshot{Timestamp: row.ts, TotalValue: row.value}))
	}

	hist, err := s.PortfolioHistory(ctx, 90)
	require.NoError(t, err)
	require.Len(t, hist, 2) // the 120-day-old row falls outside the window
	assert.InDelta(t, 980, hist[0].TotalValue, 1e-9)
	assert.InDelta(t, 1010, hist[1].TotalValue, 1e-9)
}
