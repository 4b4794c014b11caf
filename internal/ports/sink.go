package ports

import (
	"context"
	"time"

	"github.com/Louatn/polymarket-trading-bot/internal/domain"
)

// EventSink is the durable, append-only store for everything a tick
// produces. The orchestrator never reads it back for control decisions,
// with one exception: reconstructing wallet cash and the daily P&L
// baseline at startup / valuation time.
type EventSink interface {
	AppendTrade(ctx context.Context, t domain.Trade) error
	AppendDecision(ctx context.Context, d domain.DecisionRecord) error
	AppendSnapshot(ctx context.Context, s domain.Snapshot) error
	AppendMarketSnapshot(ctx context.Context, m domain.MarketInfo) error
	AppendActivityLog(ctx context.Context, l domain.ActivityLog) error
	AppendChatMessage(ctx context.Context, m domain.ChatMessage) error

	Trades(ctx context.Context, limit int) ([]domain.Trade, error)
	TradeCount(ctx context.Context) (int, error)
	// WinRate is the percentage of realized trades with positive P&L.
	WinRate(ctx context.Context) (float64, error)
	Decisions(ctx context.Context, limit int) ([]domain.DecisionRecord, error)
	DecisionStats(ctx context.Context) (domain.DecisionStats, error)
	ActivityLogs(ctx context.Context, limit int) ([]domain.ActivityLog, error)
	PortfolioHistory(ctx context.Context, days int) ([]domain.Snapshot, error)
	LatestSnapshot(ctx context.Context) (*domain.Snapshot, error)
	// SnapshotBefore returns the most recent snapshot taken at or before t,
	// or nil if none exists. Used for the daily P&L baseline.
	SnapshotBefore(ctx context.Context, t time.Time) (*domain.Snapshot, error)
	// TrackedMarkets returns the last known price row per instrument.
	TrackedMarkets(ctx context.Context) ([]domain.MarketInfo, error)
	ChatHistory(ctx context.Context, limit int) ([]domain.ChatMessage, error)

	GetConfig(ctx context.Context, key, fallback string) string
	SetConfig(ctx context.Context, key, value string) error

	DashboardStats(ctx context.Context, snap domain.Snapshot, activePositions int) (domain.DashboardStats, error)

	Close() error
}
