package domain

import (
	"math"
	"time"
)

// EventType tags the messages a tick fans out to the sink and to any
// live listener polling the API.
type EventType string

const (
	EventMarketUpdate    EventType = "MARKET_UPDATE"
	EventDecision        EventType = "BOT_DECISION"
	EventTradeExecuted   EventType = "TRADE_EXECUTED"
	EventActivityLog     EventType = "ACTIVITY_LOG"
	EventPortfolioUpdate EventType = "PORTFOLIO_UPDATE"
	EventBotStatus       EventType = "BOT_STATUS"
)

// Event is one entry in the per-tick event stream.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp string    `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// ActivityLog is a persisted system/trade log line.
type ActivityLog struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`     // TRADE / ALERT / SYSTEM / ANALYSIS
	Severity  string `json:"severity"` // info / warning / success / error
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
}

// BotStatus is the heartbeat payload.
type BotStatus struct {
	IsConnected     bool    `json:"isConnected"`
	LastHeartbeat   string  `json:"lastHeartbeat"`
	Uptime          int64   `json:"uptime"` // seconds
	TotalTrades     int     `json:"totalTrades"`
	WinRate         float64 `json:"winRate"`
	ActivePositions int     `json:"activePositions"`
	Mode            string  `json:"mode"`
	Version         string  `json:"version"`
}

// DashboardStats are the aggregate figures the dashboard header shows,
// computed from persisted snapshots and trades.
type DashboardStats struct {
	PortfolioValue     float64 `json:"portfolioValue"`
	DailyChange        float64 `json:"dailyChange"`
	DailyChangePercent float64 `json:"dailyChangePercent"`
	TotalPnL           float64 `json:"totalPnL"`
	TotalPnLPercent    float64 `json:"totalPnLPercent"`
	TotalTrades        int     `json:"totalTrades"`
	WinRate            float64 `json:"winRate"`
	ActivePositions    int     `json:"activePositions"`
	SharpeRatio        float64 `json:"sharpeRatio"`
	MaxDrawdown        float64 `json:"maxDrawdown"`
}

// ChatMessage is one side of the operator conversation with the bot.
type ChatMessage struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"` // USER / BOT
	Content   string `json:"content"`
}

// TickResult is the full tick response: the emitted events plus the
// aggregate state a polling client needs to render the dashboard.
type TickResult struct {
	Events    []Event             `json:"events"`
	Stats     DashboardStats      `json:"stats"`
	Positions []FormattedPosition `json:"positions"`
	Markets   []MarketInfo        `json:"markets"`
}

// isoLayout reproduces the downstream timestamp contract bit for bit:
// strict UTC ISO-8601 with millisecond precision and a literal Z.
const isoLayout = "2006-01-02T15:04:05.000Z"

// ISOTime formats t per the downstream timestamp contract.
func ISOTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseISOTime parses a timestamp produced by ISOTime.
func ParseISOTime(s string) (time.Time, error) {
	return time.Parse(isoLayout, s)
}

// Round2 rounds to 2 decimals — the precision all money figures are
// emitted with.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round3 rounds to 3 decimals, used for probability-like prices.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Round4 rounds to 4 decimals, used for raw market prices.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
