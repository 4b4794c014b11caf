package httpapi

// Operator chat. Replies are templated from live ledger and sink data,
// so every figure quoted to the operator is real.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Louatn/polymarket-trading-bot/internal/domain"
)

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}
	ctx := r.Context()

	userMsg := domain.ChatMessage{
		ID:        "user_" + uuid.New().String()[:8],
		Timestamp: domain.ISOTime(time.Now()),
		Sender:    "USER",
		Content:   req.Message,
	}
	if err := s.sink.AppendChatMessage(ctx, userMsg); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	botMsg := domain.ChatMessage{
		ID:        "bot_" + uuid.New().String()[:8],
		Timestamp: domain.ISOTime(time.Now()),
		Sender:    "BOT",
		Content:   s.chatReply(ctx, req.Message),
	}
	if err := s.sink.AppendChatMessage(ctx, botMsg); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	_ = s.sink.AppendActivityLog(ctx, domain.ActivityLog{
		ID:        "log_" + uuid.New().String()[:8],
		Timestamp: domain.ISOTime(time.Now()),
		Type:      "SYSTEM",
		Severity:  "info",
		Message:   fmt.Sprintf("Chat: %q", truncate(req.Message, 50)),
		Details:   fmt.Sprintf("Reply generated (%d chars)", len(botMsg.Content)),
	})

	writeJSON(w, http.StatusOK, botMsg)
}

// chatReply routes the message to a topic template by keyword.
func (s *Server) chatReply(ctx context.Context, message string) string {
	msg := strings.ToLower(message)
	prices := s.engine.Market().Prices()
	snap := s.engine.Wallet().Snapshot(prices, time.Now())

	switch {
	case containsAny(msg, "portfolio", "performance", "how", "value"):
		return s.portfolioReply(ctx, snap)
	case containsAny(msg, "strategy", "approach", "plan"):
		return s.strategyReply(ctx)
	case containsAny(msg, "market", "price", "bullish", "bearish"):
		return s.marketsReply(ctx)
	case containsAny(msg, "risk", "drawdown", "loss"):
		return s.riskReply(ctx, snap)
	case containsAny(msg, "position", "open", "holding"):
		return s.positionsReply(prices)
	default:
		return "I am PolyBot, your trading assistant. You can ask me about:\n" +
			"• My portfolio / performance\n" +
			"• My trading strategy\n" +
			"• The markets I am watching\n" +
			"• My risk management\n" +
			"• My open positions\n" +
			"Everything I quote comes straight from the ledger."
	}
}

func (s *Server) portfolioReply(ctx context.Context, snap domain.Snapshot) string {
	trades, _ := s.sink.TradeCount(ctx)
	winRate, _ := s.sink.WinRate(ctx)
	return fmt.Sprintf(
		"📊 Current portfolio state:\n"+
			"• Total value: $%.2f\n"+
			"• Total P&L: $%+.2f\n"+
			"• Available cash: $%.2f\n"+
			"• Trades executed: %d\n"+
			"• Win rate: %.1f%%\n"+
			"All figures are computed live.",
		snap.TotalValue, snap.TotalPnL, snap.CashBalance, trades, winRate,
	)
}

func (s *Server) strategyReply(ctx context.Context) string {
	stats, err := s.sink.DecisionStats(ctx)
	if err != nil {
		return "Decision history is unavailable right now."
	}
	return fmt.Sprintf(
		"🎯 Current strategy:\n"+
			"• Mode: %s\n"+
			"• Risk tolerance: %s\n"+
			"• Total decisions: %d\n"+
			"  - BUY: %d | SELL: %d | HOLD: %d\n"+
			"  - Executed: %d\n"+
			"I evaluate one market per tick and act on the confidence score.",
		s.sink.GetConfig(ctx, "mode", "PAPER"),
		s.sink.GetConfig(ctx, "risk_tolerance", "0.3"),
		stats.TotalDecisions, stats.Buys, stats.Sells, stats.Holds, stats.Executed,
	)
}

func (s *Server) marketsReply(ctx context.Context) string {
	markets, err := s.sink.TrackedMarkets(ctx)
	if err != nil || len(markets) == 0 {
		return "No markets tracked yet. Data lands on the next tick."
	}
	lines := []string{fmt.Sprintf("📈 Tracked markets (%d):", len(markets))}
	for i, m := range markets {
		if i >= 5 {
			break
		}
		lines = append(lines, fmt.Sprintf("• %s → %.0f¢", truncate(m.Question, 50), m.CurrentPrice*100))
	}
	return strings.Join(lines, "\n")
}

func (s *Server) riskReply(ctx context.Context, snap domain.Snapshot) string {
	active := s.engine.Wallet().ActivePositions()
	stats, err := s.sink.DashboardStats(ctx, snap, active)
	if err != nil {
		return "Risk figures are unavailable right now."
	}
	return fmt.Sprintf(
		"🛡️ Risk management:\n"+
			"• Max drawdown: %.1f%%\n"+
			"• Active positions: %d\n"+
			"• Capital at risk: $%.2f\n"+
			"• Cash reserve: $%.2f\n"+
			"The bot keeps a conservative risk/capital ratio.",
		stats.MaxDrawdown, active, snap.InvestedValue, snap.CashBalance,
	)
}

func (s *Server) positionsReply(prices map[string]float64) string {
	positions := s.engine.Wallet().PositionsFormatted(prices)
	if len(positions) == 0 {
		return "No open positions at the moment."
	}
	lines := []string{fmt.Sprintf("📋 Open positions (%d):", len(positions))}
	for _, p := range positions {
		lines = append(lines, fmt.Sprintf(
			"• %s | %s | %.1f shares @ %.3f | P&L: $%+.2f",
			truncate(p.Question, 40), p.Side, p.Shares, p.AvgEntryPrice, p.UnrealizedPnL,
		))
	}
	return strings.Join(lines, "\n")
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
