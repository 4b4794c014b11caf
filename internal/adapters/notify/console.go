package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/Louatn/polymarket-trading-bot/internal/domain"
)

// Console implements ports.Notifier by printing each tick to a writer.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole creates a notifier that writes to stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify prints the tick result in the configured mode.
func (c *Console) Notify(_ context.Context, res domain.TickResult) error {
	c.printCompact(res)
	if c.table {
		c.printPositions(res)
	}
	return nil
}

// printCompact prints the essentials in one line per tick.
func (c *Console) printCompact(res domain.TickResult) {
	now := time.Now().Format("15:04:05")

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]", now)

	var cash float64
	for _, ev := range res.Events {
		switch ev.Type {
		case domain.EventPortfolioUpdate:
			if snap, ok := ev.Payload.(domain.Snapshot); ok {
				cash = snap.CashBalance
			}
		case domain.EventDecision:
			if d, ok := ev.Payload.(domain.DecisionRecord); ok {
				fmt.Fprintf(&sb, " %s", d.Action)
				if d.Side != "" {
					fmt.Fprintf(&sb, " %s", d.Side)
				}
				fmt.Fprintf(&sb, " %s conf:%d", compactName(d.Question, 25), d.Confidence)
				if d.ExecutionResult != "" && d.ExecutionResult != domain.ExecSuccess {
					fmt.Fprintf(&sb, " [%s]", d.ExecutionResult)
				}
			}
		case domain.EventTradeExecuted:
			if t, ok := ev.Payload.(domain.Trade); ok {
				fmt.Fprintf(&sb, " | filled %.2f sh @ $%.3f", t.Quantity, t.Price)
				if t.ProfitLoss != nil {
					fmt.Fprintf(&sb, " pnl:$%.2f", *t.ProfitLoss)
				}
			}
		}
	}

	fmt.Fprintf(&sb, " | val:$%.2f cash:$%.2f pnl:$%.2f pos:%d",
		res.Stats.PortfolioValue, cash, res.Stats.TotalPnL, len(res.Positions))

	fmt.Fprintln(c.out, sb.String())
}

// printPositions prints the open positions as a table.
func (c *Console) printPositions(res domain.TickResult) {
	if len(res.Positions) == 0 {
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Side", "Shares", "Entry", "Now", "PnL", "%")

	for _, p := range res.Positions {
		table.Append(
			compactName(p.Question, 30),
			string(p.Side),
			fmt.Sprintf("%.2f", p.Shares),
			fmt.Sprintf("$%.3f", p.AvgEntryPrice),
			fmt.Sprintf("$%.3f", p.CurrentPrice),
			fmt.Sprintf("$%.2f", p.UnrealizedPnL),
			fmt.Sprintf("%+.1f%%", p.PercentChange),
		)
	}
	table.Render()
}

// compactName shortens a market question for single-line output.
// Counts runes, not bytes, so live-seeded titles never get split
// mid-character.
func compactName(q string, maxLen int) string {
	q = strings.TrimSuffix(strings.TrimSpace(q), "?")
	r := []rune(q)
	if len(r) <= maxLen {
		return q
	}
	return string(r[:maxLen-1]) + "…"
}
