package ports

import (
	"context"

	"github.com/Louatn/polymarket-trading-bot/internal/domain"
)

// Notifier reports tick results to a human surface (console, …).
type Notifier interface {
	Notify(ctx context.Context, result domain.TickResult) error
}
