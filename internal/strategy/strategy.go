package strategy

import (
	"context"

	"github.com/Louatn/polymarket-trading-bot/internal/domain"
)

// Strategy decides what to do with an instrument on each tick. It may
// read the instrument but never touches the wallet or the market —
// only the orchestrator applies decisions to the ledger. That
// separation is what lets remote advisory strategies swap in without
// touching ledger invariants.
type Strategy interface {
	Name() string
	// Decide returns a fresh Decision for the instrument. Implementations
	// backed by remote services must honor ctx cancellation; an error
	// makes the orchestrator fall back to HOLD for the tick.
	Decide(ctx context.Context, inst domain.Instrument) (domain.Decision, error)
}

// Hold is the deterministic fallback decision used when a strategy
// fails or returns something malformed.
func Hold(reason string) domain.Decision {
	return domain.Decision{
		Action:     domain.ActionHold,
		Confidence: 0,
		Reasoning:  reason,
	}
}
