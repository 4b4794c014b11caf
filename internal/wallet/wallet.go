package wallet

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Louatn/polymarket-trading-bot/internal/domain"
)

// dustThreshold is the share quantity below which a position is
// considered closed and removed from the book.
const dustThreshold = 0.001

// BuyResult is the outcome of a buy attempt. Rejections are normal
// results: the wallet is left byte-for-byte unchanged.
type BuyResult int

const (
	BuyOK BuyResult = iota
	BuyInsufficientFunds
	BuySideConflict
)

// Wallet is the paper-trading portfolio ledger: cash, open positions
// with weighted-average-cost accounting, and an append-only transaction
// log. It owns its positions exclusively; all mutation goes through Buy
// and Sell, each of which is a single atomic state transition.
type Wallet struct {
	mu      sync.Mutex
	cash    float64
	initial float64
	posns   map[string]*domain.Position
	txns    []domain.Transaction
	now     func() time.Time
}

// New creates a wallet. startingCash and initialBalance are separate so
// a restarted simulation can resume cash from the last persisted
// snapshot while P&L keeps being measured against the original capital.
func New(startingCash, initialBalance float64) *Wallet {
	return &Wallet{
		cash:    startingCash,
		initial: initialBalance,
		posns:   make(map[string]*domain.Position),
		now:     time.Now,
	}
}

// SetClock overrides the wallet clock, for deterministic tests.
func (w *Wallet) SetClock(now func() time.Time) {
	w.now = now
}

// Buy executes a buy order of amountUSD at the given price. It fails
// without touching state when the amount exceeds available cash, or
// when an open position for the instrument is on the opposite side.
// Buys into an existing same-side position merge via weighted average.
func (w *Wallet) Buy(instrumentID, question string, side domain.Side, price, amountUSD float64) BuyResult {
	w.mu.Lock()
	defer w.mu.Unlock()

	if amountUSD > w.cash {
		return BuyInsufficientFunds
	}

	pos, ok := w.posns[instrumentID]
	if ok && pos.Side != side {
		return BuySideConflict
	}
	if !ok {
		pos = &domain.Position{
			InstrumentID: instrumentID,
			Question:     question,
			Side:         side,
		}
		w.posns[instrumentID] = pos
	}

	w.cash -= amountUSD
	shares := amountUSD / price

	pos.TotalCost += amountUSD
	pos.Shares += shares
	pos.AvgEntryPrice = pos.TotalCost / pos.Shares

	w.appendTxn(domain.ActionBuy, instrumentID, pos.Question, side, price, shares, 0)
	return BuyOK
}

// Sell liquidates the whole position for the instrument at the given
// price. See SellShares.
func (w *Wallet) Sell(instrumentID string, price float64) (float64, bool) {
	return w.SellShares(instrumentID, price, 0)
}

// SellShares sells up to sharesToSell shares at the given price and
// returns the realized P&L. sharesToSell <= 0 or above the held amount
// liquidates the entire position. Returns (0, false) without any state
// change when no position is open for the instrument.
func (w *Wallet) SellShares(instrumentID string, price, sharesToSell float64) (float64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pos, ok := w.posns[instrumentID]
	if !ok {
		return 0, false
	}

	if sharesToSell <= 0 || sharesToSell > pos.Shares {
		sharesToSell = pos.Shares
	}

	revenue := sharesToSell * price
	costBasis := sharesToSell * pos.AvgEntryPrice
	realized := revenue - costBasis

	w.cash += revenue
	pos.Shares -= sharesToSell
	pos.TotalCost -= costBasis

	// Dust cleanup: the position ceases to exist, so the average entry
	// price is not recomputed on this branch.
	if pos.Shares < dustThreshold {
		delete(w.posns, instrumentID)
	}

	w.appendTxn(domain.ActionSell, instrumentID, pos.Question, pos.Side, price, sharesToSell, realized)
	return realized, true
}

// Snapshot values the portfolio against the given prices at the given
// instant. Instruments without a live price are valued at cost basis —
// a conservative fallback that never invents a more favorable price.
// DailyPnL equals TotalPnL here; the orchestrator re-derives it against
// the persisted prior-day snapshot.
func (w *Wallet) Snapshot(currentPrices map[string]float64, at time.Time) domain.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	invested := 0.0
	for id, pos := range w.posns {
		price, ok := currentPrices[id]
		if !ok {
			price = pos.AvgEntryPrice
		}
		invested += pos.Shares * price
	}

	total := w.cash + invested
	pnl := total - w.initial

	return domain.Snapshot{
		Timestamp:     domain.ISOTime(at),
		TotalValue:    domain.Round2(total),
		CashBalance:   domain.Round2(w.cash),
		InvestedValue: domain.Round2(invested),
		DailyPnL:      domain.Round2(pnl),
		TotalPnL:      domain.Round2(pnl),
	}
}

// PositionsFormatted projects open positions for the dashboard, marked
// to the given prices.
func (w *Wallet) PositionsFormatted(currentPrices map[string]float64) []domain.FormattedPosition {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]domain.FormattedPosition, 0, len(w.posns))
	for id, pos := range w.posns {
		price, ok := currentPrices[id]
		if !ok {
			price = pos.AvgEntryPrice
		}
		unrealized := (price - pos.AvgEntryPrice) * pos.Shares
		pctChange := 0.0
		if pos.AvgEntryPrice > 0 {
			pctChange = (price - pos.AvgEntryPrice) / pos.AvgEntryPrice * 100
		}
		out = append(out, domain.FormattedPosition{
			InstrumentID:  id,
			Question:      pos.Question,
			Side:          pos.Side,
			Shares:        domain.Round2(pos.Shares),
			AvgEntryPrice: domain.Round3(pos.AvgEntryPrice),
			CurrentPrice:  domain.Round3(price),
			UnrealizedPnL: domain.Round2(unrealized),
			PercentChange: domain.Round2(pctChange),
		})
	}
	return out
}

// Position returns a copy of the open position for an instrument.
func (w *Wallet) Position(instrumentID string) (domain.Position, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pos, ok := w.posns[instrumentID]
	if !ok {
		return domain.Position{}, false
	}
	return *pos, true
}

// ActivePositions returns the number of open positions.
func (w *Wallet) ActivePositions() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.posns)
}

// CashBalance returns the current cash balance.
func (w *Wallet) CashBalance() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cash
}

// InitialBalance returns the capital P&L is measured against.
func (w *Wallet) InitialBalance() float64 {
	return w.initial
}

// Transactions returns a copy of the transaction log, oldest first.
func (w *Wallet) Transactions() []domain.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]domain.Transaction, len(w.txns))
	copy(out, w.txns)
	return out
}

// appendTxn records an executed order. Caller holds w.mu.
func (w *Wallet) appendTxn(action domain.Action, instrumentID, question string, side domain.Side, price, qty, pnl float64) {
	w.txns = append(w.txns, domain.Transaction{
		ID:           "txn_" + shortID(),
		Timestamp:    domain.ISOTime(w.now()),
		InstrumentID: instrumentID,
		Question:     question,
		Action:       action,
		Side:         side,
		Price:        price,
		Quantity:     qty,
		RealizedPnL:  pnl,
	})
}

// shortID returns the first 8 hex chars of a fresh uuid, matching the
// id style used across the persisted records.
func shortID() string {
	return uuid.New().String()[:8]
}
