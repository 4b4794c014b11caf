package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Louatn/polymarket-trading-bot/internal/domain"
	"github.com/Louatn/polymarket-trading-bot/internal/market"
	"github.com/Louatn/polymarket-trading-bot/internal/ports"
	"github.com/Louatn/polymarket-trading-bot/internal/strategy"
	"github.com/Louatn/polymarket-trading-bot/internal/wallet"
)

const (
	// StakeFixed bets a flat USD amount per buy; StakeRisk scales the
	// stake with cash balance and risk tolerance.
	StakeFixed = "fixed"
	StakeRisk  = "risk"

	defaultOrderSize      = 50.0
	defaultHeartbeatEvery = 5

	minRiskStake = 10.0
	maxRiskStake = 500.0

	syntheticEndDate = "2026-12-31T00:00:00.000Z"
)

// Config holds orchestrator settings.
type Config struct {
	StakeMode      string  // "fixed" | "risk"
	OrderSize      float64 // flat stake for fixed mode
	RiskTolerance  float64 // scales the stake in risk mode
	HeartbeatEvery int     // emit BOT_STATUS every N ticks
	Mode           string  // PAPER
	Version        string
}

// Engine composes market, strategy, wallet and sink into one atomic
// simulation step per tick. Ticks are serialized: a tick fully
// completes, wallet mutations included, before the next one starts.
// The strategy call and all sink writes happen outside the wallet's
// internal lock, so concurrent readers (the HTTP layer) only ever see
// a consistent ledger.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	market *market.Market
	strat  strategy.Strategy
	wallet *wallet.Wallet
	sink   ports.EventSink
	rng    *rand.Rand
	now    func() time.Time
	start  time.Time
	ticks  int
}

// New wires an engine. The random source is shared with the market and
// the reference strategy by the caller, so one seed reproduces a full
// simulation.
func New(cfg Config, mkt *market.Market, strat strategy.Strategy, w *wallet.Wallet, sink ports.EventSink, rng *rand.Rand) *Engine {
	if cfg.StakeMode == "" {
		cfg.StakeMode = StakeFixed
	}
	if cfg.OrderSize <= 0 {
		cfg.OrderSize = defaultOrderSize
	}
	if cfg.HeartbeatEvery <= 0 {
		cfg.HeartbeatEvery = defaultHeartbeatEvery
	}
	if cfg.Mode == "" {
		cfg.Mode = "PAPER"
	}
	return &Engine{
		cfg:    cfg,
		market: mkt,
		strat:  strat,
		wallet: w,
		sink:   sink,
		rng:    rng,
		now:    time.Now,
		start:  time.Now(),
	}
}

// SetClock overrides the engine clock, for deterministic tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
	e.start = now()
}

// Wallet returns the ledger the engine owns.
func (e *Engine) Wallet() *wallet.Wallet { return e.wallet }

// Market returns the market state the engine owns.
func (e *Engine) Market() *market.Market { return e.market }

// Tick runs one simulation step: perturb market → decide → execute →
// value → heartbeat. It always produces a response; negative execution
// outcomes are payload fields, and sink failures only degrade to a
// warning log. The returned error is reserved for context cancellation.
func (e *Engine) Tick(ctx context.Context) (domain.TickResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.TickResult{}, fmt.Errorf("engine.Tick: %w", err)
	}

	var events []domain.Event

	// 1. Market step.
	inst := e.market.Step()
	info := e.marketInfo(inst)
	events = append(events, e.event(domain.EventMarketUpdate, info))
	e.persist(ctx, "market snapshot", func() error {
		return e.sink.AppendMarketSnapshot(ctx, info)
	})

	// 2. Decision. The strategy may be remote and slow; the wallet is
	// untouched until the execution step, so a failure here aborts
	// nothing — it degrades to HOLD.
	dec := e.decide(ctx, inst)

	record := domain.DecisionRecord{
		ID:           "dec_" + shortID(),
		Timestamp:    domain.ISOTime(e.now()),
		InstrumentID: inst.ID,
		Question:     inst.Title,
		Action:       dec.Action,
		Side:         dec.Side,
		Confidence:   dec.Confidence,
		Reasoning:    dec.Reasoning,
	}

	// 3. Execution.
	trade := e.execute(&record, dec, inst)

	// HOLD is a first-class outcome: every decision is emitted and
	// persisted, executed or not.
	events = append(events, e.event(domain.EventDecision, record))
	e.persist(ctx, "decision", func() error {
		return e.sink.AppendDecision(ctx, record)
	})

	if trade != nil {
		events = append(events, e.event(domain.EventTradeExecuted, *trade))
		e.persist(ctx, "trade", func() error {
			return e.sink.AppendTrade(ctx, *trade)
		})

		logEntry := domain.ActivityLog{
			ID:        "log_" + shortID(),
			Timestamp: domain.ISOTime(e.now()),
			Type:      "TRADE",
			Severity:  "success",
			Message:   fmt.Sprintf("%s %s on %q", trade.Action, trade.Side, truncate(inst.Title, 40)),
			Details:   dec.Reasoning,
		}
		events = append(events, e.event(domain.EventActivityLog, logEntry))
		e.persist(ctx, "activity log", func() error {
			return e.sink.AppendActivityLog(ctx, logEntry)
		})
	}

	// 4. Valuation.
	prices := e.market.Prices()
	snap := e.wallet.Snapshot(prices, e.now())
	snap.DailyPnL = e.dailyPnL(ctx, snap)
	events = append(events, e.event(domain.EventPortfolioUpdate, snap))
	e.persist(ctx, "snapshot", func() error {
		return e.sink.AppendSnapshot(ctx, snap)
	})

	// 5. Heartbeat — sampled, but always on the first tick.
	if e.ticks%e.cfg.HeartbeatEvery == 0 {
		events = append(events, e.event(domain.EventBotStatus, e.status(ctx)))
	}
	e.ticks++

	stats, err := e.sink.DashboardStats(ctx, snap, e.wallet.ActivePositions())
	if err != nil {
		slog.Warn("engine: dashboard stats unavailable", "err", err)
		stats = domain.DashboardStats{
			PortfolioValue:  snap.TotalValue,
			TotalPnL:        snap.TotalPnL,
			ActivePositions: e.wallet.ActivePositions(),
		}
	}

	markets, err := e.sink.TrackedMarkets(ctx)
	if err != nil || len(markets) == 0 {
		markets = e.liveMarkets()
	}

	return domain.TickResult{
		Events:    events,
		Stats:     stats,
		Positions: e.wallet.PositionsFormatted(prices),
		Markets:   markets,
	}, nil
}

// decide queries the strategy and falls back to HOLD on failure or a
// malformed decision, so ledger invariants never depend on a remote
// collaborator behaving.
func (e *Engine) decide(ctx context.Context, inst domain.Instrument) domain.Decision {
	dec, err := e.strat.Decide(ctx, inst)
	if err != nil {
		slog.Warn("engine: strategy failed, holding",
			"strategy", e.strat.Name(), "market", inst.ID, "err", err)
		return strategy.Hold("Strategy unavailable, holding.")
	}
	if dec.Action == domain.ActionBuy && dec.Side == "" {
		slog.Warn("engine: buy decision without side, holding",
			"strategy", e.strat.Name(), "market", inst.ID)
		return strategy.Hold("Malformed decision, holding.")
	}
	return dec
}

// execute applies a BUY/SELL decision to the wallet and fills in the
// execution fields of the decision record. Returns the trade on
// success, nil otherwise. HOLD executes nothing by design.
func (e *Engine) execute(record *domain.DecisionRecord, dec domain.Decision, inst domain.Instrument) *domain.Trade {
	switch dec.Action {
	case domain.ActionBuy:
		stake := e.stake()
		switch e.wallet.Buy(inst.ID, inst.Title, dec.Side, inst.Price, stake) {
		case wallet.BuyInsufficientFunds:
			record.ExecutionResult = domain.ExecInsufficientFunds
			return nil
		case wallet.BuySideConflict:
			record.ExecutionResult = domain.ExecSideConflict
			return nil
		}
		record.WasExecuted = true
		record.ExecutionResult = domain.ExecSuccess
		return e.newTrade(dec, inst, stake/inst.Price, stake, nil)

	case domain.ActionSell:
		pos, ok := e.wallet.Position(inst.ID)
		if !ok {
			record.ExecutionResult = domain.ExecNoPosition
			return nil
		}
		pnl, _ := e.wallet.Sell(inst.ID, inst.Price)
		record.WasExecuted = true
		record.ExecutionResult = domain.ExecSuccess
		dec.Side = pos.Side
		record.Side = pos.Side
		realized := domain.Round2(pnl)
		return e.newTrade(dec, inst, pos.Shares, pos.Shares*inst.Price, &realized)
	}
	return nil
}

func (e *Engine) newTrade(dec domain.Decision, inst domain.Instrument, qty, total float64, pnl *float64) *domain.Trade {
	return &domain.Trade{
		ID:           "trade_" + shortID(),
		Timestamp:    domain.ISOTime(e.now()),
		InstrumentID: inst.ID,
		Question:     inst.Title,
		Action:       dec.Action,
		Side:         dec.Side,
		Quantity:     domain.Round2(qty),
		Price:        domain.Round4(inst.Price),
		TotalCost:    domain.Round2(total),
		Confidence:   dec.Confidence,
		Reasoning:    dec.Reasoning,
		ProfitLoss:   pnl,
	}
}

// stake returns the USD amount for the next buy.
func (e *Engine) stake() float64 {
	if e.cfg.StakeMode != StakeRisk {
		return e.cfg.OrderSize
	}
	amount := e.wallet.CashBalance() * (0.01 + e.cfg.RiskTolerance*0.05)
	if amount < minRiskStake {
		amount = minRiskStake
	}
	if amount > maxRiskStake {
		amount = maxRiskStake
	}
	return amount
}

// dailyPnL diffs the current value against the persisted snapshot from
// ~24h ago; with no history it falls back to the initial balance, which
// makes it equal to total P&L.
func (e *Engine) dailyPnL(ctx context.Context, snap domain.Snapshot) float64 {
	baseline := e.wallet.InitialBalance()
	prior, err := e.sink.SnapshotBefore(ctx, e.now().Add(-24*time.Hour))
	if err != nil {
		slog.Warn("engine: daily baseline unavailable", "err", err)
	} else if prior != nil {
		baseline = prior.TotalValue
	}
	return domain.Round2(snap.TotalValue - baseline)
}

// status builds the heartbeat payload from sink counters.
func (e *Engine) status(ctx context.Context) domain.BotStatus {
	now := e.now()
	trades, err := e.sink.TradeCount(ctx)
	if err != nil {
		slog.Warn("engine: trade count unavailable", "err", err)
	}
	winRate, err := e.sink.WinRate(ctx)
	if err != nil {
		slog.Warn("engine: win rate unavailable", "err", err)
	}
	return domain.BotStatus{
		IsConnected:     true,
		LastHeartbeat:   domain.ISOTime(now),
		Uptime:          int64(now.Sub(e.start).Seconds()),
		TotalTrades:     trades,
		WinRate:         winRate,
		ActivePositions: e.wallet.ActivePositions(),
		Mode:            e.sink.GetConfig(ctx, "mode", e.cfg.Mode),
		Version:         e.sink.GetConfig(ctx, "version", e.cfg.Version),
	}
}

// marketInfo dresses an instrument as the MARKET_UPDATE payload. The
// depth figures are cosmetic noise from the shared source, so they are
// reproducible under a seed too.
func (e *Engine) marketInfo(inst domain.Instrument) domain.MarketInfo {
	return domain.MarketInfo{
		ID:           inst.ID,
		Question:     inst.Title,
		Category:     inst.Category,
		CurrentPrice: domain.Round4(inst.Price),
		Volume24h:    100_000 + e.rng.Int64N(4_900_001),
		Liquidity:    1_000_000 + e.rng.Int64N(9_000_001),
		EndDate:      syntheticEndDate,
	}
}

// liveMarkets is the fallback markets view straight from memory, used
// before the sink has any price history.
func (e *Engine) liveMarkets() []domain.MarketInfo {
	insts := e.market.Instruments()
	out := make([]domain.MarketInfo, 0, len(insts))
	for _, inst := range insts {
		out = append(out, domain.MarketInfo{
			ID:           inst.ID,
			Question:     inst.Title,
			Category:     inst.Category,
			CurrentPrice: domain.Round4(inst.Price),
			EndDate:      syntheticEndDate,
		})
	}
	return out
}

// persist runs a sink write and degrades failures to a warning — the
// in-memory wallet stays the source of truth and the tick proceeds.
func (e *Engine) persist(ctx context.Context, what string, fn func() error) {
	if err := fn(); err != nil {
		slog.Warn("engine: sink write failed", "what", what, "err", err)
	}
}

func (e *Engine) event(t domain.EventType, payload any) domain.Event {
	return domain.Event{Type: t, Timestamp: domain.ISOTime(e.now()), Payload: payload}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func shortID() string {
	return uuid.New().String()[:8]
}
