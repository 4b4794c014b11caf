package domain

// Position is an open holding in one instrument. One side per
// instrument at a time; a buy on the opposite side is rejected.
// Invariant: TotalCost == Shares * AvgEntryPrice within float tolerance.
type Position struct {
	InstrumentID  string
	Question      string
	Side          Side
	Shares        float64
	AvgEntryPrice float64
	TotalCost     float64
}

// Transaction is the immutable ledger record appended on every
// executed buy or sell. RealizedPnL is zero for buys.
type Transaction struct {
	ID           string
	Timestamp    string
	InstrumentID string
	Question     string
	Action       Action
	Side         Side
	Price        float64
	Quantity     float64
	RealizedPnL  float64
}

// Snapshot is the derived portfolio valuation at a point in time.
// The in-memory wallet is the source of truth; snapshots are handed
// to the sink for durability and charting.
type Snapshot struct {
	Timestamp     string  `json:"timestamp"`
	TotalValue    float64 `json:"totalValue"`
	CashBalance   float64 `json:"cashBalance"`
	InvestedValue float64 `json:"investedValue"`
	DailyPnL      float64 `json:"dailyPnL"`
	TotalPnL      float64 `json:"totalPnL"`
}

// FormattedPosition is the read-only dashboard projection of a Position
// marked to the current price.
type FormattedPosition struct {
	InstrumentID  string  `json:"marketId"`
	Question      string  `json:"marketQuestion"`
	Side          Side    `json:"side"`
	Shares        float64 `json:"shares"`
	AvgEntryPrice float64 `json:"avgEntryPrice"`
	CurrentPrice  float64 `json:"currentPrice"`
	UnrealizedPnL float64 `json:"unrealizedPnL"`
	PercentChange float64 `json:"percentChange"`
}

// Trade is the persisted record of an executed order, richer than the
// wallet Transaction: it carries the decision context that led to it.
type Trade struct {
	ID           string   `json:"id"`
	Timestamp    string   `json:"timestamp"`
	InstrumentID string   `json:"marketId"`
	Question     string   `json:"marketQuestion"`
	Action       Action   `json:"action"`
	Side         Side     `json:"side"`
	Quantity     float64  `json:"quantity"`
	Price        float64  `json:"price"`
	TotalCost    float64  `json:"totalCost"`
	Confidence   int      `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
	ProfitLoss   *float64 `json:"profitLoss"`
}
