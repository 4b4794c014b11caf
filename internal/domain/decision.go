package domain

// Action is what the strategy wants to do with an instrument.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Side is the outcome a position is taken on.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Decision is produced fresh by a strategy on every tick and never
// mutated afterwards. Side is empty when the action is HOLD.
type Decision struct {
	Action     Action
	Side       Side
	Confidence int // 0-100
	Reasoning  string
}

// ExecutionResult explains how a decision fared against the wallet.
// Negative outcomes are normal results, not errors — the tick always
// proceeds to valuation.
type ExecutionResult string

const (
	ExecSuccess           ExecutionResult = "success"
	ExecInsufficientFunds ExecutionResult = "insufficient_funds"
	ExecNoPosition        ExecutionResult = "no_position"
	ExecSideConflict      ExecutionResult = "side_conflict"
)

// DecisionRecord is the persisted form of a Decision, including HOLD.
// Every decision the bot makes lands in the sink for audit purposes.
type DecisionRecord struct {
	ID              string          `json:"id"`
	Timestamp       string          `json:"timestamp"`
	InstrumentID    string          `json:"market_id"`
	Question        string          `json:"market_question"`
	Action          Action          `json:"action"`
	Side            Side            `json:"side,omitempty"`
	Confidence      int             `json:"confidence"`
	Reasoning       string          `json:"reasoning"`
	WasExecuted     bool            `json:"was_executed"`
	ExecutionResult ExecutionResult `json:"execution_result,omitempty"`
}

// DecisionStats aggregates decision counts for the dashboard.
type DecisionStats struct {
	TotalDecisions int `json:"total_decisions"`
	Buys           int `json:"buys"`
	Sells          int `json:"sells"`
	Holds          int `json:"holds"`
	Executed       int `json:"executed"`
}
