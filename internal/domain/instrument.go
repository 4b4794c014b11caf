package domain

// Instrument is a tradable synthetic prediction-market question.
// Price is probability-like and stays within [0.01, 0.99]; only the
// market state is allowed to mutate it.
type Instrument struct {
	ID       string
	Title    string
	Category string
	Price    float64
}

// MarketInfo is the wire representation of an instrument with the
// cosmetic depth figures the dashboard expects. It doubles as the
// MARKET_UPDATE event payload and the /api/markets row.
type MarketInfo struct {
	ID           string  `json:"id"`
	Question     string  `json:"question"`
	Category     string  `json:"category"`
	CurrentPrice float64 `json:"currentPrice"`
	Volume24h    int64   `json:"volume24h"`
	Liquidity    int64   `json:"liquidity"`
	EndDate      string  `json:"endDate"`
	Resolved     bool    `json:"resolved"`
}
