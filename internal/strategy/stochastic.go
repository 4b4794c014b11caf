package strategy

import (
	"context"
	"math"
	"math/rand/v2"

	"github.com/Louatn/polymarket-trading-bot/internal/domain"
)

const (
	categoryBonus  = 0.15
	sellThreshold  = 0.3
	defaultYesBias = 0.6
	holdReasoning  = "Market under observation. No clear signal."
)

var buyReasons = []string{
	"Positive sentiment shift detected on social feeds.",
	"Unusual volume spike indicating institutional interest.",
	"Probability model flags a 15% undervaluation.",
	"Major news event picked up by the NLP module.",
	"Technical indicators converging (RSI + MACD).",
}

var sellReasons = []string{
	"Automatic profit taking, target reached.",
	"Trend reversal, closing defensively.",
	"Volatility risk above the allowed threshold.",
	"Contradictory new information detected.",
	"Portfolio rebalancing.",
}

// StochasticConfig tunes the reference strategy.
type StochasticConfig struct {
	Name                string
	RiskTolerance       float64  // 0.1 cautious … 1.0 aggressive
	PreferredCategories []string // get a fixed score bonus
	YesBias             float64  // P(side = YES); 0 means default 0.6
}

// Stochastic is the reference decision-maker: a seeded random score
// against risk-scaled thresholds. A cautious bot (low risk tolerance)
// needs a very high score to buy. All randomness comes from the
// injected source so a fixed seed replays the same decisions.
type Stochastic struct {
	name      string
	risk      float64
	preferred map[string]bool
	yesBias   float64
	rng       *rand.Rand
}

// NewStochastic builds the reference strategy around a random source.
func NewStochastic(cfg StochasticConfig, rng *rand.Rand) *Stochastic {
	name := cfg.Name
	if name == "" {
		name = "stochastic"
	}
	bias := cfg.YesBias
	if bias <= 0 || bias > 1 {
		bias = defaultYesBias
	}
	preferred := make(map[string]bool, len(cfg.PreferredCategories))
	for _, c := range cfg.PreferredCategories {
		preferred[c] = true
	}
	return &Stochastic{
		name:      name,
		risk:      cfg.RiskTolerance,
		preferred: preferred,
		yesBias:   bias,
		rng:       rng,
	}
}

// Name implements Strategy.
func (s *Stochastic) Name() string { return s.name }

// Decide implements Strategy. Never fails.
func (s *Stochastic) Decide(_ context.Context, inst domain.Instrument) (domain.Decision, error) {
	score := s.rng.Float64()
	if s.preferred[inst.Category] {
		score += categoryBonus
	}

	buyThreshold := 0.8 - s.risk*0.2

	dec := domain.Decision{
		Action:     domain.ActionHold,
		Confidence: confidence(score),
		Reasoning:  holdReasoning,
	}

	switch {
	case score > buyThreshold:
		dec.Action = domain.ActionBuy
		dec.Reasoning = buyReasons[s.rng.IntN(len(buyReasons))]
		dec.Side = domain.SideNo
		if s.rng.Float64() < s.yesBias {
			dec.Side = domain.SideYes
		}
	case score < sellThreshold:
		dec.Action = domain.ActionSell
		dec.Reasoning = sellReasons[s.rng.IntN(len(sellReasons))]
	}

	return dec, nil
}

// confidence maps the raw score to a 0-100 integer. The category bonus
// can push the score above 1, so clamp before rounding.
func confidence(score float64) int {
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return int(math.Round(score * 100))
}
