package market

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/Louatn/polymarket-trading-bot/internal/domain"
)

const (
	// Price bounds for the bounded random walk.
	priceFloor = 0.01
	priceCeil  = 0.99

	// DefaultStepSize is the half-width of the uniform perturbation
	// applied on each step.
	DefaultStepSize = 0.02
)

// ErrEmptyCatalogue is returned when the market is constructed with no
// instruments. This is a fatal configuration error, not a per-tick one.
var ErrEmptyCatalogue = errors.New("market: empty instrument catalogue")

// Market holds the current price of every tracked instrument and owns
// all price mutation. Instrument selection on Step is uniformly random
// over the catalogue, drawn from the injected source, so a seeded
// source makes the whole walk reproducible.
type Market struct {
	mu          sync.Mutex
	rng         *rand.Rand
	step        float64
	instruments []*domain.Instrument
	byID        map[string]*domain.Instrument
}

// New builds a Market over the given catalogue. stepSize <= 0 falls
// back to DefaultStepSize.
func New(catalogue []domain.Instrument, stepSize float64, rng *rand.Rand) (*Market, error) {
	if len(catalogue) == 0 {
		return nil, ErrEmptyCatalogue
	}
	if stepSize <= 0 {
		stepSize = DefaultStepSize
	}

	m := &Market{
		rng:         rng,
		step:        stepSize,
		instruments: make([]*domain.Instrument, 0, len(catalogue)),
		byID:        make(map[string]*domain.Instrument, len(catalogue)),
	}
	for _, inst := range catalogue {
		c := inst
		c.Price = clamp(c.Price)
		m.instruments = append(m.instruments, &c)
		m.byID[c.ID] = &c
	}
	return m, nil
}

// Step picks one instrument uniformly at random, perturbs its price by
// Uniform(-step, +step) clamped to [0.01, 0.99], and returns a copy of
// the updated instrument.
func (m *Market) Step() domain.Instrument {
	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.instruments[m.rng.IntN(len(m.instruments))]
	delta := (m.rng.Float64()*2 - 1) * m.step
	target.Price = clamp(target.Price + delta)
	return *target
}

// Prices returns a copy of the current price map.
func (m *Market) Prices() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	prices := make(map[string]float64, len(m.instruments))
	for _, inst := range m.instruments {
		prices[inst.ID] = inst.Price
	}
	return prices
}

// Instruments returns value copies of the full catalogue.
func (m *Market) Instruments() []domain.Instrument {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Instrument, 0, len(m.instruments))
	for _, inst := range m.instruments {
		out = append(out, *inst)
	}
	return out
}

// Get returns a copy of one instrument by id.
func (m *Market) Get(id string) (domain.Instrument, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.byID[id]
	if !ok {
		return domain.Instrument{}, false
	}
	return *inst, true
}

// Size returns the number of tracked instruments.
func (m *Market) Size() int {
	return len(m.instruments)
}

func clamp(p float64) float64 {
	if p < priceFloor {
		return priceFloor
	}
	if p > priceCeil {
		return priceCeil
	}
	return p
}

// DefaultCatalogue is the closed synthetic set of markets the
// simulation tracks when no live seed is configured.
func DefaultCatalogue() []domain.Instrument {
	return []domain.Instrument{
		{ID: "mkt_btc_150k", Title: "Will Bitcoin reach $150k by end of 2026?", Category: "crypto", Price: 0.42},
		{ID: "mkt_us_election", Title: "Will the current party win the next US election?", Category: "politics", Price: 0.55},
		{ID: "mkt_eth_10k", Title: "Will Ethereum surpass $10k in 2026?", Category: "crypto", Price: 0.31},
		{ID: "mkt_mars", Title: "Will humans land on Mars before 2030?", Category: "science", Price: 0.08},
		{ID: "mkt_fed_rate", Title: "Will FED rate drop below 2% in 2026?", Category: "politics", Price: 0.38},
		{ID: "mkt_gpt6", Title: "Will GPT-6 be released before 2027?", Category: "science", Price: 0.65},
	}
}
