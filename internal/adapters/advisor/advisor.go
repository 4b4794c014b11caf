package advisor

// advisor.go — remote-reasoning strategy behind the regular Strategy
// contract. The model is asked for a strict JSON decision; anything
// that fails (transport, timeout, malformed JSON, out-of-range fields)
// degrades to a deterministic HOLD so the tick path never depends on
// the remote service.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/Louatn/polymarket-trading-bot/internal/domain"
	"github.com/Louatn/polymarket-trading-bot/internal/strategy"
)

const (
	defaultBase    = "https://generativelanguage.googleapis.com/v1beta/models"
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 8 * time.Second

	// Conservative client-side limit; the advisor is consulted at most
	// once per tick anyway.
	defaultRatePerSec = 2

	fallbackReason = "Advisor unavailable, holding."
)

const systemPrompt = `You are a prediction-market trading advisor.
Reply ONLY with strict JSON: {"action": "BUY"|"SELL"|"HOLD",
"side": "YES"|"NO" (required for BUY), "confidence": 0-100,
"reasoning": "one short sentence"}.`

// Config tunes the advisor client.
type Config struct {
	BaseURL    string
	Model      string
	APIKey     string
	Timeout    time.Duration
	RatePerSec float64
}

// Advisor implements strategy.Strategy against a generateContent-style
// REST endpoint.
type Advisor struct {
	http    *http.Client
	url     string
	apiKey  string
	limiter *rate.Limiter
}

// New builds an advisor client. An empty API key is allowed: every
// Decide call then returns the HOLD fallback, which keeps wiring simple
// in environments without credentials.
func New(cfg Config) *Advisor {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBase
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = defaultRatePerSec
	}
	return &Advisor{
		http:    &http.Client{Timeout: timeout},
		url:     fmt.Sprintf("%s/%s:generateContent", base, model),
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
	}
}

// Name implements strategy.Strategy.
func (a *Advisor) Name() string { return "advisor" }

// Decide implements strategy.Strategy. It never returns an error for
// remote failures — those come back as the HOLD fallback so callers
// don't need their own degradation path on top.
func (a *Advisor) Decide(ctx context.Context, inst domain.Instrument) (domain.Decision, error) {
	if a.apiKey == "" {
		return strategy.Hold(fallbackReason), nil
	}

	dec, err := a.consult(ctx, inst)
	if err != nil {
		slog.Warn("advisor: falling back to HOLD", "market", inst.ID, "err", err)
		return strategy.Hold(fallbackReason), nil
	}
	return dec, nil
}

// generateContent request/response wire shapes, reduced to the fields
// this client uses.
type generateRequest struct {
	SystemInstruction content        `json:"system_instruction"`
	Contents          []content      `json:"contents"`
	GenerationConfig  generationConf `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConf struct {
	ResponseMimeType string `json:"response_mime_type"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// rawDecision is the JSON the model is instructed to emit.
type rawDecision struct {
	Action     string `json:"action"`
	Side       string `json:"side"`
	Confidence int    `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

func (a *Advisor) consult(ctx context.Context, inst domain.Instrument) (domain.Decision, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return domain.Decision{}, fmt.Errorf("advisor.consult: rate limiter: %w", err)
	}

	prompt := fmt.Sprintf(
		"Market: %q (category: %s). Current YES price: %.4f. Decide.",
		inst.Title, inst.Category, inst.Price,
	)
	reqBody := generateRequest{
		SystemInstruction: content{Parts: []part{{Text: systemPrompt}}},
		Contents:          []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig:  generationConf{ResponseMimeType: "application/json"},
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("advisor.consult: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url+"?key="+a.apiKey, bytes.NewReader(b))
	if err != nil {
		return domain.Decision{}, fmt.Errorf("advisor.consult: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("advisor.consult: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Decision{}, fmt.Errorf("advisor.consult: status %d: %s", resp.StatusCode, body)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Decision{}, fmt.Errorf("advisor.consult: decode: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return domain.Decision{}, fmt.Errorf("advisor.consult: empty candidates")
	}

	var raw rawDecision
	if err := json.Unmarshal([]byte(out.Candidates[0].Content.Parts[0].Text), &raw); err != nil {
		return domain.Decision{}, fmt.Errorf("advisor.consult: parse decision: %w", err)
	}
	return validate(raw)
}

// validate maps the model output onto a Decision, rejecting anything
// outside the contract.
func validate(raw rawDecision) (domain.Decision, error) {
	action := domain.Action(raw.Action)
	switch action {
	case domain.ActionBuy, domain.ActionSell, domain.ActionHold:
	default:
		return domain.Decision{}, fmt.Errorf("advisor.validate: bad action %q", raw.Action)
	}

	side := domain.Side(raw.Side)
	if action == domain.ActionBuy && side != domain.SideYes && side != domain.SideNo {
		return domain.Decision{}, fmt.Errorf("advisor.validate: bad side %q for BUY", raw.Side)
	}
	if action == domain.ActionHold {
		side = ""
	}

	conf := raw.Confidence
	if conf < 0 || conf > 100 {
		return domain.Decision{}, fmt.Errorf("advisor.validate: confidence %d out of range", raw.Confidence)
	}

	reasoning := raw.Reasoning
	if reasoning == "" {
		reasoning = "Advisor gave no reasoning."
	}

	return domain.Decision{
		Action:     action,
		Side:       side,
		Confidence: conf,
		Reasoning:  reasoning,
	}, nil
}
