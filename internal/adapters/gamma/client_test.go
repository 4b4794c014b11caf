package gamma_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Louatn/polymarket-trading-bot/internal/adapters/gamma"
)

func TestClient_FetchInstruments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "false", r.URL.Query().Get("closed"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode([]map[string]any{
			{
				"id":            "501234",
				"question":      "Will BTC reach $150k?",
				"category":      "Crypto",
				"outcomePrices": `["0.42", "0.58"]`,
			},
			{
				"id":            "501235",
				"question":      "Will it rain in NYC tomorrow?",
				"outcomePrices": `["0.15", "0.85"]`,
			},
			{
				// Unparsable price row is skipped, not fatal.
				"id":            "501236",
				"question":      "Broken market",
				"outcomePrices": `not json`,
			},
		})
	}))
	defer srv.Close()

	insts, err := gamma.New(srv.URL).FetchInstruments(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, insts, 2)

	assert.Equal(t, "mkt_501234", insts[0].ID)
	assert.Equal(t, "Will BTC reach $150k?", insts[0].Title)
	assert.Equal(t, "Crypto", insts[0].Category)
	assert.InDelta(t, 0.42, insts[0].Price, 1e-9)

	// Missing category falls back to "other".
	assert.Equal(t, "other", insts[1].Category)
}

func TestClient_FetchInstruments_AllUnusable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "", "question": "no id", "outcomePrices": `["0.5"]`},
		})
	}))
	defer srv.Close()

	_, err := gamma.New(srv.URL).FetchInstruments(context.Background(), 5)
	assert.Error(t, err)
}

func TestClient_FetchInstruments_RetriesOn500(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "upstream sad", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "1", "question": "q", "category": "c", "outcomePrices": `["0.5"]`},
		})
	}))
	defer srv.Close()

	insts, err := gamma.New(srv.URL).FetchInstruments(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, insts, 1)
	assert.Equal(t, 3, attempts)
}

func TestClient_FetchInstruments_NoRetryOn404(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts++
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := gamma.New(srv.URL).FetchInstruments(context.Background(), 1)
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}
