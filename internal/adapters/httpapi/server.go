package httpapi

// The HTTP surface a polling dashboard consumes. GET /api/tick is the
// heartbeat of the whole system: each call advances the simulation one
// step and returns the events that step produced, so the frontend's
// poll interval is the simulation's clock.

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Louatn/polymarket-trading-bot/internal/application/engine"
	"github.com/Louatn/polymarket-trading-bot/internal/ports"
)

// Server exposes the simulation over REST.
type Server struct {
	engine *engine.Engine
	sink   ports.EventSink
	start  time.Time
	mux    *http.ServeMux
}

// NewServer builds the router. The engine serializes ticks internally,
// so concurrent /api/tick calls are safe, just pointless.
func NewServer(eng *engine.Engine, sink ports.EventSink) *Server {
	s := &Server{
		engine: eng,
		sink:   sink,
		start:  time.Now(),
		mux:    http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /{$}", s.handleHealth)
	s.mux.HandleFunc("GET /api/tick", s.handleTick)
	s.mux.HandleFunc("GET /api/positions", s.handlePositions)
	s.mux.HandleFunc("GET /api/trades", s.handleTrades)
	s.mux.HandleFunc("GET /api/activity", s.handleActivity)
	s.mux.HandleFunc("GET /api/portfolio/history", s.handlePortfolioHistory)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /api/decisions", s.handleDecisions)
	s.mux.HandleFunc("GET /api/decisions/stats", s.handleDecisionStats)
	s.mux.HandleFunc("GET /api/markets", s.handleMarkets)
	s.mux.HandleFunc("GET /api/config", s.handleConfig)
	s.mux.HandleFunc("GET /api/chat/history", s.handleChatHistory)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)

	return s
}

// ServeHTTP implements http.Handler with permissive CORS, since the
// dashboard is served from a different origin in development.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "running",
		"uptime": time.Since(s.start).Round(100 * time.Millisecond).Seconds(),
		"bot":    s.sink.GetConfig(ctx, "bot_name", "PolyBot"),
		"mode":   s.sink.GetConfig(ctx, "mode", "PAPER"),
	})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Tick(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	prices := s.engine.Market().Prices()
	writeJSON(w, http.StatusOK, s.engine.Wallet().PositionsFormatted(prices))
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.sink.Trades(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	logs, err := s.sink.ActivityLogs(r.Context(), queryInt(r, "limit", 200))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handlePortfolioHistory(w http.ResponseWriter, r *http.Request) {
	hist, err := s.sink.PortfolioHistory(r.Context(), queryInt(r, "days", 90))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := s.engine.Wallet().Snapshot(s.engine.Market().Prices(), time.Now())
	stats, err := s.sink.DashboardStats(ctx, snap, s.engine.Wallet().ActivePositions())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	decs, err := s.sink.Decisions(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, decs)
}

func (s *Server) handleDecisionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.sink.DecisionStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.sink.TrackedMarkets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, markets)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	writeJSON(w, http.StatusOK, map[string]any{
		"initial_balance": parseFloat(s.sink.GetConfig(ctx, "initial_balance", "10000.0"), 10000.0),
		"mode":            s.sink.GetConfig(ctx, "mode", "PAPER"),
		"version":         s.sink.GetConfig(ctx, "version", "1.0.0"),
		"bot_name":        s.sink.GetConfig(ctx, "bot_name", "PolyBot"),
		"risk_tolerance":  parseFloat(s.sink.GetConfig(ctx, "risk_tolerance", "0.3"), 0.3),
		"start_time":      s.sink.GetConfig(ctx, "start_time", ""),
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.sink.ChatHistory(r.Context(), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// Serve runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("httpapi: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("httpapi: encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	slog.Error("httpapi: request failed", "status", status, "err", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(s string, fallback float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return f
}
