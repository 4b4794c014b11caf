package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Louatn/polymarket-trading-bot/config"
	"github.com/Louatn/polymarket-trading-bot/internal/adapters/advisor"
	"github.com/Louatn/polymarket-trading-bot/internal/adapters/gamma"
	"github.com/Louatn/polymarket-trading-bot/internal/adapters/httpapi"
	"github.com/Louatn/polymarket-trading-bot/internal/adapters/notify"
	"github.com/Louatn/polymarket-trading-bot/internal/adapters/storage"
	"github.com/Louatn/polymarket-trading-bot/internal/application/engine"
	"github.com/Louatn/polymarket-trading-bot/internal/domain"
	"github.com/Louatn/polymarket-trading-bot/internal/market"
	"github.com/Louatn/polymarket-trading-bot/internal/strategy"
	"github.com/Louatn/polymarket-trading-bot/internal/wallet"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single tick and exit")
	serve := flag.Bool("serve", false, "expose the REST API instead of ticking on a timer")
	addr := flag.String("addr", "", "listen address (overrides config)")
	seed := flag.Int64("seed", 0, "random seed; 0 means non-deterministic")
	liveSeed := flag.Bool("live-seed", false, "seed the catalogue from live Polymarket markets")
	useAdvisor := flag.Bool("advisor", false, "decide via the remote advisor instead of the stochastic strategy")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print the positions table each tick (default: compact 1-line)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	setupLogger(cfg.Log)

	slog.Info("paperbot starting",
		"config", *configPath,
		"serve", *serve,
		"once", *once,
		"seed", *seed,
		"live_seed", *liveSeed,
		"advisor", *useAdvisor,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sink, err := storage.NewSQLiteSink(cfg.Storage.DSN, map[string]string{
		"initial_balance": fmt.Sprintf("%.2f", cfg.Simulation.InitialBalance),
		"mode":            "PAPER",
		"version":         version,
		"bot_name":        cfg.Simulation.BotName,
		"risk_tolerance":  fmt.Sprintf("%.2f", cfg.Simulation.RiskTolerance),
		"start_time":      domain.ISOTime(time.Now()),
	})
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer sink.Close()

	// Resume cash from the last persisted snapshot so a restart keeps
	// the running P&L instead of resetting the book.
	startingCash := cfg.Simulation.InitialBalance
	if last, err := sink.LatestSnapshot(ctx); err != nil {
		slog.Warn("could not read last snapshot, starting fresh", "err", err)
	} else if last != nil {
		startingCash = last.CashBalance
		slog.Info("resuming from persisted state", "cash", startingCash)
	}
	w := wallet.New(startingCash, cfg.Simulation.InitialBalance)

	rng := newRNG(*seed)

	catalogue := market.DefaultCatalogue()
	if *liveSeed {
		insts, err := gamma.New(cfg.API.GammaBase).FetchInstruments(ctx, 6)
		if err != nil {
			slog.Warn("live seed failed, using the synthetic catalogue", "err", err)
		} else {
			catalogue = insts
		}
	}
	mkt, err := market.New(catalogue, cfg.Simulation.StepSize, rng)
	if err != nil {
		slog.Error("failed to build market", "err", err)
		os.Exit(1)
	}

	var strat strategy.Strategy = strategy.NewStochastic(strategy.StochasticConfig{
		Name:                cfg.Simulation.BotName,
		RiskTolerance:       cfg.Simulation.RiskTolerance,
		PreferredCategories: cfg.Simulation.PreferredCategories,
		YesBias:             cfg.Simulation.YesBias,
	}, rng)
	if *useAdvisor {
		strat = advisor.New(advisor.Config{
			BaseURL:    cfg.Advisor.BaseURL,
			Model:      cfg.Advisor.Model,
			APIKey:     cfg.Advisor.APIKey,
			Timeout:    cfg.AdvisorTimeout(),
			RatePerSec: cfg.Advisor.RatePerSec,
		})
	}

	eng := engine.New(engine.Config{
		StakeMode:      cfg.Simulation.StakeMode,
		OrderSize:      cfg.Simulation.OrderSize,
		RiskTolerance:  cfg.Simulation.RiskTolerance,
		HeartbeatEvery: cfg.Simulation.HeartbeatEvery,
		Mode:           "PAPER",
		Version:        version,
	}, mkt, strat, w, sink, rng)

	if err := sink.AppendActivityLog(ctx, domain.ActivityLog{
		Timestamp: domain.ISOTime(time.Now()),
		Type:      "SYSTEM",
		Severity:  "info",
		Message:   fmt.Sprintf("%s started", cfg.Simulation.BotName),
		Details:   fmt.Sprintf("strategy=%s markets=%d cash=%.2f", strat.Name(), mkt.Size(), startingCash),
	}); err != nil {
		slog.Warn("startup log failed", "err", err)
	}

	if *serve {
		srv := httpapi.NewServer(eng, sink)
		if err := srv.Serve(ctx, cfg.Server.Addr); err != nil {
			slog.Error("server exited with error", "err", err)
			os.Exit(1)
		}
		slog.Info("paperbot stopped cleanly")
		return
	}

	notifier := notify.NewConsole(*table)
	if err := runLoop(ctx, eng, notifier, cfg.TickInterval(), *once); err != nil {
		slog.Error("paperbot exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("paperbot stopped cleanly")
}

// runLoop ticks the simulation on a timer until the context is
// cancelled, printing each result through the notifier.
func runLoop(ctx context.Context, eng *engine.Engine, notifier *notify.Console, interval time.Duration, once bool) error {
	tick := func() error {
		res, err := eng.Tick(ctx)
		if err != nil {
			return err
		}
		if err := notifier.Notify(ctx, res); err != nil {
			slog.Warn("notifier error", "err", err)
		}
		return nil
	}

	if err := tick(); err != nil {
		return err
	}
	if once {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := tick(); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

// newRNG builds the shared random source. One seed reproduces the full
// simulation: market walk, decisions, and the cosmetic depth figures.
func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
