// Command riftcoach is the main entry point for the riftcoach commentary server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riftcoach/riftcoach/internal/app"
	"github.com/riftcoach/riftcoach/internal/config"
	"github.com/riftcoach/riftcoach/internal/observe"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "riftcoach: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "riftcoach: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("riftcoach starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	metricsShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsShutdown(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, onConfigChange)
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(watcher)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// onConfigChange logs the settings a reload touched. Components read the
// watcher on every use, so no re-wiring is needed here.
func onConfigChange(old, updated *config.Config) {
	slog.Info("configuration reloaded")
	if old.Coach != updated.Coach {
		slog.Info("coach policy updated",
			"language", updated.Coach.Language,
			"teammate_sample_rate", updated.Coach.TeammateSampleRate,
		)
	}
	if old.Speech.Provider != updated.Speech.Provider {
		slog.Info("speech provider switched",
			"from", old.Speech.Provider, "to", updated.Speech.Provider)
	}
	if old.LLM != updated.LLM {
		slog.Info("llm settings updated",
			"enabled", updated.LLM.Enabled,
			"provider", updated.LLM.Provider,
			"model", updated.LLM.Model,
		)
	}
}

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        riftcoach — startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Coach           : %-19s ║\n", enabledLabel(cfg.Coach.Enabled))
	fmt.Printf("║  Language        : %-19s ║\n", cfg.Coach.Language)
	if cfg.LLM.Enabled {
		fmt.Printf("║  LLM             : %-19s ║\n", cfg.LLM.Provider+"/"+cfg.LLM.Model)
	} else {
		fmt.Printf("║  LLM             : %-19s ║\n", "(static lines)")
	}
	fmt.Printf("║  Speech          : %-19s ║\n", cfg.Speech.Provider)
	fmt.Printf("║  Preload         : %-19s ║\n", enabledLabel(cfg.Speech.Preload))
	if cfg.History.SQLitePath != "" {
		fmt.Printf("║  History         : %-19s ║\n", cfg.History.SQLitePath)
	} else {
		fmt.Printf("║  History         : %-19s ║\n", "(in-memory)")
	}
	fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func enabledLabel(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
