// Package app assembles the full riftcoach pipeline: config watcher, game
// poller, diff-driven coach, LLM generator, speech queue, history store,
// WebSocket relay and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riftcoach/riftcoach/internal/coach"
	"github.com/riftcoach/riftcoach/internal/config"
	"github.com/riftcoach/riftcoach/internal/history"
	"github.com/riftcoach/riftcoach/internal/poller"
	"github.com/riftcoach/riftcoach/internal/relay"
	"github.com/riftcoach/riftcoach/internal/server"
	"github.com/riftcoach/riftcoach/internal/speech"
	"github.com/riftcoach/riftcoach/pkg/audio"
	"github.com/riftcoach/riftcoach/pkg/provider/tts"
	"github.com/riftcoach/riftcoach/pkg/provider/tts/edge"
	"github.com/riftcoach/riftcoach/pkg/provider/tts/elevenlabs"
)

// App owns the long-running components and their shutdown order.
type App struct {
	watcher *config.Watcher

	cache  *speech.Cache
	queue  *speech.Queue
	store  *history.Store
	hub    *relay.Hub
	coach  *coach.Coach
	poller *poller.Poller
	server *server.Server

	inGame atomic.Bool
}

// New wires the application from a running config watcher. Settings that can
// change at runtime (polling cadence, dispatch policy, provider selection)
// are read through the watcher on every use; components created here
// (synthesizer clients, cache directory, listen address) are fixed at start.
func New(watcher *config.Watcher) (*App, error) {
	a := &App{watcher: watcher}
	cfg := watcher.Current()

	var err error
	if a.cache, err = speech.NewCache(cfg.Speech.CacheDir); err != nil {
		return nil, err
	}

	player, err := audio.NewCommandPlayer(cfg.Speech.PlayerCommand)
	if err != nil {
		return nil, fmt.Errorf("app: audio player: %w", err)
	}

	synths := []tts.Synthesizer{edge.New()}
	if cfg.Speech.ElevenLabs.APIKey != "" {
		el, err := elevenlabs.New(cfg.Speech.ElevenLabs.APIKey,
			elevenlabs.WithModel(cfg.Speech.ElevenLabs.ModelID))
		if err != nil {
			return nil, fmt.Errorf("app: elevenlabs synthesizer: %w", err)
		}
		synths = append(synths, el)
	}

	a.queue = speech.NewQueue(a.speechSettings, a.cache, player, synths)

	gen := coach.NewGenerator(a.generatorSettings)
	a.coach = coach.New(a.coachSettings, gen, a.queue)

	a.hub = relay.NewHub()

	if path := cfg.History.SQLitePath; path != "" {
		if a.store, err = history.Open(path); err != nil {
			return nil, err
		}
	}

	a.queue.OnReady(a.onUtteranceReady)

	a.poller = poller.New(a.pollerSettings, poller.Handler{
		GameStarted: a.onGameStarted,
		GameEnded:   a.onGameEnded,
		Snapshot:    a.coach.HandleSnapshot,
	})

	a.server = server.New(cfg.Server.ListenAddr, server.Deps{
		StatusFunc:    a.status,
		ClientBaseURL: func() string { return a.watcher.Current().Client.BaseURL },
		Cache:         a.cache,
		Queue:         a.queue,
		Store:         a.store,
		Coach:         a.coach,
		Hub:           a.hub,
	})

	return a, nil
}

// Run starts the poller and HTTP server and blocks until ctx is cancelled or
// the server fails. Components are torn down in pipeline order on return.
func (a *App) Run(ctx context.Context) error {
	cfg := a.watcher.Current()
	if cfg.Speech.Preload {
		// Best effort; live synthesis fills the cache anyway.
		if err := a.queue.Preload(ctx, coach.PoolLines(cfg.Coach.Language)); err != nil {
			slog.Warn("app: line preload incomplete", "error", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.poller.Run(ctx)
		return nil
	})
	g.Go(a.server.ListenAndServe)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	a.close()
	return err
}

// close tears components down: stop producing, drain the coach, then the
// queue, then the fan-out surfaces.
func (a *App) close() {
	a.coach.Close()
	a.queue.Close()
	a.hub.Close()
	if a.store != nil {
		a.store.Close()
	}
}

func (a *App) onGameStarted() {
	a.inGame.Store(true)
	a.coach.Reset()
	a.hub.Broadcast(relay.Event{Type: "gameStarted"})
}

func (a *App) onGameEnded() {
	a.inGame.Store(false)
	a.queue.Stop()
	a.hub.Broadcast(relay.Event{Type: "gameEnded"})
}

// onUtteranceReady runs on the speech worker between synthesis and playback.
func (a *App) onUtteranceReady(u speech.Utterance) {
	a.hub.Broadcast(relay.Event{Type: "audioReady", Payload: map[string]string{
		"text":     u.Text,
		"cacheKey": u.CacheKey,
		"url":      "/audio/" + u.CacheKey,
	}})
	if a.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := a.store.Record(ctx, history.Entry{
			Text:     u.Text,
			CacheKey: u.CacheKey,
			Provider: u.Provider,
			SpokenAt: u.SpokenAt,
		}); err != nil {
			slog.Error("app: persist utterance", "error", err)
		}
	}
}

func (a *App) status() server.Status {
	cfg := a.watcher.Current()
	return server.Status{
		InGame:       a.inGame.Load(),
		RelayClients: a.hub.ClientCount(),
		Provider:     cfg.Speech.Provider,
		LLMEnabled:   cfg.LLM.Enabled,
	}
}

func (a *App) pollerSettings() poller.Settings {
	cfg := a.watcher.Current()
	return poller.Settings{
		BaseURL:        cfg.Client.BaseURL,
		Interval:       cfg.Client.PollInterval.Std(),
		RequestTimeout: cfg.Client.RequestTimeout.Std(),
	}
}

func (a *App) coachSettings() coach.Settings {
	cfg := a.watcher.Current()
	return coach.Settings{
		Enabled:            cfg.Coach.Enabled,
		Language:           cfg.Coach.Language,
		TeammateSampleRate: cfg.Coach.TeammateSampleRate,
		CreepCheckInterval: cfg.Coach.CreepCheckInterval.Std(),
		CreepPaceFloor:     cfg.Coach.CreepPaceFloor,
	}
}

func (a *App) generatorSettings() coach.GeneratorSettings {
	cfg := a.watcher.Current()
	return coach.GeneratorSettings{
		Enabled:  cfg.LLM.Enabled,
		Provider: cfg.LLM.Provider,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		Timeout:  cfg.LLM.Timeout.Std(),
	}
}

func (a *App) speechSettings() speech.Settings {
	cfg := a.watcher.Current()
	voice := tts.Voice{Language: cfg.SpeechLanguage()}
	switch cfg.Speech.Provider {
	case "elevenlabs":
		voice.ID = cfg.Speech.ElevenLabs.VoiceID
	default:
		voice.ID = cfg.EdgeVoice()
	}
	return speech.Settings{
		Provider: cfg.Speech.Provider,
		Voice:    voice,
	}
}
