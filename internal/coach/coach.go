// Package coach turns domain events into spoken commentary.
//
// The Coach is the dispatcher/policy stage of the pipeline: it drives the
// diff engine once per snapshot, maps each domain event to a commentary
// category, applies sampling rules, assembles the generation context, and
// hands the resulting line to the speech queue. Generation runs in a
// goroutine per event so a slow LLM call never blocks the polling loop;
// playback ordering is the speech queue's concern.
package coach

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/riftcoach/riftcoach/internal/game"
	"github.com/riftcoach/riftcoach/internal/observe"
)

// Settings is the dispatch policy snapshot the coach re-reads every tick.
type Settings struct {
	Enabled            bool
	Language           string
	TeammateSampleRate float64
	CreepCheckInterval time.Duration
	CreepPaceFloor     float64
}

// Speaker queues one utterance for synthesis and playback. Implemented by
// the speech queue; calls must not block.
type Speaker interface {
	Speak(text string)
}

// Coach consumes snapshots and produces commentary.
type Coach struct {
	settings func() Settings
	gen      *Generator
	speaker  Speaker
	metrics  *observe.Metrics

	// sample returns a uniform float in [0,1). Injectable for tests.
	sample func() float64

	mu             sync.Mutex
	differ         *game.Differ
	lastCreepCheck float64

	wg sync.WaitGroup
}

// Option configures a [Coach].
type Option func(*Coach)

// WithSampler replaces the sampling source used for probabilistic dispatch.
func WithSampler(f func() float64) Option {
	return func(c *Coach) {
		c.sample = f
	}
}

// WithMetrics sets the metrics instance. Defaults to [observe.Default].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Coach) {
		c.metrics = m
	}
}

// New creates a Coach reading live policy through the settings accessor.
func New(settings func() Settings, gen *Generator, speaker Speaker, opts ...Option) *Coach {
	c := &Coach{
		settings: settings,
		gen:      gen,
		speaker:  speaker,
		sample:   rand.Float64,
		differ:   game.NewDiffer(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.Default()
	}
	return c
}

// Reset discards diff state. Call when a new game is detected so the next
// snapshot establishes a fresh baseline and the dedup set starts empty.
func (c *Coach) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.differ = game.NewDiffer()
	c.lastCreepCheck = 0
}

// Close waits for in-flight commentary goroutines to finish.
func (c *Coach) Close() {
	c.wg.Wait()
}

// HandleSnapshot drives one diff tick and dispatches the resulting events.
// It never blocks on generation or playback and never returns an error: a
// bad snapshot is simply a tick with no events.
func (c *Coach) HandleSnapshot(ctx context.Context, snap *game.Snapshot) {
	s := c.settings()
	if !s.Enabled || snap == nil {
		return
	}

	c.mu.Lock()
	events := c.differ.Observe(snap)
	c.mu.Unlock()

	c.metrics.SnapshotTicks.Add(ctx, 1)
	for _, ev := range events {
		c.metrics.DomainEvents.Add(ctx, 1,
			metric.WithAttributes(attribute.String("kind", string(ev.Kind))))

		gc, ok := c.dispatch(ev, snap, s)
		if !ok {
			continue
		}
		c.speakFor(ctx, gc)
	}

	c.checkCreepPace(ctx, snap, s)
}

// Trigger forces a commentary line for the category, bypassing detection.
// Used by the debug endpoint.
func (c *Coach) Trigger(ctx context.Context, category Category) error {
	if !category.IsValid() {
		return fmt.Errorf("coach: unknown category %q", category)
	}
	s := c.settings()
	c.speakFor(ctx, Context{Category: category, Language: s.Language})
	return nil
}

// dispatch maps a domain event to its category and generation context.
// Returns ok=false when policy drops the event (sampling).
func (c *Coach) dispatch(ev game.Event, snap *game.Snapshot, s Settings) (Context, bool) {
	gc := Context{
		GameTime:   snap.GameTime,
		Language:   s.Language,
		Kills:      ev.Stats.Kills,
		Deaths:     ev.Stats.Deaths,
		Assists:    ev.Stats.Assists,
		CreepScore: ev.Stats.CreepScore,
	}

	switch ev.Kind {
	case game.KindDeath:
		gc.Category = CategoryDeath
		gc.Detail = "the player just died"

	case game.KindKill:
		gc.Category = CategoryKill
		gc.Detail = "the player got a kill"

	case game.KindTeammateDeath:
		// Sampled independently per occurrence; undispatched occurrences are
		// dropped, never queued for later.
		if c.sample() >= s.TeammateSampleRate {
			return Context{}, false
		}
		gc.Category = CategoryTeammateDeath
		gc.Detail = fmt.Sprintf("teammate %s died", ev.Subject)
		local := snap.LocalScores()
		gc.Kills, gc.Deaths, gc.Assists = local.Kills, local.Deaths, local.Assists
		gc.CreepScore = local.CreepScore

	case game.KindObjective:
		if ev.MyTeam {
			gc.Category = CategoryObjectiveTaken
			gc.Detail = fmt.Sprintf("the player's team took the %s", ev.Objective)
		} else {
			gc.Category = CategoryObjectiveLost
			gc.Detail = fmt.Sprintf("the enemy team took the %s", ev.Objective)
		}
		local := snap.LocalScores()
		gc.Kills, gc.Deaths, gc.Assists = local.Kills, local.Deaths, local.Assists
		gc.CreepScore = local.CreepScore

	default:
		return Context{}, false
	}

	return gc, true
}

// checkCreepPace emits a sampled CS_GAP commentary when the local player's
// creep score per minute is below the configured floor. Checked on a coarse
// game-time interval so it fires at most once per window.
func (c *Coach) checkCreepPace(ctx context.Context, snap *game.Snapshot, s Settings) {
	if s.CreepCheckInterval <= 0 {
		return
	}
	interval := s.CreepCheckInterval.Seconds()

	c.mu.Lock()
	due := snap.GameTime >= interval && snap.GameTime-c.lastCreepCheck >= interval
	if due {
		c.lastCreepCheck = snap.GameTime
	}
	c.mu.Unlock()
	if !due {
		return
	}

	scores := snap.LocalScores()
	minutes := snap.GameTime / 60
	if minutes <= 0 {
		return
	}
	pace := float64(scores.CreepScore) / minutes
	if pace >= s.CreepPaceFloor {
		return
	}

	c.speakFor(ctx, Context{
		Category:   CategoryCreepGap,
		Detail:     fmt.Sprintf("only %d creep score at %.0f minutes", scores.CreepScore, minutes),
		GameTime:   snap.GameTime,
		Kills:      scores.Kills,
		Deaths:     scores.Deaths,
		Assists:    scores.Assists,
		CreepScore: scores.CreepScore,
		Language:   s.Language,
	})
}

// speakFor generates (or falls back) and queues one line asynchronously.
func (c *Coach) speakFor(ctx context.Context, gc Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		source := "llm"
		text := c.gen.Generate(ctx, gc)
		if text == "" {
			source = "pool"
			text = PoolLine(gc.Category, gc.Language)
		}
		if text == "" {
			return
		}

		slog.Info("coach: commentary",
			"category", gc.Category, "source", source, "text", text)
		c.metrics.Commentaries.Add(ctx, 1, metric.WithAttributes(
			attribute.String("category", string(gc.Category)),
			attribute.String("source", source),
		))
		c.speaker.Speak(text)
	}()
}
