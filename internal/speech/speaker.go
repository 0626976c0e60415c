package speech

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/riftcoach/riftcoach/internal/observe"
	"github.com/riftcoach/riftcoach/pkg/audio"
	"github.com/riftcoach/riftcoach/pkg/provider/tts"
)

// historyLimit caps the number of utterances kept in the in-memory history.
const historyLimit = 20

// preloadConcurrency bounds parallel synthesis calls during cache warming.
const preloadConcurrency = 4

// Settings is the synthesis configuration snapshot the queue re-reads for
// every utterance, so a config reload takes effect on the next line spoken.
type Settings struct {
	// Provider selects the synthesizer by its registered name.
	Provider string

	// Voice is passed to the synthesizer verbatim.
	Voice tts.Voice
}

// Utterance describes one synthesized line, emitted to ready listeners and
// recorded in the history.
type Utterance struct {
	Text     string    `json:"text"`
	CacheKey string    `json:"cacheKey"`
	Path     string    `json:"-"`
	Provider string    `json:"provider"`
	SpokenAt time.Time `json:"spokenAt"`
}

// ReadyFunc is invoked after synthesis completes, before playback starts.
// Listeners must not block; the queue calls them inline from its worker.
type ReadyFunc func(Utterance)

// Queue is a single-flight speech pipeline: utterances are synthesized and
// played strictly one at a time, in the order they were enqueued. Speak never
// blocks; a dedicated worker goroutine drains the queue.
type Queue struct {
	settings func() Settings
	cache    *Cache
	player   audio.Player
	metrics  *observe.Metrics

	synthesizers map[string]tts.Synthesizer

	mu         sync.Mutex
	cond       *sync.Cond
	pending    []string
	closed     bool
	cancelPlay context.CancelFunc
	history    []Utterance
	listeners  []ReadyFunc

	done chan struct{}
}

// QueueOption configures a [Queue].
type QueueOption func(*Queue)

// WithQueueMetrics sets the metrics instance. Defaults to [observe.Default].
func WithQueueMetrics(m *observe.Metrics) QueueOption {
	return func(q *Queue) {
		q.metrics = m
	}
}

// NewQueue creates a queue and starts its worker. The synthesizer for an
// utterance is looked up by the provider name in the settings snapshot taken
// when the utterance reaches the head of the queue.
func NewQueue(settings func() Settings, cache *Cache, player audio.Player, synthesizers []tts.Synthesizer, opts ...QueueOption) *Queue {
	q := &Queue{
		settings:     settings,
		cache:        cache,
		player:       player,
		synthesizers: make(map[string]tts.Synthesizer, len(synthesizers)),
		done:         make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	for _, s := range synthesizers {
		q.synthesizers[s.Name()] = s
	}
	for _, o := range opts {
		o(q)
	}
	if q.metrics == nil {
		q.metrics = observe.Default()
	}
	go q.worker()
	return q
}

// OnReady registers a listener invoked for every successfully synthesized
// utterance. Must be called before the first Speak.
func (q *Queue) OnReady(fn ReadyFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, fn)
}

// Speak enqueues text for synthesis and playback. Non-blocking; empty text
// is ignored. Safe for concurrent use.
func (q *Queue) Speak(text string) {
	if text == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.pending = append(q.pending, text)
	q.metrics.QueueDepth.Add(context.Background(), 1)
	q.cond.Signal()
}

// Stop cancels any in-progress playback and discards pending utterances.
// The queue stays usable; subsequent Speak calls start fresh. Call when the
// game ends so stale commentary does not keep playing.
func (q *Queue) Stop() {
	q.mu.Lock()
	dropped := int64(len(q.pending))
	q.pending = nil
	cancel := q.cancelPlay
	q.mu.Unlock()

	if dropped > 0 {
		q.metrics.QueueDepth.Add(context.Background(), -dropped)
	}
	if cancel != nil {
		cancel()
	}
}

// Close stops the worker after the current playback finishes. The queue must
// not be used afterwards.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.pending = nil
	cancel := q.cancelPlay
	q.cond.Signal()
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	<-q.done
}

// History returns spoken utterances, most recent first, capped at 20.
func (q *Queue) History() []Utterance {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Utterance, len(q.history))
	copy(out, q.history)
	return out
}

// Preload synthesizes every line into the cache ahead of time so the first
// in-game commentary plays without a synthesis round-trip. Lines already
// cached are skipped, as is the whole pass when the current provider bills
// per character.
func (q *Queue) Preload(ctx context.Context, lines []string) error {
	s := q.settings()
	synth, ok := q.synthesizers[s.Provider]
	if !ok {
		return fmt.Errorf("speech: unknown synthesis provider %q", s.Provider)
	}
	if synth.Metered() {
		slog.Info("speech: skipping preload for metered provider", "provider", synth.Name())
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadConcurrency)
	for _, line := range lines {
		key := q.cache.Key(synth.Name(), s.Voice.ID, line)
		if q.cache.Has(key) {
			continue
		}
		g.Go(func() error {
			audio, err := synth.Synthesize(ctx, line, s.Voice)
			if err != nil {
				return fmt.Errorf("speech: preload %q: %w", line, err)
			}
			_, err = q.cache.Put(key, audio)
			return err
		})
	}
	return g.Wait()
}

// worker drains the queue one utterance at a time. An explicit loop, not
// recursion: playback of item n must fully finish before item n+1 starts.
func (q *Queue) worker() {
	defer close(q.done)
	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return
		}
		text := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.metrics.QueueDepth.Add(context.Background(), -1)
		q.process(text)
	}
}

// process synthesizes (or fetches) one utterance and plays it to completion.
// A failure at any stage logs, records the error metric, and moves on to the
// next pending utterance; nothing is cached on failure.
func (q *Queue) process(text string) {
	s := q.settings()
	synth, ok := q.synthesizers[s.Provider]
	if !ok {
		slog.Error("speech: unknown synthesis provider", "provider", s.Provider)
		return
	}
	providerAttr := metric.WithAttributes(attribute.String("provider", synth.Name()))

	key := q.cache.Key(synth.Name(), s.Voice.ID, text)
	path := q.cache.Path(key)
	if q.cache.Has(key) {
		q.metrics.CacheHits.Add(context.Background(), 1)
	} else {
		q.metrics.CacheMisses.Add(context.Background(), 1)

		start := time.Now()
		audio, err := synth.Synthesize(context.Background(), text, s.Voice)
		q.metrics.SynthesisDuration.Record(context.Background(), time.Since(start).Seconds(), providerAttr)
		if err != nil {
			q.metrics.SynthesisErrors.Add(context.Background(), 1, providerAttr)
			slog.Error("speech: synthesis failed", "provider", synth.Name(), "error", err)
			return
		}
		if path, err = q.cache.Put(key, audio); err != nil {
			slog.Error("speech: cache write failed", "error", err)
			return
		}
	}

	u := Utterance{
		Text:     text,
		CacheKey: key,
		Path:     path,
		Provider: synth.Name(),
		SpokenAt: time.Now(),
	}
	q.record(u)

	ctx, cancel := context.WithCancel(context.Background())
	q.mu.Lock()
	q.cancelPlay = cancel
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.cancelPlay = nil
		q.mu.Unlock()
		cancel()
	}()

	start := time.Now()
	if err := q.player.Play(ctx, path); err != nil && ctx.Err() == nil {
		slog.Error("speech: playback failed", "path", path, "error", err)
	}
	q.metrics.PlaybackDuration.Record(context.Background(), time.Since(start).Seconds())
}

// record prepends to the history and notifies listeners.
func (q *Queue) record(u Utterance) {
	q.mu.Lock()
	q.history = append([]Utterance{u}, q.history...)
	if len(q.history) > historyLimit {
		q.history = q.history[:historyLimit]
	}
	listeners := make([]ReadyFunc, len(q.listeners))
	copy(listeners, q.listeners)
	q.mu.Unlock()

	for _, fn := range listeners {
		fn(u)
	}
}
