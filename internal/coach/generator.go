package coach

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/riftcoach/riftcoach/internal/observe"
	"github.com/riftcoach/riftcoach/internal/resilience"
	"github.com/riftcoach/riftcoach/pkg/provider/llm"
	"github.com/riftcoach/riftcoach/pkg/provider/llm/anyllm"
	"github.com/riftcoach/riftcoach/pkg/provider/llm/openai"
)

// GeneratorSettings is the snapshot of LLM configuration one generation call
// runs with. The generator re-reads it through its accessor on every call so
// hot-reloaded provider or credential changes apply without restart.
type GeneratorSettings struct {
	Enabled  bool
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// disabled reports whether generation cannot run with these settings.
// Local backends (ollama, llamacpp) work without an API key.
func (s GeneratorSettings) disabled() bool {
	if !s.Enabled || s.Model == "" {
		return true
	}
	if s.APIKey == "" && s.Provider != "ollama" && s.Provider != "llamacpp" {
		return true
	}
	return false
}

// Context is the ephemeral generation context assembled per dispatched event.
// It is owned solely by the dispatch that built it.
type Context struct {
	// Category is the commentary bucket the event mapped to.
	Category Category

	// Detail is a short situational clause (which objective, who died).
	Detail string

	// GameTime is elapsed game time in seconds.
	GameTime float64

	// Kills, Deaths, Assists is the local player's KDA triple.
	Kills, Deaths, Assists int

	// CreepScore is the local player's creep score.
	CreepScore int

	// Language is the target spoken language ("zh" or "en").
	Language string
}

// personas vary the tone across calls so repeated events do not produce the
// same angle twice in a row.
var personas = []string{
	"compare them to a minion",
	"question their internet connection",
	"mock their reaction time",
	"imply they are secretly queued on the enemy team",
	"act like a disappointed parent",
	"suggest the practice tool",
	"compare them to a jungle camp",
	"pretend to read their stats out like a news anchor",
}

// Generator produces one short commentary line per event via a remote LLM.
// Any failure — disabled config, transport error, timeout, empty response —
// yields an empty string; the caller falls back to the static pools. Nothing
// escapes this component as an error.
//
// Generator is safe for concurrent use; generation for different events may
// be in flight simultaneously.
type Generator struct {
	settings func() GeneratorSettings
	breaker  *resilience.Breaker
	metrics  *observe.Metrics

	// factory builds a provider for the given settings. Overridable in tests.
	factory func(GeneratorSettings) (llm.Provider, error)

	mu        sync.Mutex
	cached    llm.Provider
	cachedKey GeneratorSettings
}

// GeneratorOption configures a [Generator].
type GeneratorOption func(*Generator)

// WithProviderFactory replaces the provider constructor. Used by tests to
// inject a mock provider.
func WithProviderFactory(f func(GeneratorSettings) (llm.Provider, error)) GeneratorOption {
	return func(g *Generator) {
		g.factory = f
	}
}

// WithGeneratorMetrics sets the metrics instance. Defaults to [observe.Default].
func WithGeneratorMetrics(m *observe.Metrics) GeneratorOption {
	return func(g *Generator) {
		g.metrics = m
	}
}

// NewGenerator creates a commentary generator reading live settings through
// the given accessor.
func NewGenerator(settings func() GeneratorSettings, opts ...GeneratorOption) *Generator {
	g := &Generator{
		settings: settings,
		breaker:  resilience.NewBreaker(resilience.BreakerConfig{Name: "llm"}),
		factory:  buildProvider,
	}
	for _, o := range opts {
		o(g)
	}
	if g.metrics == nil {
		g.metrics = observe.Default()
	}
	return g
}

// Generate produces a commentary line for ctx, or "" when generation is
// disabled or fails. The call is bounded by the configured timeout.
func (g *Generator) Generate(ctx context.Context, gc Context) string {
	s := g.settings()
	if s.disabled() {
		return ""
	}

	provider, err := g.provider(s)
	if err != nil {
		slog.Warn("generator: cannot build provider", "provider", s.Provider, "err", err)
		return ""
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var resp *llm.CompletionResponse
	err = g.breaker.Execute(func() error {
		var callErr error
		resp, callErr = provider.Complete(callCtx, buildRequest(gc))
		return callErr
	})
	g.metrics.GenerationDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		g.metrics.GenerationErrors.Add(ctx, 1)
		slog.Warn("generator: generation failed", "category", gc.Category, "err", err)
		return ""
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		g.metrics.GenerationErrors.Add(ctx, 1)
		slog.Warn("generator: empty response", "category", gc.Category)
		return ""
	}

	text := strings.TrimSpace(resp.Content)
	slog.Debug("generator: line generated",
		"category", gc.Category,
		"duration", time.Since(start).Round(time.Millisecond),
		"tokens", resp.Usage.TotalTokens,
	)
	return text
}

// provider returns a cached provider instance, rebuilding it when the
// settings that shape it have changed since the last call.
func (g *Generator) provider(s GeneratorSettings) (llm.Provider, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cached != nil && g.cachedKey == s {
		return g.cached, nil
	}
	p, err := g.factory(s)
	if err != nil {
		return nil, err
	}
	g.cached = p
	g.cachedKey = s
	return p, nil
}

// buildProvider constructs the real LLM provider for the settings.
// "openai" targets OpenAI-compatible endpoints directly; everything else
// goes through the any-llm bridge.
func buildProvider(s GeneratorSettings) (llm.Provider, error) {
	switch s.Provider {
	case "openai":
		opts := []openai.Option{openai.WithTimeout(s.Timeout)}
		if s.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(s.BaseURL))
		}
		return openai.New(s.APIKey, s.Model, opts...)
	default:
		var opts []anyllmlib.Option
		if s.APIKey != "" {
			opts = append(opts, anyllmlib.WithAPIKey(s.APIKey))
		}
		if s.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(s.BaseURL))
		}
		return anyllm.New(s.Provider, s.Model, opts...)
	}
}

// buildRequest assembles the instruction and context turn for one line.
func buildRequest(gc Context) llm.CompletionRequest {
	persona := personas[rand.IntN(len(personas))]

	var lang string
	if gc.Language == "zh" {
		lang = "Language: Chinese (Mandarin). Style: 阴阳怪气, 嘴臭, 很有创意."
	} else {
		lang = "Language: English (toxic gamer slang). Style: savage, creative, unhinged."
	}

	system := fmt.Sprintf(`You are a savage, toxic League of Legends coach. Creatively roast the player.
- VARY YOUR SCENARIOS. Never just say "you are bad".
- Use League-specific metaphors.
- STRICT LIMIT: keep the response under 50 words.
- NO HASHTAGS. NO EMOJIS. NO MARKDOWN.
- Theme: %s.
- %s`, persona, lang)

	user := fmt.Sprintf("Event: %s.\nStats: KDA %d/%d/%d, CS %d.\nTime: %.0fm.\nCtx: %s.\nRoast them now.",
		gc.Category, gc.Kills, gc.Deaths, gc.Assists, gc.CreepScore,
		gc.GameTime/60, detailOrDefault(gc.Detail))

	return llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: user}},
		// High creativity reduces repetition across identical inputs.
		Temperature: 1.3,
		MaxTokens:   120,
	}
}

func detailOrDefault(detail string) string {
	if detail == "" {
		return "played poorly"
	}
	return detail
}
