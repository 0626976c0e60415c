package coach

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/riftcoach/riftcoach/internal/game"
	"github.com/riftcoach/riftcoach/pkg/provider/llm"
	llmmock "github.com/riftcoach/riftcoach/pkg/provider/llm/mock"
)

// captureSpeaker records spoken lines.
type captureSpeaker struct {
	mu    sync.Mutex
	lines []string
}

func (s *captureSpeaker) Speak(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

func (s *captureSpeaker) spoken() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

func defaultSettings() Settings {
	return Settings{
		Enabled:            true,
		Language:           "en",
		TeammateSampleRate: 0.3,
	}
}

// disabledGenerator always yields empty lines, forcing pool fallback.
func disabledGenerator() *Generator {
	return NewGenerator(func() GeneratorSettings { return GeneratorSettings{} })
}

// capturingGenerator records requests via a mock provider and answers "line".
func capturingGenerator() (*Generator, *llmmock.Provider) {
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "line"}}
	g := NewGenerator(
		func() GeneratorSettings {
			return GeneratorSettings{Enabled: true, Provider: "openai", APIKey: "k", Model: "m", Timeout: time.Second}
		},
		WithProviderFactory(func(GeneratorSettings) (llm.Provider, error) { return p, nil }),
	)
	return g, p
}

func coachSnap(deaths, kills int, events ...game.WorldEvent) *game.Snapshot {
	return &game.Snapshot{
		ActiveKeys: []string{"Hero"},
		GameTime:   600,
		Players: []game.Player{
			{SummonerName: "Hero", Team: "ORDER", Scores: game.Scores{Kills: kills, Deaths: deaths, CreepScore: 50}},
			{SummonerName: "Mate", Team: "ORDER"},
			{SummonerName: "Foe", Team: "CHAOS"},
		},
		Events: events,
	}
}

func TestHandleSnapshot_Disabled(t *testing.T) {
	t.Parallel()

	spk := &captureSpeaker{}
	settings := Settings{Enabled: false}
	c := New(func() Settings { return settings }, disabledGenerator(), spk)

	c.HandleSnapshot(context.Background(), coachSnap(0, 0))
	c.HandleSnapshot(context.Background(), coachSnap(5, 5))
	c.Close()

	if lines := spk.spoken(); len(lines) != 0 {
		t.Fatalf("disabled coach spoke %d lines, want 0", len(lines))
	}
}

func TestHandleSnapshot_DeathFallsBackToPool(t *testing.T) {
	t.Parallel()

	spk := &captureSpeaker{}
	s := defaultSettings()
	c := New(func() Settings { return s }, disabledGenerator(), spk)

	c.HandleSnapshot(context.Background(), coachSnap(0, 0))
	c.HandleSnapshot(context.Background(), coachSnap(1, 0))
	c.Close()

	lines := spk.spoken()
	if len(lines) != 1 {
		t.Fatalf("spoke %d lines, want 1", len(lines))
	}
	found := false
	for _, pool := range linePools["en"][CategoryDeath] {
		if lines[0] == pool {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("spoken line %q is not from the death pool", lines[0])
	}
}

func TestHandleSnapshot_CategoryMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		before   *game.Snapshot
		after    *game.Snapshot
		category Category
	}{
		{"death", coachSnap(0, 0), coachSnap(1, 0), CategoryDeath},
		{"kill", coachSnap(0, 0), coachSnap(0, 1), CategoryKill},
		{
			"objective taken",
			coachSnap(0, 0),
			coachSnap(0, 0, game.WorldEvent{ID: 1, Name: "DragonKill", KillerName: "Mate"}),
			CategoryObjectiveTaken,
		},
		{
			"objective lost",
			coachSnap(0, 0),
			coachSnap(0, 0, game.WorldEvent{ID: 2, Name: "BaronKill", KillerName: "Foe"}),
			CategoryObjectiveLost,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			spk := &captureSpeaker{}
			gen, provider := capturingGenerator()
			s := defaultSettings()
			c := New(func() Settings { return s }, gen, spk)

			c.HandleSnapshot(context.Background(), tc.before)
			c.HandleSnapshot(context.Background(), tc.after)
			c.Close()

			calls := provider.Calls()
			if len(calls) != 1 {
				t.Fatalf("generator called %d times, want 1", len(calls))
			}
			want := "Event: " + string(tc.category)
			if got := calls[0].Req.Messages[0].Content; !strings.Contains(got, want) {
				t.Errorf("request missing %q:\n%s", want, got)
			}
			if lines := spk.spoken(); len(lines) != 1 || lines[0] != "line" {
				t.Errorf("spoken = %v, want [line]", lines)
			}
		})
	}
}

func TestHandleSnapshot_TeammateDeathSampling(t *testing.T) {
	t.Parallel()

	mateDeath := func(deaths int) *game.Snapshot {
		return &game.Snapshot{
			ActiveKeys: []string{"Hero"},
			GameTime:   600,
			Players: []game.Player{
				{SummonerName: "Hero", Team: "ORDER"},
				{SummonerName: "Mate", Team: "ORDER", Scores: game.Scores{Deaths: deaths}},
			},
		}
	}

	cases := []struct {
		name   string
		sample float64
		want   int
	}{
		{"below rate dispatches", 0.0, 1},
		{"at rate drops", 0.3, 0},
		{"above rate drops", 0.9, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			spk := &captureSpeaker{}
			s := defaultSettings()
			c := New(func() Settings { return s }, disabledGenerator(), spk,
				WithSampler(func() float64 { return tc.sample }))

			c.HandleSnapshot(context.Background(), mateDeath(0))
			c.HandleSnapshot(context.Background(), mateDeath(1))
			c.Close()

			if lines := spk.spoken(); len(lines) != tc.want {
				t.Fatalf("spoke %d lines at sample %g, want %d", len(lines), tc.sample, tc.want)
			}
		})
	}
}

func TestHandleSnapshot_CreepPace(t *testing.T) {
	t.Parallel()

	paceSnap := func(gameTime float64, cs int) *game.Snapshot {
		return &game.Snapshot{
			ActiveKeys: []string{"Hero"},
			GameTime:   gameTime,
			Players: []game.Player{
				{SummonerName: "Hero", Team: "ORDER", Scores: game.Scores{CreepScore: cs}},
			},
		}
	}

	t.Run("below floor fires once per window", func(t *testing.T) {
		t.Parallel()

		spk := &captureSpeaker{}
		s := defaultSettings()
		s.CreepCheckInterval = 3 * time.Minute
		s.CreepPaceFloor = 4.0
		c := New(func() Settings { return s }, disabledGenerator(), spk)

		// 10 minutes in with 10 CS: pace 1.0.
		c.HandleSnapshot(context.Background(), paceSnap(600, 10))
		// Same window: no second line.
		c.HandleSnapshot(context.Background(), paceSnap(610, 11))
		c.Close()

		if lines := spk.spoken(); len(lines) != 1 {
			t.Fatalf("spoke %d lines, want 1", len(lines))
		}
	})

	t.Run("healthy pace stays silent", func(t *testing.T) {
		t.Parallel()

		spk := &captureSpeaker{}
		s := defaultSettings()
		s.CreepCheckInterval = 3 * time.Minute
		s.CreepPaceFloor = 4.0
		c := New(func() Settings { return s }, disabledGenerator(), spk)

		// 10 minutes in with 80 CS: pace 8.0.
		c.HandleSnapshot(context.Background(), paceSnap(600, 80))
		c.Close()

		if lines := spk.spoken(); len(lines) != 0 {
			t.Fatalf("spoke %d lines for healthy pace, want 0", len(lines))
		}
	})

	t.Run("zero interval disables check", func(t *testing.T) {
		t.Parallel()

		spk := &captureSpeaker{}
		s := defaultSettings()
		c := New(func() Settings { return s }, disabledGenerator(), spk)

		c.HandleSnapshot(context.Background(), paceSnap(600, 0))
		c.Close()

		if lines := spk.spoken(); len(lines) != 0 {
			t.Fatalf("spoke %d lines with check disabled, want 0", len(lines))
		}
	})
}

func TestReset_ClearsBaseline(t *testing.T) {
	t.Parallel()

	spk := &captureSpeaker{}
	s := defaultSettings()
	c := New(func() Settings { return s }, disabledGenerator(), spk)

	c.HandleSnapshot(context.Background(), coachSnap(0, 0))
	c.Reset()

	// After a reset the next snapshot is a baseline again: the death that
	// would have been an increment is silent.
	c.HandleSnapshot(context.Background(), coachSnap(1, 0))
	c.Close()

	if lines := spk.spoken(); len(lines) != 0 {
		t.Fatalf("spoke %d lines right after reset, want 0", len(lines))
	}
}

func TestTrigger(t *testing.T) {
	t.Parallel()

	spk := &captureSpeaker{}
	s := defaultSettings()
	c := New(func() Settings { return s }, disabledGenerator(), spk)

	if err := c.Trigger(context.Background(), CategoryKill); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	c.Close()

	if lines := spk.spoken(); len(lines) != 1 {
		t.Fatalf("spoke %d lines, want 1", len(lines))
	}

	if err := c.Trigger(context.Background(), Category("WAT")); err == nil {
		t.Fatal("Trigger accepted an unknown category")
	}
}
