package game

import (
	"testing"
)

// snap builds a snapshot with the given local player keys and roster.
func snap(activeKeys []string, players []Player, events ...WorldEvent) *Snapshot {
	return &Snapshot{
		ActiveKeys: activeKeys,
		Players:    players,
		GameTime:   600,
		Events:     events,
	}
}

func roster(localDeaths, localKills int) []Player {
	return []Player{
		{SummonerName: "Hero", Team: "ORDER", Scores: Scores{Kills: localKills, Deaths: localDeaths, Assists: 1, CreepScore: 42}},
		{SummonerName: "Mate", Team: "ORDER"},
		{SummonerName: "Foe", Team: "CHAOS"},
	}
}

func TestObserve_FirstTickIsBaseline(t *testing.T) {
	t.Parallel()

	d := NewDiffer()
	events := d.Observe(snap([]string{"Hero"}, roster(3, 5)))
	if len(events) != 0 {
		t.Fatalf("baseline tick produced %d events, want 0", len(events))
	}
}

func TestObserve_NilSnapshot(t *testing.T) {
	t.Parallel()

	d := NewDiffer()
	if events := d.Observe(nil); events != nil {
		t.Fatalf("Observe(nil) = %v, want nil", events)
	}
}

func TestObserve_DeathIncrement(t *testing.T) {
	t.Parallel()

	d := NewDiffer()
	d.Observe(snap([]string{"Hero"}, roster(0, 0)))

	events := d.Observe(snap([]string{"Hero"}, roster(2, 0)))
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for i, ev := range events {
		if ev.Kind != KindDeath {
			t.Errorf("events[%d].Kind = %q, want %q", i, ev.Kind, KindDeath)
		}
		if ev.Subject != "Hero" {
			t.Errorf("events[%d].Subject = %q, want Hero", i, ev.Subject)
		}
		if ev.Stats.Deaths != 2 {
			t.Errorf("events[%d].Stats.Deaths = %d, want 2", i, ev.Stats.Deaths)
		}
	}
}

func TestObserve_DeathBeforeKillInSameTick(t *testing.T) {
	t.Parallel()

	d := NewDiffer()
	d.Observe(snap([]string{"Hero"}, roster(0, 0)))

	events := d.Observe(snap([]string{"Hero"}, roster(1, 1)))
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != KindDeath {
		t.Errorf("events[0].Kind = %q, want %q", events[0].Kind, KindDeath)
	}
	if events[1].Kind != KindKill {
		t.Errorf("events[1].Kind = %q, want %q", events[1].Kind, KindKill)
	}
}

func TestObserve_NoChangeNoEvents(t *testing.T) {
	t.Parallel()

	d := NewDiffer()
	d.Observe(snap([]string{"Hero"}, roster(1, 1)))
	if events := d.Observe(snap([]string{"Hero"}, roster(1, 1))); len(events) != 0 {
		t.Fatalf("got %d events for identical snapshots, want 0", len(events))
	}
}

func TestObserve_StatDecreaseIgnored(t *testing.T) {
	t.Parallel()

	// A feed reconnect can hand back stale counts; decrements never fire.
	d := NewDiffer()
	d.Observe(snap([]string{"Hero"}, roster(3, 3)))
	if events := d.Observe(snap([]string{"Hero"}, roster(1, 1))); len(events) != 0 {
		t.Fatalf("got %d events for decreased stats, want 0", len(events))
	}
}

func TestObserve_TeammateDeath(t *testing.T) {
	t.Parallel()

	before := []Player{
		{SummonerName: "Hero", Team: "ORDER"},
		{SummonerName: "Mate", Team: "ORDER", Scores: Scores{Deaths: 1}},
		{SummonerName: "Foe", Team: "CHAOS", Scores: Scores{Deaths: 4}},
	}
	after := []Player{
		{SummonerName: "Hero", Team: "ORDER"},
		{SummonerName: "Mate", Team: "ORDER", Scores: Scores{Deaths: 3}},
		{SummonerName: "Foe", Team: "CHAOS", Scores: Scores{Deaths: 9}},
	}

	d := NewDiffer()
	d.Observe(snap([]string{"Hero"}, before))
	events := d.Observe(snap([]string{"Hero"}, after))

	// Two teammate deaths; enemy deaths never count.
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for i, ev := range events {
		if ev.Kind != KindTeammateDeath {
			t.Errorf("events[%d].Kind = %q, want %q", i, ev.Kind, KindTeammateDeath)
		}
		if ev.Subject != "Mate" {
			t.Errorf("events[%d].Subject = %q, want Mate", i, ev.Subject)
		}
	}
}

func TestObserve_LocalDeathNotTeammateDeath(t *testing.T) {
	t.Parallel()

	d := NewDiffer()
	d.Observe(snap([]string{"Hero"}, roster(0, 0)))
	events := d.Observe(snap([]string{"Hero"}, roster(1, 0)))

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Kind != KindDeath {
		t.Errorf("Kind = %q, want %q", events[0].Kind, KindDeath)
	}
}

func TestObserve_WorldEventsAtBaselineConsumed(t *testing.T) {
	t.Parallel()

	old := WorldEvent{ID: 7, Name: "DragonKill", KillerName: "Foe"}
	d := NewDiffer()
	d.Observe(snap([]string{"Hero"}, roster(0, 0), old))

	// Re-delivered history plus one genuinely new event.
	fresh := WorldEvent{ID: 9, Name: "BaronKill", KillerName: "Hero"}
	events := d.Observe(snap([]string{"Hero"}, roster(0, 0), old, fresh))

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Objective != ObjectiveBaron {
		t.Errorf("Objective = %q, want %q", events[0].Objective, ObjectiveBaron)
	}
}

func TestObserve_WorldEventDedupAcrossTicks(t *testing.T) {
	t.Parallel()

	d := NewDiffer()
	d.Observe(snap([]string{"Hero"}, roster(0, 0)))

	ev := WorldEvent{ID: 3, Name: "TurretKilled", KillerName: "Hero"}
	first := d.Observe(snap([]string{"Hero"}, roster(0, 0), ev))
	if len(first) != 1 {
		t.Fatalf("first delivery: got %d events, want 1", len(first))
	}

	// The feed re-delivers the full history; the identifier must not re-fire.
	for i := 0; i < 3; i++ {
		if events := d.Observe(snap([]string{"Hero"}, roster(0, 0), ev)); len(events) != 0 {
			t.Fatalf("re-delivery %d: got %d events, want 0", i, len(events))
		}
	}
}

func TestObserve_SynthesizedIdentifier(t *testing.T) {
	t.Parallel()

	// Events without an upstream ID dedup on name+time.
	ev := WorldEvent{Name: "DragonKill", Time: 734.5, KillerName: "Foe"}
	d := NewDiffer()
	d.Observe(snap([]string{"Hero"}, roster(0, 0)))

	first := d.Observe(snap([]string{"Hero"}, roster(0, 0), ev))
	if len(first) != 1 {
		t.Fatalf("got %d events, want 1", len(first))
	}
	if events := d.Observe(snap([]string{"Hero"}, roster(0, 0), ev)); len(events) != 0 {
		t.Fatalf("synthesized identifier re-fired: got %d events", len(events))
	}
}

func TestObserve_UnknownEventNameIgnored(t *testing.T) {
	t.Parallel()

	d := NewDiffer()
	d.Observe(snap([]string{"Hero"}, roster(0, 0)))
	events := d.Observe(snap([]string{"Hero"}, roster(0, 0),
		WorldEvent{ID: 1, Name: "FirstBlood"},
		WorldEvent{ID: 2, Name: "Ace"},
	))
	if len(events) != 0 {
		t.Fatalf("got %d events for unknown names, want 0", len(events))
	}
}

func TestObserve_ObjectiveAttribution(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		killer string
		myTeam bool
	}{
		{"own team", "Hero", true},
		{"teammate", "Mate", true},
		{"enemy", "Foe", false},
		{"unresolvable defaults to mine", "Minion_T200", true},
		{"empty killer defaults to mine", "", true},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			d := NewDiffer()
			d.Observe(snap([]string{"Hero"}, roster(0, 0)))
			events := d.Observe(snap([]string{"Hero"}, roster(0, 0),
				WorldEvent{ID: 100 + i, Name: "DragonKill", KillerName: tc.killer}))
			if len(events) != 1 {
				t.Fatalf("got %d events, want 1", len(events))
			}
			if events[0].MyTeam != tc.myTeam {
				t.Errorf("MyTeam = %v, want %v", events[0].MyTeam, tc.myTeam)
			}
		})
	}
}

func TestObserve_MissingLocalPlayerStillAdvances(t *testing.T) {
	t.Parallel()

	d := NewDiffer()
	d.Observe(snap([]string{"Hero"}, roster(0, 0)))

	// Local player briefly missing from the roster: no stat events, but the
	// snapshot still becomes the new baseline.
	orphan := []Player{{SummonerName: "Foe", Team: "CHAOS"}}
	if events := d.Observe(snap([]string{"Hero"}, orphan)); len(events) != 0 {
		t.Fatalf("got %d events with missing local player, want 0", len(events))
	}

	// Once back, stats diff against the orphan snapshot (zero values), so the
	// accumulated deaths all fire now.
	events := d.Observe(snap([]string{"Hero"}, roster(1, 0)))
	if len(events) != 1 {
		t.Fatalf("got %d events after recovery, want 1", len(events))
	}
	if events[0].Kind != KindDeath {
		t.Errorf("Kind = %q, want %q", events[0].Kind, KindDeath)
	}
}

func TestObserve_RiotIDFallbackResolution(t *testing.T) {
	t.Parallel()

	players := func(deaths int) []Player {
		return []Player{
			{RiotID: "Hero#EUW", Team: "ORDER", Scores: Scores{Deaths: deaths}},
			{SummonerName: "Foe", Team: "CHAOS"},
		}
	}

	d := NewDiffer()
	d.Observe(snap([]string{"Hero#EUW"}, players(0)))
	events := d.Observe(snap([]string{"Hero#EUW"}, players(1)))

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Subject != "Hero#EUW" {
		t.Errorf("Subject = %q, want Hero#EUW", events[0].Subject)
	}
}
