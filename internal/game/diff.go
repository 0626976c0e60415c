package game

import (
	"log/slog"
	"strings"
)

// Kind discriminates the domain event variants.
type Kind string

const (
	// KindDeath is a local-player death.
	KindDeath Kind = "death"

	// KindKill is a local-player kill.
	KindKill Kind = "kill"

	// KindTeammateDeath is a death of a teammate other than the local player.
	KindTeammateDeath Kind = "teammate_death"

	// KindObjective is a map objective takedown (turret, dragon, ...).
	KindObjective Kind = "objective"
)

// ObjectiveKind names the map objective involved in a [KindObjective] event.
type ObjectiveKind string

const (
	ObjectiveTurret    ObjectiveKind = "turret"
	ObjectiveInhibitor ObjectiveKind = "inhibitor"
	ObjectiveDragon    ObjectiveKind = "dragon"
	ObjectiveBaron     ObjectiveKind = "baron"
	ObjectiveHerald    ObjectiveKind = "herald"
)

// objectiveNames maps upstream event names to objective kinds. Names not in
// this table are ignored by the diff engine.
var objectiveNames = map[string]ObjectiveKind{
	"TurretKilled": ObjectiveTurret,
	"InhibKilled":  ObjectiveInhibitor,
	"DragonKill":   ObjectiveDragon,
	"BaronKill":    ObjectiveBaron,
	"HeraldKill":   ObjectiveHerald,
}

// Event is one discrete domain event derived by diffing two snapshots.
// Exactly the fields relevant to the Kind are populated.
type Event struct {
	Kind Kind

	// Subject names who the event happened to (the local player for
	// Death/Kill, the teammate for TeammateDeath).
	Subject string

	// Stats is the subject's stat line after the event (Death/Kill only).
	Stats Scores

	// Objective is the objective kind (KindObjective only).
	Objective ObjectiveKind

	// TakenBy names the credited actor of an objective, when known.
	TakenBy string

	// MyTeam reports whether the objective is credited to the local player's
	// team. Unresolvable attribution defaults to true — see [Differ].
	MyTeam bool
}

// Differ is the stateful diff engine. It owns exactly one previous snapshot
// and the set of consumed world-event identifiers; no other component may
// mutate either. Differ is not safe for concurrent use — the poll loop is the
// single caller.
//
// The identifier set grows for the lifetime of the Differ. The upstream feed
// re-delivers the full event history on every poll, so time-windowed eviction
// would re-fire old events; a fresh Differ per detected game bounds the set
// to one match's worth of identifiers.
//
// Objective team attribution falls back to the local player's team when the
// credited actor cannot be resolved in the roster. The bias is deliberate:
// mislabeling an enemy objective as ours is less jarring than blaming the
// player for an objective their team took.
type Differ struct {
	prev          *Snapshot
	seen          map[string]struct{}
	warnedNoStats bool
}

// NewDiffer creates a diff engine with no baseline.
func NewDiffer() *Differ {
	return &Differ{seen: make(map[string]struct{})}
}

// Observe diffs snap against the previous snapshot and returns the domain
// events that occurred in between, in detection order: local deaths, local
// kills, teammate deaths, then world events. The first call establishes the
// baseline and returns nil; world events already present at baseline are
// consumed silently so joining a running game does not replay its history.
//
// snap becomes the new previous snapshot unconditionally.
func (d *Differ) Observe(snap *Snapshot) []Event {
	if snap == nil {
		return nil
	}
	if d.prev == nil {
		d.prev = snap
		for i := range snap.Events {
			d.seen[snap.Events[i].Identifier()] = struct{}{}
		}
		return nil
	}

	prev := d.prev
	d.prev = snap

	var events []Event
	events = append(events, d.localStatEvents(prev, snap)...)
	events = append(events, d.teammateEvents(prev, snap)...)
	events = append(events, d.worldEvents(snap)...)
	return events
}

// localStatEvents emits one Death per local death increment and one Kill per
// kill increment. A multi-death tick therefore yields multiple events.
func (d *Differ) localStatEvents(prev, snap *Snapshot) []Event {
	name, oldP, newP := resolveLocal(prev, snap)
	if oldP == nil || newP == nil {
		if !d.warnedNoStats {
			d.warnedNoStats = true
			slog.Warn("diff: local player not found in roster",
				"keys", strings.Join(snap.ActiveKeys, ","),
				"roster_size", len(snap.Players),
			)
		}
		return nil
	}

	var events []Event
	for i := oldP.Scores.Deaths; i < newP.Scores.Deaths; i++ {
		events = append(events, Event{Kind: KindDeath, Subject: name, Stats: newP.Scores})
	}
	for i := oldP.Scores.Kills; i < newP.Scores.Kills; i++ {
		events = append(events, Event{Kind: KindKill, Subject: name, Stats: newP.Scores})
	}
	return events
}

// teammateEvents emits one TeammateDeath per death increment for every
// teammate of the local player.
func (d *Differ) teammateEvents(prev, snap *Snapshot) []Event {
	name, _, local := resolveLocal(prev, snap)
	if local == nil {
		return nil
	}

	var events []Event
	for i := range snap.Players {
		mate := &snap.Players[i]
		if mate.Team != local.Team || mate.matches(name) {
			continue
		}
		before := findByKeys(prev, mate.identityKeys())
		if before == nil {
			continue
		}
		for n := before.Scores.Deaths; n < mate.Scores.Deaths; n++ {
			events = append(events, Event{Kind: KindTeammateDeath, Subject: displayName(mate)})
		}
	}
	return events
}

// worldEvents classifies unconsumed world events into objective events.
// Every identifier is marked consumed whether or not its name is recognised,
// so a later rename in the feed cannot replay old entries.
func (d *Differ) worldEvents(snap *Snapshot) []Event {
	var events []Event
	for i := range snap.Events {
		we := &snap.Events[i]
		id := we.Identifier()
		if _, dup := d.seen[id]; dup {
			continue
		}
		d.seen[id] = struct{}{}

		kind, ok := objectiveNames[we.Name]
		if !ok {
			continue
		}

		mine := true
		myTeam := snap.LocalTeam()
		if killer := snap.FindPlayer(we.KillerName); killer != nil && myTeam != "" {
			mine = killer.Team == myTeam
		}

		events = append(events, Event{
			Kind:      KindObjective,
			Objective: kind,
			TakenBy:   we.KillerName,
			MyTeam:    mine,
		})
	}
	return events
}

// resolveLocal finds the local player's roster entry on both sides of the
// diff, trying the identity keys in their fixed order. Returns the key that
// matched the current snapshot alongside both entries; either entry may be
// nil when resolution fails on that side.
func resolveLocal(prev, snap *Snapshot) (name string, before, after *Player) {
	for _, key := range snap.ActiveKeys {
		if p := snap.FindPlayer(key); p != nil {
			return key, prev.FindPlayer(key), p
		}
	}
	return "", nil, nil
}

// findByKeys resolves a roster entry by any of the given identity keys.
func findByKeys(s *Snapshot, keys []string) *Player {
	for _, key := range keys {
		if p := s.FindPlayer(key); p != nil {
			return p
		}
	}
	return nil
}

// displayName returns the best human-readable name for a player.
func displayName(p *Player) string {
	for _, k := range []string{p.SummonerName, p.RiotIDGameName, p.RiotID} {
		if k != "" {
			return k
		}
	}
	return "teammate"
}
