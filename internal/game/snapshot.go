// Package game models live-game snapshots and derives discrete domain events
// from consecutive ones.
//
// The snapshot schema mirrors the subset of the Riot Live Client Data API
// (/liveclientdata/allgamedata) the diff engine needs. Parsing is tolerant:
// missing substructures decode to zero values so a partial payload degrades
// to "no events this tick" instead of failing the poll loop.
package game

import (
	"encoding/json"
	"fmt"
)

// Scores is a player's running stat line.
type Scores struct {
	Kills      int `json:"kills"`
	Deaths     int `json:"deaths"`
	Assists    int `json:"assists"`
	CreepScore int `json:"creepScore"`
}

// Player is one roster entry with the identity keys the upstream API may
// populate. SummonerName is the primary key; RiotID and RiotIDGameName are
// accepted as fallbacks, in that order.
type Player struct {
	SummonerName   string `json:"summonerName"`
	RiotID         string `json:"riotId"`
	RiotIDGameName string `json:"riotIdGameName"`
	Team           string `json:"team"`
	Scores         Scores `json:"scores"`
}

// identityKeys returns the player's non-empty identity keys in resolution order.
func (p *Player) identityKeys() []string {
	keys := make([]string, 0, 3)
	for _, k := range []string{p.SummonerName, p.RiotID, p.RiotIDGameName} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// matches reports whether any of the player's identity keys equals name.
func (p *Player) matches(name string) bool {
	return name != "" &&
		(p.SummonerName == name || p.RiotID == name || p.RiotIDGameName == name)
}

// WorldEvent is one discrete event from the upstream event feed. The feed
// re-delivers the full event history on every poll, so consumers must dedup
// by identifier.
type WorldEvent struct {
	ID         int     `json:"EventID"`
	Name       string  `json:"EventName"`
	Time       float64 `json:"EventTime"`
	KillerName string  `json:"KillerName"`
}

// Identifier returns the event's dedup key. When the upstream ID is missing
// (zero), one is synthesized from the event name and timestamp.
func (e *WorldEvent) Identifier() string {
	if e.ID != 0 {
		return fmt.Sprintf("%d", e.ID)
	}
	return fmt.Sprintf("%s_%g", e.Name, e.Time)
}

// Snapshot is one polled, immutable record of the live game's state.
type Snapshot struct {
	// ActiveKeys holds the local player's identity keys in resolution order.
	ActiveKeys []string

	// Players is the full roster with current stat lines.
	Players []Player

	// GameTime is the elapsed game time in seconds.
	GameTime float64

	// Events is the cumulative world-event feed as of this snapshot.
	Events []WorldEvent
}

// rawSnapshot mirrors the upstream /allgamedata JSON document.
type rawSnapshot struct {
	ActivePlayer struct {
		SummonerName   string `json:"summonerName"`
		RiotID         string `json:"riotId"`
		RiotIDGameName string `json:"riotIdGameName"`
	} `json:"activePlayer"`
	AllPlayers []Player `json:"allPlayers"`
	Events     struct {
		Events []WorldEvent `json:"Events"`
	} `json:"events"`
	GameData struct {
		GameTime float64 `json:"gameTime"`
	} `json:"gameData"`
}

// ParseSnapshot normalizes a raw /allgamedata payload into a [Snapshot].
// Only malformed JSON is an error; absent substructures are fine.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var raw rawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("game: parse snapshot: %w", err)
	}

	active := Player{
		SummonerName:   raw.ActivePlayer.SummonerName,
		RiotID:         raw.ActivePlayer.RiotID,
		RiotIDGameName: raw.ActivePlayer.RiotIDGameName,
	}
	return &Snapshot{
		ActiveKeys: active.identityKeys(),
		Players:    raw.AllPlayers,
		GameTime:   raw.GameData.GameTime,
		Events:     raw.Events.Events,
	}, nil
}

// FindPlayer resolves name against the roster using the identity-key order.
// Returns nil when the name matches nobody.
func (s *Snapshot) FindPlayer(name string) *Player {
	for i := range s.Players {
		if s.Players[i].matches(name) {
			return &s.Players[i]
		}
	}
	return nil
}

// localPlayer resolves the active player's roster entry, trying each identity
// key in order so resolution is deterministic.
func (s *Snapshot) localPlayer() *Player {
	for _, key := range s.ActiveKeys {
		if p := s.FindPlayer(key); p != nil {
			return p
		}
	}
	return nil
}

// LocalTeam returns the local player's team, or "" when unresolved.
func (s *Snapshot) LocalTeam() string {
	if p := s.localPlayer(); p != nil {
		return p.Team
	}
	return ""
}

// LocalScores returns the local player's stat line, or zero values when the
// player cannot be resolved.
func (s *Snapshot) LocalScores() Scores {
	if p := s.localPlayer(); p != nil {
		return p.Scores
	}
	return Scores{}
}
