package game

import "testing"

const sampleAllGameData = `{
	"activePlayer": {"summonerName": "Hero", "riotId": "Hero#EUW"},
	"allPlayers": [
		{"summonerName": "Hero", "riotId": "Hero#EUW", "team": "ORDER",
		 "scores": {"kills": 2, "deaths": 1, "assists": 3, "creepScore": 87}},
		{"summonerName": "Foe", "team": "CHAOS",
		 "scores": {"kills": 1, "deaths": 2, "assists": 0, "creepScore": 64}}
	],
	"events": {"Events": [
		{"EventID": 0, "EventName": "GameStart", "EventTime": 0},
		{"EventID": 4, "EventName": "DragonKill", "EventTime": 512.3, "KillerName": "Foe"}
	]},
	"gameData": {"gameTime": 613.7}
}`

func TestParseSnapshot(t *testing.T) {
	t.Parallel()

	snap, err := ParseSnapshot([]byte(sampleAllGameData))
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}

	if len(snap.ActiveKeys) != 2 || snap.ActiveKeys[0] != "Hero" {
		t.Errorf("ActiveKeys = %v, want [Hero Hero#EUW]", snap.ActiveKeys)
	}
	if len(snap.Players) != 2 {
		t.Fatalf("len(Players) = %d, want 2", len(snap.Players))
	}
	if snap.GameTime != 613.7 {
		t.Errorf("GameTime = %g, want 613.7", snap.GameTime)
	}
	if len(snap.Events) != 2 {
		t.Fatalf("len(Events) = %d, want 2", len(snap.Events))
	}
	if snap.Events[1].KillerName != "Foe" {
		t.Errorf("Events[1].KillerName = %q, want Foe", snap.Events[1].KillerName)
	}
}

func TestParseSnapshot_PartialPayload(t *testing.T) {
	t.Parallel()

	// Mid-loading the client serves a skeleton document.
	snap, err := ParseSnapshot([]byte(`{"gameData": {"gameTime": 3}}`))
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}
	if len(snap.Players) != 0 || len(snap.Events) != 0 {
		t.Errorf("partial payload: Players=%d Events=%d, want 0/0", len(snap.Players), len(snap.Events))
	}
}

func TestParseSnapshot_MalformedJSON(t *testing.T) {
	t.Parallel()

	if _, err := ParseSnapshot([]byte(`{"allPlayers": [`)); err == nil {
		t.Fatal("ParseSnapshot accepted malformed JSON")
	}
}

func TestSnapshot_LocalResolution(t *testing.T) {
	t.Parallel()

	snap, err := ParseSnapshot([]byte(sampleAllGameData))
	if err != nil {
		t.Fatalf("ParseSnapshot: %v", err)
	}

	if team := snap.LocalTeam(); team != "ORDER" {
		t.Errorf("LocalTeam() = %q, want ORDER", team)
	}
	scores := snap.LocalScores()
	if scores.Kills != 2 || scores.CreepScore != 87 {
		t.Errorf("LocalScores() = %+v, want Kills=2 CreepScore=87", scores)
	}
}

func TestSnapshot_LocalResolutionMissing(t *testing.T) {
	t.Parallel()

	snap := &Snapshot{ActiveKeys: []string{"Nobody"}}
	if team := snap.LocalTeam(); team != "" {
		t.Errorf("LocalTeam() = %q, want empty", team)
	}
	if scores := snap.LocalScores(); scores != (Scores{}) {
		t.Errorf("LocalScores() = %+v, want zero", scores)
	}
}

func TestWorldEvent_Identifier(t *testing.T) {
	t.Parallel()

	withID := WorldEvent{ID: 12, Name: "DragonKill", Time: 512.3}
	if got := withID.Identifier(); got != "12" {
		t.Errorf("Identifier() = %q, want 12", got)
	}

	noID := WorldEvent{Name: "DragonKill", Time: 512.3}
	if got := noID.Identifier(); got != "DragonKill_512.3" {
		t.Errorf("Identifier() = %q, want DragonKill_512.3", got)
	}
}
