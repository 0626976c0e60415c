// Package poller drives the pipeline's input side: it polls the local game
// client's live data HTTP endpoint at a fixed interval, detects game start
// and end transitions, and hands each parsed snapshot downstream.
package poller

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/riftcoach/riftcoach/internal/game"
)

// Settings is the polling configuration snapshot, re-read every tick so a
// config reload changes cadence without a restart.
type Settings struct {
	// BaseURL is the live client data root, e.g. "https://127.0.0.1:2999/liveclientdata".
	BaseURL string

	// Interval between polls.
	Interval time.Duration

	// RequestTimeout bounds a single poll request.
	RequestTimeout time.Duration
}

// Handler receives poller events. Callbacks run on the poller goroutine;
// they must not block for long or polls will slip.
type Handler struct {
	// GameStarted fires when a poll succeeds after a period of no game.
	GameStarted func()

	// GameEnded fires when polls start failing after a running game.
	GameEnded func()

	// Snapshot fires for every successfully parsed poll while in game.
	Snapshot func(ctx context.Context, snap *game.Snapshot)
}

// Poller polls the live client data endpoint until its context is cancelled.
type Poller struct {
	settings func() Settings
	handler  Handler
	client   *http.Client

	inGame bool
}

// New creates a Poller. The game client serves HTTPS with a self-signed
// certificate on loopback, so verification is disabled for this client only.
func New(settings func() Settings, handler Handler) *Poller {
	return &Poller{
		settings: settings,
		handler:  handler,
		client: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// Run polls until ctx is cancelled. If a game is running when cancellation
// arrives, GameEnded fires before Run returns.
func (p *Poller) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.transition(false)
			return
		case <-timer.C:
		}

		s := p.settings()
		p.tick(ctx, s)
		timer.Reset(s.Interval)
	}
}

// tick performs one poll. Any failure (client not running, mid-load 404,
// malformed body) counts as "no game"; distinguishing them is not useful.
func (p *Poller) tick(ctx context.Context, s Settings) {
	snap, err := p.fetch(ctx, s)
	if err != nil {
		if p.inGame {
			slog.Debug("poller: poll failed, assuming game over", "error", err)
		}
		p.transition(false)
		return
	}

	p.transition(true)
	if p.handler.Snapshot != nil {
		p.handler.Snapshot(ctx, snap)
	}
}

// fetch retrieves and parses one snapshot from the allgamedata endpoint.
func (p *Poller) fetch(ctx context.Context, s Settings) (*game.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.RequestTimeout)
	defer cancel()

	url := strings.TrimRight(s.BaseURL, "/") + "/allgamedata"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("poller: build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poller: poll %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("poller: poll %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("poller: read response: %w", err)
	}
	snap, err := game.ParseSnapshot(body)
	if err != nil {
		return nil, fmt.Errorf("poller: parse snapshot: %w", err)
	}
	return snap, nil
}

// transition updates the in-game flag and fires the edge callbacks.
func (p *Poller) transition(inGame bool) {
	if inGame == p.inGame {
		return
	}
	p.inGame = inGame
	if inGame {
		slog.Info("poller: game detected")
		if p.handler.GameStarted != nil {
			p.handler.GameStarted()
		}
	} else {
		slog.Info("poller: game ended")
		if p.handler.GameEnded != nil {
			p.handler.GameEnded()
		}
	}
}
