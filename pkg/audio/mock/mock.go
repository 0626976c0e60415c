// Package mock provides a test double for the audio.Player interface.
//
// Player records concurrency and ordering of Play calls so tests can assert
// the speech queue's single-flight discipline.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/riftcoach/riftcoach/pkg/audio"
)

// Player is a mock implementation of audio.Player. Safe for concurrent use.
type Player struct {
	mu sync.Mutex

	// PlayDelay simulates playback duration. Zero returns immediately.
	PlayDelay time.Duration

	// Err, if non-nil, is returned from every Play call.
	Err error

	// Paths records the file paths passed to Play, in call order.
	Paths []string

	// active tracks how many Play calls are currently in flight.
	active int

	// MaxActive is the highest number of concurrent Play calls observed.
	MaxActive int
}

// Compile-time interface assertion.
var _ audio.Player = (*Player)(nil)

// Play implements audio.Player.
func (p *Player) Play(ctx context.Context, path string) error {
	p.mu.Lock()
	p.Paths = append(p.Paths, path)
	p.active++
	if p.active > p.MaxActive {
		p.MaxActive = p.active
	}
	delay, err := p.PlayDelay, p.Err
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Played returns a copy of the recorded playback paths.
func (p *Player) Played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Paths))
	copy(out, p.Paths)
	return out
}

// Concurrency returns the maximum observed number of concurrent Play calls.
func (p *Player) Concurrency() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.MaxActive
}
