package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewCommandPlayer_UnknownBinary(t *testing.T) {
	t.Parallel()

	if _, err := NewCommandPlayer([]string{"definitely-not-a-player-binary"}); err == nil {
		t.Fatal("NewCommandPlayer accepted a missing binary")
	}
}

func TestCommandPlayer_Play(t *testing.T) {
	t.Parallel()

	// "true" ignores its arguments and exits 0, standing in for a player.
	p, err := NewCommandPlayer([]string{"true"})
	if err != nil {
		t.Skipf("true not on PATH: %v", err)
	}
	if err := p.Play(context.Background(), "/tmp/whatever.mp3"); err != nil {
		t.Fatalf("Play: %v", err)
	}
}

func TestCommandPlayer_PlayFailure(t *testing.T) {
	t.Parallel()

	p, err := NewCommandPlayer([]string{"false"})
	if err != nil {
		t.Skipf("false not on PATH: %v", err)
	}
	if err := p.Play(context.Background(), "/tmp/whatever.mp3"); err == nil {
		t.Fatal("Play ignored a non-zero exit")
	}
}

func TestCommandPlayer_Cancellation(t *testing.T) {
	t.Parallel()

	p, err := NewCommandPlayer([]string{"sleep"})
	if err != nil {
		t.Skipf("sleep not on PATH: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// The appended "path" argument doubles as the sleep duration.
	start := time.Now()
	err = p.Play(ctx, "30")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Play = %v, want context.DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cancellation took %v, playback process not killed", elapsed)
	}
}

func TestCommandPlayer_Command(t *testing.T) {
	t.Parallel()

	p, err := NewCommandPlayer([]string{"true", "-q"})
	if err != nil {
		t.Skipf("true not on PATH: %v", err)
	}
	if got := p.Command(); got != "true -q" {
		t.Errorf("Command() = %q, want true -q", got)
	}
}
