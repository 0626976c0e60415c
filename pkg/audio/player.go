// Package audio provides local audio playback for synthesized commentary.
//
// Playback shells out to an external command-line player (ffplay, mpg123,
// afplay, ...) rather than linking an audio stack: the synthesized clips are
// short MP3 files and every desktop platform ships at least one suitable
// player. The command is configurable; see [CommandPlayer].
package audio

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Player plays one audio file at a time. The speech queue guarantees that
// Play is never invoked concurrently, but implementations should still be
// safe for concurrent use.
type Player interface {
	// Play blocks until playback of the file at path completes or ctx is
	// cancelled. Cancellation terminates the playback process.
	Play(ctx context.Context, path string) error
}

// defaultCommands is tried in order when no player command is configured.
var defaultCommands = [][]string{
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"mpg123", "-q"},
	{"afplay"},
	{"play", "-q"},
}

// CommandPlayer implements Player by spawning an external playback process.
type CommandPlayer struct {
	command []string
}

// Compile-time interface assertion.
var _ Player = (*CommandPlayer)(nil)

// NewCommandPlayer creates a player that runs the given command with the file
// path appended as the final argument. When command is empty, the first
// player binary found on PATH from a small list of well-known ones is used.
func NewCommandPlayer(command []string) (*CommandPlayer, error) {
	if len(command) == 0 {
		found, err := detectCommand()
		if err != nil {
			return nil, err
		}
		command = found
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return nil, fmt.Errorf("audio: player binary %q not found: %w", command[0], err)
	}
	return &CommandPlayer{command: command}, nil
}

// Play implements Player.
func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	args := append(append([]string(nil), p.command[1:]...), path)
	cmd := exec.CommandContext(ctx, p.command[0], args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("audio: %s: %w", p.command[0], err)
	}
	return nil
}

// Command returns the resolved player command line, for logging.
func (p *CommandPlayer) Command() string {
	return strings.Join(p.command, " ")
}

// detectCommand returns the first default player whose binary is on PATH.
func detectCommand() ([]string, error) {
	for _, c := range defaultCommands {
		if _, err := exec.LookPath(c[0]); err == nil {
			return c, nil
		}
	}
	return nil, errors.New("audio: no playback binary found on PATH (tried ffplay, mpg123, afplay, play); set speech.player_command")
}
