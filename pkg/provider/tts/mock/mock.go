// Package mock provides a test double for the tts.Synthesizer interface.
//
// Use Synthesizer to feed controlled audio bytes to the speech queue and to
// count synthesis calls (e.g., to assert a cache hit performed zero calls).
//
// Example:
//
//	s := &mock.Synthesizer{Audio: []byte("mp3-bytes")}
//	data, err := s.Synthesize(ctx, "hello", tts.Voice{ID: "v1"})
package mock

import (
	"context"
	"sync"

	"github.com/riftcoach/riftcoach/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Text is the utterance passed to Synthesize.
	Text string
	// Voice is the Voice passed to Synthesize.
	Voice tts.Voice
}

// Synthesizer is a mock implementation of tts.Synthesizer.
// Safe for concurrent use.
type Synthesizer struct {
	mu sync.Mutex

	// ProviderName is returned by Name. Defaults to "mock" when empty.
	ProviderName string

	// Audio is returned by Synthesize on success.
	Audio []byte

	// Err, if non-nil, is returned as the error from Synthesize.
	Err error

	// MeteredResult is returned by Metered.
	MeteredResult bool

	// SynthesizeFunc, if non-nil, overrides the canned behaviour entirely.
	SynthesizeFunc func(ctx context.Context, text string, voice tts.Voice) ([]byte, error)

	// SynthesizeCalls records every invocation of Synthesize.
	SynthesizeCalls []SynthesizeCall
}

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// Name implements tts.Synthesizer.
func (s *Synthesizer) Name() string {
	if s.ProviderName == "" {
		return "mock"
	}
	return s.ProviderName
}

// Metered implements tts.Synthesizer.
func (s *Synthesizer) Metered() bool { return s.MeteredResult }

// Synthesize implements tts.Synthesizer.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice tts.Voice) ([]byte, error) {
	s.mu.Lock()
	s.SynthesizeCalls = append(s.SynthesizeCalls, SynthesizeCall{Text: text, Voice: voice})
	fn := s.SynthesizeFunc
	audio, err := s.Audio, s.Err
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, text, voice)
	}
	if err != nil {
		return nil, err
	}
	return audio, nil
}

// CallCount returns how many times Synthesize has been invoked.
func (s *Synthesizer) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.SynthesizeCalls)
}

// Calls returns a copy of all recorded Synthesize invocations.
func (s *Synthesizer) Calls() []SynthesizeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SynthesizeCall, len(s.SynthesizeCalls))
	copy(out, s.SynthesizeCalls)
	return out
}
