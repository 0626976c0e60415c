// Package tts defines the Synthesizer interface for Text-to-Speech backends.
//
// A TTS synthesizer wraps a speech synthesis service (e.g., the free Microsoft
// Edge neural voices or ElevenLabs) and presents a uniform batch interface:
// one utterance in, one encoded audio blob out. The speech queue owns caching
// and playback; synthesizers only turn text into bytes.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Voice identifies the voice a synthesizer should speak with.
type Voice struct {
	// ID is the provider-specific voice identifier
	// (e.g., "zh-CN-YunxiNeural" for Edge, a voice UUID for ElevenLabs).
	ID string

	// Language is the BCP-47 language tag of the utterance (e.g., "zh-CN").
	// Providers that infer language from the voice may ignore it.
	Language string
}

// Synthesizer is the abstraction over any TTS backend.
type Synthesizer interface {
	// Name returns the stable provider identifier used in cache keys and
	// configuration (e.g., "edge", "elevenlabs").
	Name() string

	// Synthesize converts text into a single encoded audio blob (MP3 unless the
	// implementation documents otherwise). An empty result with a nil error is
	// invalid; implementations must return an error when no audio was produced.
	Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error)

	// Metered reports whether the provider bills per synthesized character.
	// The speech queue skips bulk cache preloading for metered providers.
	Metered() bool
}
