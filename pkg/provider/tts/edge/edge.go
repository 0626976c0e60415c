// Package edge provides a TTS synthesizer backed by the Microsoft Edge
// read-aloud service. It implements the tts.Synthesizer interface.
//
// The service is the same one the Edge browser uses for its "Read aloud"
// feature: a WebSocket endpoint that accepts a speech.config message followed
// by an SSML payload and answers with a stream of binary frames carrying MP3
// audio. It requires no API key and is not billed, which makes it the default
// provider and the only one eligible for bulk cache preloading.
package edge

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/riftcoach/riftcoach/pkg/provider/tts"
)

const (
	// trustedClientToken is the public token the Edge browser itself sends.
	trustedClientToken = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"

	wsEndpointFmt = "wss://speech.platform.bing.com/consumer/speech/synthesize/" +
		"readaloud/edge/v1?TrustedClientToken=%s&ConnectionId=%s"

	defaultOutputFormat = "audio-24khz-48kbitrate-mono-mp3"
	defaultTimeout      = 30 * time.Second
)

// Compile-time interface assertion.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// Option is a functional option for configuring the Edge Synthesizer.
type Option func(*Synthesizer)

// WithOutputFormat sets the audio output format requested from the service
// (e.g., "audio-24khz-48kbitrate-mono-mp3").
func WithOutputFormat(format string) Option {
	return func(s *Synthesizer) {
		s.outputFormat = format
	}
}

// WithTimeout bounds a single Synthesize call, dial included. Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(s *Synthesizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// Synthesizer implements tts.Synthesizer backed by the Edge read-aloud service.
type Synthesizer struct {
	outputFormat string
	timeout      time.Duration
}

// New creates a new Edge Synthesizer.
func New(opts ...Option) *Synthesizer {
	s := &Synthesizer{
		outputFormat: defaultOutputFormat,
		timeout:      defaultTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name implements tts.Synthesizer.
func (s *Synthesizer) Name() string { return "edge" }

// Metered implements tts.Synthesizer. The Edge service is free.
func (s *Synthesizer) Metered() bool { return false }

// Synthesize opens a WebSocket to the read-aloud service, submits the
// utterance as SSML, and collects binary audio frames until the service
// signals the end of the turn.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, voice tts.Voice) ([]byte, error) {
	if text == "" {
		return nil, errors.New("edge: text must not be empty")
	}
	if voice.ID == "" {
		return nil, errors.New("edge: voice.ID must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	connID := randomHexID()
	wsURL := fmt.Sprintf(wsEndpointFmt, trustedClientToken, connID)

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("edge: dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	// The service rejects frames larger than its default read limit allows.
	conn.SetReadLimit(1 << 20)

	if err := conn.Write(ctx, websocket.MessageText, s.configMessage()); err != nil {
		return nil, fmt.Errorf("edge: send speech.config: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, ssmlMessage(randomHexID(), text, voice)); err != nil {
		return nil, fmt.Errorf("edge: send ssml: %w", err)
	}

	var audio bytes.Buffer
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("edge: read: %w", err)
		}

		switch msgType {
		case websocket.MessageText:
			if headerValue(string(data), "Path") == "turn.end" {
				if audio.Len() == 0 {
					return nil, errors.New("edge: turn ended without audio")
				}
				return audio.Bytes(), nil
			}
			// turn.start, response, audio.metadata — nothing to do.

		case websocket.MessageBinary:
			payload, err := binaryAudioPayload(data)
			if err != nil {
				return nil, fmt.Errorf("edge: %w", err)
			}
			audio.Write(payload)
		}
	}
}

// configMessage builds the speech.config frame that selects the output format.
func (s *Synthesizer) configMessage() []byte {
	var b strings.Builder
	b.WriteString("X-Timestamp:" + timestamp() + "\r\n")
	b.WriteString("Content-Type:application/json; charset=utf-8\r\n")
	b.WriteString("Path:speech.config\r\n\r\n")
	b.WriteString(`{"context":{"synthesis":{"audio":{"metadataoptions":` +
		`{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},` +
		`"outputFormat":"` + s.outputFormat + `"}}}}`)
	return []byte(b.String())
}

// ssmlMessage builds the ssml frame carrying the utterance.
func ssmlMessage(requestID, text string, voice tts.Voice) []byte {
	lang := voice.Language
	if lang == "" {
		lang = "en-US"
	}

	var b strings.Builder
	b.WriteString("X-RequestId:" + requestID + "\r\n")
	b.WriteString("Content-Type:application/ssml+xml\r\n")
	b.WriteString("X-Timestamp:" + timestamp() + "\r\n")
	b.WriteString("Path:ssml\r\n\r\n")
	b.WriteString(`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='` + lang + `'>`)
	b.WriteString(`<voice name='` + voice.ID + `'>`)
	b.WriteString(escapeSSML(text))
	b.WriteString(`</voice></speak>`)
	return []byte(b.String())
}

// binaryAudioPayload strips the length-prefixed header block from a binary
// frame and returns the audio bytes. Frames whose Path header is not "audio"
// yield an empty payload.
func binaryAudioPayload(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, errors.New("binary frame too short")
	}
	headerLen := int(data[0])<<8 | int(data[1])
	if 2+headerLen > len(data) {
		return nil, fmt.Errorf("binary frame header length %d exceeds frame size %d", headerLen, len(data))
	}
	headers := string(data[2 : 2+headerLen])
	if headerValue(headers, "Path") != "audio" {
		return nil, nil
	}
	return data[2+headerLen:], nil
}

// headerValue extracts the value of a "Key:value" header line from a CRLF
// separated header block. Returns "" when the key is absent.
func headerValue(headers, key string) string {
	for _, line := range strings.Split(headers, "\r\n") {
		k, v, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(k), key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

var ssmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	"'", "&apos;",
	`"`, "&quot;",
)

// escapeSSML escapes characters that would break the SSML document.
func escapeSSML(text string) string {
	return ssmlEscaper.Replace(text)
}

// timestamp renders the wall clock in the format the service expects.
func timestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}

// randomHexID returns a 32-character lowercase hex identifier.
func randomHexID() string {
	var buf [16]byte
	_, _ = rand.Read(buf[:])
	return hex.EncodeToString(buf[:])
}
