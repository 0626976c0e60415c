// Package speech owns the synthesis cache and the playback queue: the last
// two stages of the pipeline. Utterances enter through [Queue.Speak], get
// synthesized (or served from the content-addressed cache) and then played
// one at a time through an [audio.Player].
package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Cache is a content-addressed store of synthesized audio. Entries are keyed
// by SHA-256 over provider, voice and text, so the same line synthesized with
// the same voice is fetched exactly once across runs. Files are written once
// and never mutated.
type Cache struct {
	dir string
}

// NewCache opens (creating if needed) a cache rooted at dir.
func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("speech: cache directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("speech: create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Key derives the cache key for an utterance. Changing provider or voice
// yields a different key; stale entries for the old combination stay on disk
// and become valid again if the configuration is switched back.
func (c *Cache) Key(provider, voiceID, text string) string {
	sum := sha256.Sum256([]byte(provider + ":" + voiceID + ":" + text))
	return hex.EncodeToString(sum[:])
}

// Path returns the on-disk location for a cache key. The file may not exist.
func (c *Cache) Path(key string) string {
	return filepath.Join(c.dir, key+".mp3")
}

// Has reports whether audio for the key is already cached.
func (c *Cache) Has(key string) bool {
	info, err := os.Stat(c.Path(key))
	return err == nil && !info.IsDir() && info.Size() > 0
}

// Put stores audio under the key and returns its path. The write goes through
// a temp file and a rename so readers never observe a partial entry; if the
// key already exists the existing entry wins.
func (c *Cache) Put(key string, audio []byte) (string, error) {
	dst := c.Path(key)
	if c.Has(key) {
		return dst, nil
	}

	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("speech: create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("speech: write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("speech: close cache temp file: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("speech: commit cache entry: %w", err)
	}
	return dst, nil
}

// ValidKey reports whether key looks like a key produced by [Cache.Key].
// Used by HTTP handlers to reject path-traversal attempts before touching
// the filesystem.
func ValidKey(key string) bool {
	if len(key) != sha256.Size*2 {
		return false
	}
	return strings.IndexFunc(key, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f')
	}) < 0
}
