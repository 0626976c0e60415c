package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "server:\n  listen_addr: ':7001'\n")

	w, err := NewWatcher(path, nil, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Server.ListenAddr; got != ":7001" {
		t.Errorf("Current().Server.ListenAddr = %q, want :7001", got)
	}
}

func TestWatcher_InitialLoadFailure(t *testing.T) {
	t.Parallel()

	if _, err := NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("NewWatcher accepted a missing file")
	}
}

func TestWatcher_ReloadOnChange(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "coach:\n  language: zh\n")

	var mu sync.Mutex
	var gotOld, gotNew string
	w, err := NewWatcher(path, func(old, updated *Config) {
		mu.Lock()
		gotOld, gotNew = old.Coach.Language, updated.Coach.Language
		mu.Unlock()
	}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Ensure a different mtime even on coarse filesystem clocks.
	time.Sleep(20 * time.Millisecond)
	writeConfig(t, path, "coach:\n  language: en\n")
	now := time.Now()
	os.Chtimes(path, now, now)

	waitUntil(t, func() bool { return w.Current().Coach.Language == "en" })

	mu.Lock()
	defer mu.Unlock()
	if gotOld != "zh" || gotNew != "en" {
		t.Errorf("onChange(old=%q, new=%q), want zh -> en", gotOld, gotNew)
	}
}

func TestWatcher_InvalidReloadKeepsCurrent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "coach:\n  language: zh\n")

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(old, updated *Config) {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	writeConfig(t, path, "coach:\n  language: klingon\n")
	now := time.Now()
	os.Chtimes(path, now, now)

	// Give the watcher several polling cycles to (incorrectly) fire.
	select {
	case <-changed:
		t.Fatal("onChange fired for an invalid config")
	case <-time.After(200 * time.Millisecond):
	}
	if got := w.Current().Coach.Language; got != "zh" {
		t.Errorf("Current().Coach.Language = %q, want zh preserved", got)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "")

	w, err := NewWatcher(path, nil, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop()
}
