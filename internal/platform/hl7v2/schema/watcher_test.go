package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestWatcher(t *testing.T, dir string) (*Registry, *Watcher, chan error) {
	t.Helper()
	r, err := NewRegistry(zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w, err := NewWatcher(r, dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.debounce = 60 * time.Millisecond
	reloads := make(chan error, 16)
	w.OnReload(func(err error) { reloads <- err })
	t.Cleanup(w.Stop)
	return r, w, reloads
}

func writeTable(t *testing.T, dir, name, data string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}

func waitReload(t *testing.T, reloads <-chan error) error {
	t.Helper()
	select {
	case err := <-reloads:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("no reload happened")
	}
	return nil
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "site.yaml", "version: \"9.1\"\nextends: \"2.5\"\n")
	r, w, reloads := newTestWatcher(t, dir)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := r.Version("9.1"); err != nil {
		t.Fatalf("expected initial load, got %v", err)
	}
	if _, err := r.Version("9.2"); err == nil {
		t.Fatal("9.2 must not exist yet")
	}

	writeTable(t, dir, "more.yaml", "version: \"9.2\"\nextends: \"2.5\"\n")
	if err := waitReload(t, reloads); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if _, err := r.Version("9.2"); err != nil {
		t.Errorf("expected reloaded version, got %v", err)
	}
}

func TestWatcher_KeepsTablesWhenReloadFails(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "site.yaml", "version: \"9.1\"\nextends: \"2.5\"\n")
	r, w, reloads := newTestWatcher(t, dir)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	writeTable(t, dir, "bad.yaml", "segments: {}\n")
	if err := waitReload(t, reloads); !errors.Is(err, ErrInvalidTable) {
		t.Fatalf("expected ErrInvalidTable, got %v", err)
	}
	if _, err := r.Version("9.1"); err != nil {
		t.Errorf("previous tables lost after failed reload: %v", err)
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRegistry(zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(r, dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	w.debounce = 150 * time.Millisecond
	var count atomic.Int32
	w.OnReload(func(error) { count.Add(1) })
	defer w.Stop()
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		writeTable(t, dir, "site.yaml", "version: \"9.1\"\nextends: \"2.5\"\n")
		time.Sleep(10 * time.Millisecond)
	}
	deadline := time.Now().Add(5 * time.Second)
	for count.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(400 * time.Millisecond)
	if n := count.Load(); n != 1 {
		t.Errorf("expected one reload for the burst, got %d", n)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	_, w, reloads := newTestWatcher(t, dir)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	writeTable(t, dir, "notes.txt", "not a table")
	select {
	case err := <-reloads:
		t.Errorf("unexpected reload (err=%v)", err)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopAfterFailedStart(t *testing.T) {
	_, w, _ := newTestWatcher(t, filepath.Join(t.TempDir(), "missing"))
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected Start to fail for a missing directory")
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after a failed Start")
	}
	if err := w.Start(context.Background()); !errors.Is(err, ErrWatcherStopped) {
		t.Errorf("expected ErrWatcherStopped, got %v", err)
	}
}

func TestWatcher_StartTwiceAndStop(t *testing.T) {
	dir := t.TempDir()
	_, w, _ := newTestWatcher(t, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := w.Start(ctx); err != nil {
		t.Errorf("second Start should be a no-op, got %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
