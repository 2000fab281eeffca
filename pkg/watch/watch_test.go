package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestFileDebouncesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "module.lua")
	if err := os.WriteFile(path, []byte("-- v0"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	fired := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- File(ctx, path, 100*time.Millisecond, func() error {
			calls.Add(1)
			fired <- struct{}{}
			return nil
		})
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte('0' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("fn not called after writes")
	}

	// Let any straggling timer fire before counting.
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("fn called %d times for one burst, want 1", n)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("File() returned %v after cancel, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("File() did not return after cancel")
	}
}

func TestFileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "module.lua")
	_ = os.WriteFile(path, nil, 0o644)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	var calls atomic.Int32
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(filepath.Join(dir, "other.lua"), []byte("x"), 0o644)
	}()

	if err := File(ctx, path, 20*time.Millisecond, func() error { calls.Add(1); return nil }); err != nil {
		t.Fatalf("File() error: %v", err)
	}
	if n := calls.Load(); n != 0 {
		t.Errorf("fn called %d times for a sibling write, want 0", n)
	}
}

func TestFileReportsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "module.lua")
	_ = os.WriteFile(path, nil, 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("publish failed")
	got := make(chan error, 4)
	go func() {
		_ = File(ctx, path, 20*time.Millisecond,
			func() error { return boom },
			WithErrorHandler(func(err error) { got <- err }),
		)
	}()

	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(path, []byte("x"), 0o644)

	select {
	case err := <-got:
		if !errors.Is(err, boom) {
			t.Errorf("handler got %v, want %v", err, boom)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("error handler not called")
	}
}

func TestFileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent", "module.lua")
	err := File(context.Background(), path, 0, func() error { return nil })
	if err == nil {
		t.Error("File() on a missing directory should fail")
	}
}
