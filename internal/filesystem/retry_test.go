package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
}

func TestIsStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"ESTALE", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT", syscall.ENOENT, false},
		{"generic error", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isStaleError(tt.err); got != tt.want {
				t.Errorf("isStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWithRetryRecoversFromStale(t *testing.T) {
	config := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 4 * time.Millisecond}

	calls := 0
	err := withRetry("stat", "/x", config, func() error {
		calls++
		if calls < 3 {
			return syscall.ESTALE
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
}

func TestWithRetryGivesUpAfterMaxRetries(t *testing.T) {
	config := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	calls := 0
	err := withRetry("open", "/x", config, func() error {
		calls++
		return syscall.ESTALE
	})
	if !errors.Is(err, syscall.ESTALE) {
		t.Errorf("withRetry() error = %v, want ESTALE", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3 (initial + 2 retries)", calls)
	}
}

func TestWithRetryDoesNotRetryOtherErrors(t *testing.T) {
	config := DefaultRetryConfig()

	calls := 0
	sentinel := errors.New("permission denied")
	err := withRetry("stat", "/x", config, func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("withRetry() error = %v, want sentinel", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestStatWithRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.mp4")
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(path, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 4 {
		t.Errorf("Size() = %d, want 4", info.Size())
	}

	if _, err := StatWithRetry(filepath.Join(dir, "missing"), DefaultRetryConfig()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("StatWithRetry(missing) error = %v, want not-exist", err)
	}
}

func TestReadDirWithRetry(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp4", "b.mkv"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	dirents, err := ReadDirWithRetry(dir, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("ReadDirWithRetry() error = %v", err)
	}
	if len(dirents) != 2 {
		t.Errorf("got %d entries, want 2", len(dirents))
	}
}
