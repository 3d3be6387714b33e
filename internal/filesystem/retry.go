package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"video-catalog/internal/logging"
)

// RetryConfig controls retry behavior for filesystem operations on
// network mounts.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the defaults tuned for NFS stale handle
// recovery.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isStaleError reports whether err is an NFS stale file handle (ESTALE).
// Only these are worth retrying; everything else fails immediately.
func isStaleError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// withRetry runs fn with exponential backoff while it keeps returning
// stale handle errors.
func withRetry(op, path string, config RetryConfig, fn func() error) error {
	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logging.Info("%s succeeded on retry %d for %s", op, attempt, path)
			}
			return nil
		}
		if !isStaleError(err) {
			return err
		}
		lastErr = err

		if attempt < config.MaxRetries {
			logging.Debug("%s stale file handle for %s, retrying in %v (attempt %d/%d)",
				op, path, backoff, attempt+1, config.MaxRetries)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}
	}

	logging.Warn("%s failed after %d retries for %s: %v", op, config.MaxRetries, path, lastErr)
	return lastErr
}

// StatWithRetry performs os.Stat, retrying stale handle errors.
func StatWithRetry(path string, config RetryConfig) (os.FileInfo, error) {
	var info os.FileInfo
	err := withRetry("stat", path, config, func() error {
		var err error
		info, err = os.Stat(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// ReadDirWithRetry performs os.ReadDir, retrying stale handle errors.
func ReadDirWithRetry(path string, config RetryConfig) ([]os.DirEntry, error) {
	var dirents []os.DirEntry
	err := withRetry("readdir", path, config, func() error {
		var err error
		dirents, err = os.ReadDir(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dirents, nil
}
