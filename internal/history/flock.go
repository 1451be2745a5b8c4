package history

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

type lockMode int

const (
	lockShared lockMode = iota
	lockExclusive
)

const lockRetryDelay = 50 * time.Millisecond

// lockDir holds a lock on <dir>.lock while fn runs. Writers take it
// exclusively so two concurrent checks never interleave file creation.
func lockDir(dir string, mode lockMode, timeout time.Duration, fn func() error) error {
	fl := flock.New(dir + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if mode == lockExclusive {
		locked, err = fl.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = fl.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("locking history %s: %w", dir, err)
	}
	if !locked {
		return fmt.Errorf("timed out after %s waiting for history lock %s", timeout, fl.Path())
	}
	defer fl.Unlock()

	return fn()
}
