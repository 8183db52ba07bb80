package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"imgsim/internal/services"
	"imgsim/internal/textutil"
)

const lockRetryDelay = 250 * time.Millisecond

// lockCollection blocks until the collection lock is held or ctx ends.
func lockCollection(ctx context.Context, dir, collection string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "lock collection", "create lock directory", err)
	}
	lock := flock.New(filepath.Join(dir, textutil.FileToken(collection)+".lock"))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrCancelled, "", "lock collection", "cancelled while waiting for lock", ctx.Err())
		}
		return nil, fmt.Errorf("acquire collection lock: %w", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrCancelled, "", "lock collection", "lock not acquired", nil)
	}
	return lock, nil
}
