package adapters

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"pkgresolve/internal/core"
	"pkgresolve/internal/ports"
)

const fileMutexRetryInterval = 200 * time.Millisecond

// FileMutex implements ports.MutexPort over an advisory file lock:
// contention warns once, then retries every 200ms until the lock is
// free.
type FileMutex struct {
	Path string
}

func NewFileMutex(path string) FileMutex {
	if path == "" {
		path = ".pkgresolve.lock"
	}
	return FileMutex{Path: path}
}

func (f FileMutex) Acquire(ctx context.Context) (func(), error) {
	lock := flock.New(f.Path)
	warned := false
	for {
		locked, err := lock.TryLock()
		if err != nil {
			return nil, core.NewUnexpectedError("acquiring file mutex at "+f.Path, err)
		}
		if locked {
			break
		}
		if !warned {
			log.Ctx(ctx).Warn().Str("path", f.Path).Msg("waiting for instance")
			warned = true
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(fileMutexRetryInterval):
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			_ = lock.Unlock()
		})
	}
	return release, nil
}

var _ ports.MutexPort = FileMutex{}
