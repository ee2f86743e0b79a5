package ports

import "context"

// MutexPort guards a single resolver invocation against a second,
// concurrent one targeting the same scope. Acquire blocks until
// this process becomes the sole holder and returns a release func.
type MutexPort interface {
	Acquire(ctx context.Context) (release func(), err error)
}
