package fetcher

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimiter bounds how many fetches run at once, both overall and
// per host, so a crawl of one large site cannot monopolize every worker slot
// or hammer a single origin. Grounded on the global/per-host worker-pool
// shape the teacher pack's raito crawl worker hand-rolls with buffered
// channels, reimplemented with golang.org/x/sync/semaphore since the module
// already depends on it for this purpose.
type ConcurrencyLimiter struct {
	global *semaphore.Weighted

	perHostCap int64
	mu         sync.Mutex
	perHost    map[string]*semaphore.Weighted
}

// NewConcurrencyLimiter builds a limiter allowing globalCap fetches in
// flight overall and perHostCap fetches in flight against any single host.
// A cap of 0 or less is treated as unbounded for that dimension.
func NewConcurrencyLimiter(globalCap, perHostCap int) *ConcurrencyLimiter {
	l := &ConcurrencyLimiter{
		perHostCap: int64(perHostCap),
		perHost:    make(map[string]*semaphore.Weighted),
	}
	if globalCap > 0 {
		l.global = semaphore.NewWeighted(int64(globalCap))
	}
	return l
}

// Acquire blocks until a global slot and a per-host slot for host are both
// free, or ctx is cancelled. Call Release with the same host once the fetch
// completes.
func (l *ConcurrencyLimiter) Acquire(ctx context.Context, host string) error {
	if l == nil {
		return nil
	}

	if l.global != nil {
		if err := l.global.Acquire(ctx, 1); err != nil {
			return err
		}
	}

	if l.perHostCap > 0 {
		sem := l.hostSemaphore(host)
		if err := sem.Acquire(ctx, 1); err != nil {
			if l.global != nil {
				l.global.Release(1)
			}
			return err
		}
	}

	return nil
}

// Release returns the slots acquired by a prior successful Acquire for the
// same host.
func (l *ConcurrencyLimiter) Release(host string) {
	if l == nil {
		return
	}

	if l.perHostCap > 0 {
		l.hostSemaphore(host).Release(1)
	}
	if l.global != nil {
		l.global.Release(1)
	}
}

func (l *ConcurrencyLimiter) hostSemaphore(host string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.perHost[host]
	if !ok {
		sem = semaphore.NewWeighted(l.perHostCap)
		l.perHost[host] = sem
	}
	return sem
}
