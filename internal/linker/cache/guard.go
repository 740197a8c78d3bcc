package cache

import (
	"context"
	"time"

	"github.com/samherejoy-web/BTools-sub000/pkg/resilience"
)

// guardedStore bounds every call by a timeout and stops calling the backend
// while the breaker is open.
type guardedStore struct {
	next    Store
	breaker *resilience.CircuitBreaker
	timeout time.Duration
}

// Guard wraps next with breaker and a per-call timeout.
func Guard(next Store, breaker *resilience.CircuitBreaker, timeout time.Duration) Store {
	return &guardedStore{next: next, breaker: breaker, timeout: timeout}
}

func (g *guardedStore) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	err = g.breaker.Execute(func() error {
		ctx, cancel := g.bound(ctx)
		defer cancel()
		var getErr error
		value, ok, getErr = g.next.Get(ctx, key)
		return getErr
	})
	return value, ok, err
}

func (g *guardedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.breaker.Execute(func() error {
		ctx, cancel := g.bound(ctx)
		defer cancel()
		return g.next.Set(ctx, key, value, ttl)
	})
}

// DeleteByPrefix bypasses the breaker; invalidation is an operator action.
func (g *guardedStore) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	return g.next.DeleteByPrefix(ctx, prefix)
}

func (g *guardedStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
