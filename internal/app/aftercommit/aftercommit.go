// Package aftercommit collects side effects that may only run once the
// surrounding unit of work has committed.
package aftercommit

import (
	"context"
	"sync"
)

// Hook runs after a successful commit. It must not fail the request; hooks
// report their own errors.
type Hook func(ctx context.Context)

type Queue struct {
	mu    sync.Mutex
	hooks []Hook
}

type ctxKey struct{}

// WithQueue returns ctx carrying a fresh queue.
func WithQueue(ctx context.Context) (context.Context, *Queue) {
	q := &Queue{}
	return context.WithValue(ctx, ctxKey{}, q), q
}

func FromContext(ctx context.Context) (*Queue, bool) {
	q, ok := ctx.Value(ctxKey{}).(*Queue)
	return q, ok && q != nil
}

// Enqueue adds hook to the queue in ctx. It reports false, dropping the hook,
// when ctx carries no queue.
func Enqueue(ctx context.Context, hook Hook) bool {
	q, ok := FromContext(ctx)
	if !ok || hook == nil {
		return false
	}
	q.mu.Lock()
	q.hooks = append(q.hooks, hook)
	q.mu.Unlock()
	return true
}

// Run executes queued hooks in order and empties the queue.
func (q *Queue) Run(ctx context.Context) {
	q.mu.Lock()
	hooks := q.hooks
	q.hooks = nil
	q.mu.Unlock()
	for _, h := range hooks {
		h(ctx)
	}
}

// Discard drops queued hooks.
func (q *Queue) Discard() {
	q.mu.Lock()
	q.hooks = nil
	q.mu.Unlock()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.hooks)
}
