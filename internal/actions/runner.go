package actions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/queries"
	"github.com/five82/momento/internal/query"
	"github.com/five82/momento/internal/session"
)

const defaultActionTimeout = 15 * time.Second

// ErrInvalid rejects a mutation before any request is sent.
var ErrInvalid = errors.New("invalid input")

// ActionError reports a failed mutation. Nothing was invalidated and the
// action is not retried.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// Set is the cache footprint of a mutation.
type Set struct {
	Keys     []query.Key
	Prefixes []query.Key
}

// Options tune a Runner.
type Options struct {
	Timeout time.Duration
	// OnError receives every failed mutation, for example to raise a notice.
	OnError func(*ActionError)
}

// Runner executes mutations and invalidates their declared key sets.
// Mutations on the same resource run in call order.
type Runner struct {
	ctx     context.Context
	q       *queries.Set
	session *session.Session
	opts    Options

	mu    sync.Mutex
	tails map[string]chan struct{}
}

// New creates a Runner whose mutations run on ctx, not on the caller's
// context, so leaving a view never aborts a write.
func New(ctx context.Context, q *queries.Set, sess *session.Session, opts Options) *Runner {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultActionTimeout
	}
	return &Runner{ctx: ctx, q: q, session: sess, opts: opts, tails: make(map[string]chan struct{})}
}

// Pending is a mutation in flight.
type Pending[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Done is closed once the mutation finished and its invalidation ran.
func (p *Pending[T]) Done() <-chan struct{} { return p.done }

// Err is the outcome; it is nil until Done is closed.
func (p *Pending[T]) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the mutation finishes or ctx ends. An abandoned wait
// does not cancel the mutation.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func failed[T any](r *Runner, action string, err error) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{}), err: &ActionError{Action: action, Err: err}}
	close(p.done)
	r.report(p.err)
	return p
}

func invalid[T any](r *Runner, action, reason string) *Pending[T] {
	return failed[T](r, action, fmt.Errorf("%w: %s", ErrInvalid, reason))
}

// run starts fn after every earlier mutation on resource has finished and
// applies set once fn succeeds. after, when set, runs after invalidation
// and before the mutation is reported done.
func run[T any](r *Runner, action, resource string, set Set, fn func(context.Context) (T, error), after func(context.Context, T)) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{})}

	var prev chan struct{}
	mine := make(chan struct{})
	if resource != "" {
		r.mu.Lock()
		prev = r.tails[resource]
		r.tails[resource] = mine
		r.mu.Unlock()
	}

	go func() {
		defer func() {
			if resource == "" {
				return
			}
			close(mine)
			r.mu.Lock()
			if r.tails[resource] == mine {
				delete(r.tails, resource)
			}
			r.mu.Unlock()
		}()
		if prev != nil {
			<-prev
		}

		ctx, cancel := context.WithTimeout(r.ctx, r.opts.Timeout)
		defer cancel()
		value, err := fn(ctx)
		if err != nil {
			p.err = &ActionError{Action: action, Err: err}
			r.report(p.err)
			close(p.done)
			return
		}
		r.invalidate(set)
		if after != nil {
			after(ctx, value)
		}
		log.Debug("action completed", "action", action, "resource", resource)
		p.value = value
		close(p.done)
	}()
	return p
}

func (r *Runner) invalidate(set Set) {
	store := r.q.Store()
	store.Invalidate(set.Keys...)
	for _, prefix := range set.Prefixes {
		store.InvalidatePrefix(prefix)
	}
}

func (r *Runner) report(err error) {
	var actionErr *ActionError
	if !errors.As(err, &actionErr) {
		return
	}
	log.Warn("action failed", "action", actionErr.Action, "err", actionErr.Err)
	if r.opts.OnError != nil {
		r.opts.OnError(actionErr)
	}
}

func (r *Runner) client() *momento.Client {
	return r.q.Client()
}

func keys(k ...query.Key) []query.Key { return k }

func noValue(fn func(context.Context) error) func(context.Context) (struct{}, error) {
	return func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}
}
