// Package pool provides a bounded pool of reusable, expensive-to-construct
// rendering contexts. Contexts are created once when the pool is populated and
// are either handed back to the pool or destroyed after use, never both.
package pool

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

const (

	// DefaultSize denotes the default number of pooled contexts
	DefaultSize = 3

	// DefaultAcquireTimeout denotes the default maximum time to wait for a context
	DefaultAcquireTimeout = time.Second

	// DefaultReleaseTimeout denotes the default maximum time to wait when handing
	// a context back before it is destroyed instead
	DefaultReleaseTimeout = time.Second
)

var (

	// ErrExhausted denotes that no context became available within the timeout
	ErrExhausted = errors.New("render context pool exhausted")

	// ErrClosed denotes an operation on a closed pool
	ErrClosed = errors.New("render context pool closed")
)

// Context denotes an opaque, reusable evaluation handle
type Context interface {

	// ID returns a unique identifier of the context
	ID() string

	// Close disposes the context and all resources held by it
	Close() error
}

// Factory creates a new context
type Factory func() (Context, error)

// Pool denotes a bounded pool of contexts
type Pool struct {
	contexts chan Context  // Idle contexts
	done     chan struct{} // Closed once the pool is closed
	size     int

	acquireTimeout time.Duration
	releaseTimeout time.Duration

	live   *atomic.Int64 // Number of contexts created and not yet destroyed
	closed *atomic.Bool

	checkedOut     map[string]struct{} // IDs of contexts handed out by Acquire
	checkedOutLock sync.Mutex

	// Release holds the read lock while offering a context, Close holds the
	// write lock while draining, so no context is offered after the drain
	closeLock sync.RWMutex
}

// New creates a new pool and populates it with size contexts built by factory
func New(size int, factory Factory, options ...func(*Pool)) (*Pool, error) {
	if size <= 0 {
		return nil, errors.Errorf("invalid pool size: %d", size)
	}
	if factory == nil {
		return nil, errors.New("no context factory provided")
	}

	p := &Pool{
		contexts:       make(chan Context, size),
		done:           make(chan struct{}),
		size:           size,
		acquireTimeout: DefaultAcquireTimeout,
		releaseTimeout: DefaultReleaseTimeout,
		live:           atomic.NewInt64(0),
		closed:         atomic.NewBool(false),
		checkedOut:     make(map[string]struct{}, size),
	}

	// Execute functional options, if any
	for _, opt := range options {
		opt(p)
	}

	// Populate the pool, disposing already built contexts on failure
	for i := 0; i < size; i++ {
		c, err := factory()
		if err != nil {
			return nil, multierr.Append(errors.Wrapf(err, "failed to create context %d of %d", i+1, size), p.Close())
		}
		p.live.Inc()
		p.contexts <- c
	}

	return p, nil
}

// WithAcquireTimeout sets a custom timeout for Acquire
func WithAcquireTimeout(timeout time.Duration) func(*Pool) {
	return func(p *Pool) {
		p.acquireTimeout = timeout
	}
}

// WithReleaseTimeout sets a custom timeout for Release
func WithReleaseTimeout(timeout time.Duration) func(*Pool) {
	return func(p *Pool) {
		p.releaseTimeout = timeout
	}
}

// Acquire checks out a context, blocking up to the acquire timeout
func (p *Pool) Acquire(ctx context.Context) (Context, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}

	// Fast path, avoids allocating a timer if a context is idle
	select {
	case c := <-p.contexts:
		return p.checkout(c), nil
	default:
	}

	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case c := <-p.contexts:
		return p.checkout(c), nil
	case <-timer.C:
		return nil, ErrExhausted
	case <-p.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "failed to acquire render context")
	}
}

// Release hands a context back to the pool. If it cannot be offered within the
// release timeout (or the pool is closed), the context is destroyed instead.
// Contexts not currently checked out from this pool are ignored.
func (p *Pool) Release(c Context) {
	if c == nil {
		return
	}
	if !p.checkin(c) {
		logrus.StandardLogger().Warnf("Ignoring release of render context %s, which is not checked out from this pool", c.ID())
		return
	}

	if p.offer(c) {
		return
	}

	logrus.StandardLogger().Warnf("Failed to return render context %s to pool, destroying it", c.ID())
	p.destroy(c)
}

// Live returns the number of contexts currently alive (idle or checked out)
func (p *Pool) Live() int {
	return int(p.live.Load())
}

// Idle returns the number of contexts currently available for checkout
func (p *Pool) Idle() int {
	return len(p.contexts)
}

// Size returns the upper bound of live contexts
func (p *Pool) Size() int {
	return p.size
}

// Close drains the pool and disposes every idle context. Contexts checked out
// at this point are destroyed when released.
func (p *Pool) Close() error {
	p.closeLock.Lock()
	defer p.closeLock.Unlock()

	if p.closed.Swap(true) {
		return nil
	}
	close(p.done)

	var err error
	for {
		select {
		case c := <-p.contexts:
			err = multierr.Append(err, p.destroy(c))
		default:
			return err
		}
	}
}

func (p *Pool) checkout(c Context) Context {
	p.checkedOutLock.Lock()
	p.checkedOut[c.ID()] = struct{}{}
	p.checkedOutLock.Unlock()

	return c
}

func (p *Pool) checkin(c Context) bool {
	p.checkedOutLock.Lock()
	defer p.checkedOutLock.Unlock()

	if _, exists := p.checkedOut[c.ID()]; !exists {
		return false
	}
	delete(p.checkedOut, c.ID())

	return true
}

func (p *Pool) offer(c Context) bool {
	p.closeLock.RLock()
	defer p.closeLock.RUnlock()

	if p.closed.Load() {
		return false
	}

	select {
	case p.contexts <- c:
		return true
	default:
	}

	timer := time.NewTimer(p.releaseTimeout)
	defer timer.Stop()

	select {
	case p.contexts <- c:
		return true
	case <-timer.C:
		return false
	}
}

func (p *Pool) destroy(c Context) error {
	p.live.Dec()
	if err := c.Close(); err != nil {
		logrus.StandardLogger().Errorf("Failed to close render context %s: %s", c.ID(), err)
		return errors.Wrapf(err, "failed to close render context %s", c.ID())
	}
	return nil
}
