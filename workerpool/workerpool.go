// Package workerpool wraps an ants pool so background work never blocks
// request handling goroutines.
package workerpool

import (
	"context"
	"errors"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pitabwire/util"
	"github.com/rs/xid"
)

var ErrPoolClosed = errors.New("worker pool is closed")

// Pool defines the common methods for worker pool operations.
type Pool interface {
	Submit(ctx context.Context, task func(ctx context.Context)) error
	Running() int
	Shutdown()
}

// Options defines configurable options for the service's internal worker pool.
type Options struct {
	Capacity       int
	ExpiryDuration time.Duration
	Nonblocking    bool
	PreAlloc       bool
	PanicHandler   func(any)
}

const defaultPoolCapacity = 100

// DefaultOptions returns pool options suitable for most deployments.
func DefaultOptions() *Options {
	return &Options{
		Capacity:       defaultPoolCapacity,
		ExpiryDuration: time.Second,
		Nonblocking:    true,
	}
}

type antsPool struct {
	pool *ants.Pool
}

// New creates a worker pool with the supplied options.
func New(opts *Options) (Pool, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	antsOpts := []ants.Option{
		ants.WithNonblocking(opts.Nonblocking),
	}
	if opts.ExpiryDuration > 0 {
		antsOpts = append(antsOpts, ants.WithExpiryDuration(opts.ExpiryDuration))
	}
	if opts.PreAlloc {
		antsOpts = append(antsOpts, ants.WithPreAlloc(opts.PreAlloc))
	}
	if opts.PanicHandler != nil {
		antsOpts = append(antsOpts, ants.WithPanicHandler(opts.PanicHandler))
	}

	p, err := ants.NewPool(opts.Capacity, antsOpts...)
	if err != nil {
		return nil, err
	}

	return &antsPool{pool: p}, nil
}

// Submit hands a task to the pool. The task receives a context carrying a
// job scoped logger.
func (ap *antsPool) Submit(ctx context.Context, task func(ctx context.Context)) error {
	if ap.pool.IsClosed() {
		return ErrPoolClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	jobID := xid.New().String()
	jobCtx := util.ContextWithLogger(ctx, util.Log(ctx).WithField("job", jobID))

	return ap.pool.Submit(func() {
		task(jobCtx)
	})
}

func (ap *antsPool) Running() int {
	return ap.pool.Running()
}

func (ap *antsPool) Shutdown() {
	ap.pool.Release()
}
