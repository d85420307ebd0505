package doc2scorm

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

const (
	// MinPoolSize is the smallest automatic pool.
	MinPoolSize = 1

	// MaxPoolSize caps automatic sizing. PDF input spawns a poppler process
	// per page, so more workers mostly add contention.
	MaxPoolSize = 8

	// cpuDivisor leaves half the CPUs to rasterizer child processes.
	cpuDivisor = 2
)

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("converter pool is closed")

// ConverterPool bounds how many conversions run at once. Converters share
// the pool's options and are built on demand, then kept idle for reuse.
type ConverterPool struct {
	size  int
	opts  []Option
	slots chan struct{} // one token per converter handed out
	done  chan struct{}

	mu     sync.Mutex
	idle   []*Converter
	all    []*Converter
	closed bool
}

// NewConverterPool returns a pool of at most n converters, minimum one.
// No converter is built until the first Acquire.
func NewConverterPool(n int, opts ...Option) *ConverterPool {
	n = max(n, 1)
	return &ConverterPool{
		size:  n,
		opts:  opts,
		slots: make(chan struct{}, n),
		done:  make(chan struct{}),
	}
}

// Acquire waits for a free slot, then hands out an idle converter or builds
// a new one. It returns ctx.Err() if ctx ends first.
func (p *ConverterPool) Acquire(ctx context.Context) (*Converter, error) {
	select {
	case p.slots <- struct{}{}:
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.slots
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		conv := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return conv, nil
	}
	p.mu.Unlock()

	conv, err := NewConverter(p.opts...)
	if err != nil {
		<-p.slots
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		<-p.slots
		return nil, errors.Join(ErrPoolClosed, conv.Close())
	}
	p.all = append(p.all, conv)
	return conv, nil
}

// Release hands conv back for reuse. After Close it is a no-op.
func (p *ConverterPool) Release(conv *Converter) {
	if conv == nil {
		return
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.idle = append(p.idle, conv)
	p.mu.Unlock()
	<-p.slots
}

// Close wakes every waiter with ErrPoolClosed and closes each converter
// built so far, joining their errors.
func (p *ConverterPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	all := p.all
	p.idle, p.all = nil, nil
	p.mu.Unlock()

	var errs []error
	for _, conv := range all {
		errs = append(errs, conv.Close())
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *ConverterPool) Size() int {
	return p.size
}

// ResolvePoolSize returns workers when positive, otherwise half of
// GOMAXPROCS (container-aware through automaxprocs) clamped to
// [MinPoolSize, MaxPoolSize].
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}
	return min(max(runtime.GOMAXPROCS(0)/cpuDivisor, MinPoolSize), MaxPoolSize)
}
