package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var ErrPoolClosed = errors.New("engine pool is shutting down")

// Factory creates a new engine instance for the pool.
type Factory func() (Engine, error)

// Pool bounds the number of live engine processes. Processes are spawned
// lazily, reused across turns, and discarded once unhealthy.
type Pool struct {
	factory Factory
	slots   chan struct{}
	idle    chan Engine
	logger  zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool with the specified capacity
func NewPool(size int, factory Factory, logger zerolog.Logger) *Pool {
	if size < 1 {
		size = 2 // Default
	}
	return &Pool{
		factory: factory,
		slots:   make(chan struct{}, size),
		idle:    make(chan Engine, size),
		logger:  logger.With().Str("component", "engine_pool").Logger(),
	}
}

// UCIFactory spawns UCI handles for the binary at path.
func UCIFactory(path string, skill int) Factory {
	return func() (Engine, error) {
		return NewHandle(path, skill)
	}
}

// Lease is an engine checked out for one turn. Release must be called on
// every exit path; calling it more than once is harmless.
type Lease struct {
	pool    *Pool
	eng     Engine
	once    sync.Once
	discard bool
}

// Acquire waits for a free slot and returns a lease on an idle or new engine.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for engine: %w", ctx.Err())
	}

	if eng := p.takeIdle(); eng != nil {
		return &Lease{pool: p, eng: eng}, nil
	}

	start := time.Now()
	eng, err := p.factory()
	if err != nil {
		<-p.slots
		return nil, fmt.Errorf("starting engine: %w", err)
	}
	p.logger.Debug().Dur("startup", time.Since(start)).Msg("engine started")
	return &Lease{pool: p, eng: eng}, nil
}

// takeIdle pops a healthy parked engine, closing any broken ones on the way.
func (p *Pool) takeIdle() Engine {
	for {
		select {
		case eng := <-p.idle:
			if eng.Healthy() {
				return eng
			}
			p.logger.Warn().Msg("discarding unhealthy idle engine")
			eng.Close()
		default:
			return nil
		}
	}
}

// Adapter exposes the leased engine.
func (l *Lease) Adapter() Adapter {
	return l.eng
}

// Discard marks the engine as unusable; Release will close it instead of reusing it.
func (l *Lease) Discard() {
	l.discard = true
}

// Release returns the engine to the pool, or closes it if it is broken.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.pool.put(l.eng, l.discard)
	})
}

func (p *Pool) put(eng Engine, discard bool) {
	defer func() { <-p.slots }()

	if !discard && eng.Healthy() && p.park(eng) {
		return
	}
	if err := eng.Close(); err != nil {
		p.logger.Debug().Err(err).Msg("engine close")
	}
}

// park queues eng for reuse. The closed check and the push share p.mu so
// Close never drains before a concurrent park lands.
func (p *Pool) park(eng Engine) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.idle <- eng:
		return true
	default:
		return false
	}
}

func (p *Pool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Idle returns the number of parked engine processes.
func (p *Pool) Idle() int {
	return len(p.idle)
}

// InUse returns the number of leased engines.
func (p *Pool) InUse() int {
	return len(p.slots)
}

// Close terminates idle engines. Leased engines are closed as they are released.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case eng := <-p.idle:
			if err := eng.Close(); err != nil {
				errs = append(errs, err)
			}
		default:
			return errors.Join(errs...)
		}
	}
}
