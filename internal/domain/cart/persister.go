package cart

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sifnet/storefront/internal/domain/shared"
	"go.uber.org/zap"
)

// snapshot is a cart version waiting to be written
type snapshot struct {
	version uint64
	cart    Cart
}

// persister writes cart snapshots to a KeyValueStore from a single goroutine.
// It holds at most one pending snapshot: scheduling a newer version replaces
// an older one that has not been written yet, and older versions are never
// written after newer ones.
type persister struct {
	kv      shared.KeyValueStore
	key     string
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	pending *snapshot
	written uint64
	notify  chan struct{} // closed and replaced after every write
	closed  bool

	wake      chan struct{}
	stopChan  chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newPersister(kv shared.KeyValueStore, key string, timeout time.Duration, logger *zap.Logger, initialVersion uint64) *persister {
	p := &persister{
		kv:       kv,
		key:      key,
		timeout:  timeout,
		logger:   logger,
		written:  initialVersion,
		notify:   make(chan struct{}),
		wake:     make(chan struct{}, 1),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.loop()
	return p
}

// schedule queues a snapshot for writing without blocking
func (p *persister) schedule(version uint64, c Cart) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.logger.Debug("cart persister closed, dropping snapshot", zap.Uint64("version", version))
		return
	}
	if version <= p.written || (p.pending != nil && version <= p.pending.version) {
		p.mu.Unlock()
		return
	}
	p.pending = &snapshot{version: version, cart: c}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// waitFor blocks until version has been handed to storage or ctx is done
func (p *persister) waitFor(ctx context.Context, version uint64) error {
	for {
		p.mu.Lock()
		if p.written >= version || (p.closed && p.pending == nil) {
			p.mu.Unlock()
			return nil
		}
		ch := p.notify
		p.mu.Unlock()

		select {
		case <-ch:
		case <-p.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// close drains the pending snapshot and stops the goroutine. Safe to call
// multiple times.
func (p *persister) close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.stopChan)
	})

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *persister) loop() {
	defer close(p.done)

	for {
		select {
		case <-p.wake:
			p.drain()
		case <-p.stopChan:
			p.drain()
			return
		}
	}
}

func (p *persister) drain() {
	for {
		p.mu.Lock()
		next := p.pending
		p.pending = nil
		p.mu.Unlock()

		if next == nil {
			return
		}

		p.write(next)

		p.mu.Lock()
		if next.version > p.written {
			p.written = next.version
		}
		close(p.notify)
		p.notify = make(chan struct{})
		p.mu.Unlock()
	}
}

// write stores one snapshot. Failures are logged and dropped; the next
// mutation persists the then-current cart.
func (p *persister) write(s *snapshot) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("cart storage panicked during write",
				zap.Uint64("version", s.version),
				zap.Any("panic", r),
			)
		}
	}()

	if p.kv == nil {
		return
	}

	payload, err := json.Marshal(s.cart)
	if err != nil {
		p.logger.Warn("failed to encode cart", zap.Uint64("version", s.version), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.kv.Set(ctx, p.key, string(payload)); err != nil {
		p.logger.Warn("failed to persist cart",
			zap.String("key", p.key),
			zap.Uint64("version", s.version),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("cart persisted",
		zap.String("key", p.key),
		zap.Uint64("version", s.version),
		zap.Int("lines", s.cart.Len()),
	)
}
