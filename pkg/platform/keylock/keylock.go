// Package keylock serializes work keyed by a natural identity (a profile, a wallet,
// a (wallet, chain, currency) tuple).
//
// Flight collapses concurrent calls for the same key so every caller observes the
// winner's result. Mutex gives per-key mutual exclusion for operations that must
// not be merged, such as two withdrawals from the same wallet. Both take an optional
// Lease so the guarantee extends across instances.
package keylock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Lease is a distributed lock keyed by string. Acquire blocks until the lease is
// held or ctx ends and returns a release func.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

const defaultLeaseTTL = 30 * time.Second

// Flight runs at most one fn per key at a time and shares its result.
type Flight struct {
	group singleflight.Group
	lease Lease
	ttl   time.Duration
}

type Option func(*options)

type options struct {
	lease Lease
	ttl   time.Duration
}

// WithLease backs the in-process guarantee with a distributed lease.
func WithLease(l Lease) Option {
	return func(o *options) { o.lease = l }
}

// WithLeaseTTL bounds how long a crashed holder can block other instances.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

func buildOptions(opts []Option) options {
	o := options{ttl: defaultLeaseTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewFlight(opts ...Option) *Flight {
	o := buildOptions(opts)
	return &Flight{lease: o.lease, ttl: o.ttl}
}

// Do runs fn for key unless a call for key is already running, in which case it
// waits for and returns that call's result. shared reports the latter.
func (f *Flight) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (v any, shared bool, err error) {
	ch := f.group.DoChan(key, func() (any, error) {
		if f.lease != nil {
			release, err := f.lease.Acquire(ctx, key, f.ttl)
			if err != nil {
				return nil, fmt.Errorf("acquire lease %s: %w", key, err)
			}
			defer release()
		}
		return fn(ctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Mutex provides per-key mutual exclusion.
type Mutex struct {
	mu    sync.Mutex
	slots map[string]*slot
	lease Lease
	ttl   time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewMutex(opts ...Option) *Mutex {
	o := buildOptions(opts)
	return &Mutex{slots: make(map[string]*slot), lease: o.lease, ttl: o.ttl}
}

// Lock blocks until key is held or ctx ends. The returned func releases it.
func (m *Mutex) Lock(ctx context.Context, key string) (func(), error) {
	s := m.acquireSlot(key)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		m.releaseSlot(key, s, false)
		return nil, ctx.Err()
	}

	releaseLease := func() {}
	if m.lease != nil {
		rel, err := m.lease.Acquire(ctx, key, m.ttl)
		if err != nil {
			m.releaseSlot(key, s, true)
			return nil, fmt.Errorf("acquire lease %s: %w", key, err)
		}
		releaseLease = rel
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseLease()
			m.releaseSlot(key, s, true)
		})
	}, nil
}

func (m *Mutex) acquireSlot(key string) *slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	return s
}

func (m *Mutex) releaseSlot(key string, s *slot, held bool) {
	if held {
		<-s.ch
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
}
