package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "walletgate/pkg/domain"
	audit "walletgate/pkg/platform/audit"
)

var errBufferFull = errors.New("audit buffer full")

// Store is the persistence the publisher writes through to.
type Store interface {
	audit.Store
	ListByAccount(ctx context.Context, accountID id.AccountID) ([]audit.Event, error)
}

// Publisher stamps and persists audit events. In async mode events are
// buffered and written by a background goroutine; Close drains the buffer.
type Publisher struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	buffer chan queued
	wg     sync.WaitGroup
	once   sync.Once
}

type queued struct {
	ctx   context.Context
	event audit.Event
}

type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to async mode with a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.buffer = make(chan queued, n)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit records an event. A zero timestamp is replaced with the current time.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}

	// Detach from request cancellation; the request may finish before the write.
	item := queued{ctx: context.WithoutCancel(ctx), event: event}
	select {
	case p.buffer <- item:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.logger.Warn("audit event dropped", "action", event.Action, "account_id", event.AccountID.String())
	return errBufferFull
}

func (p *Publisher) List(ctx context.Context, accountID id.AccountID) ([]audit.Event, error) {
	return p.store.ListByAccount(ctx, accountID)
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for item := range p.buffer {
		if err := p.store.Append(item.ctx, item.event); err != nil {
			p.logger.ErrorContext(item.ctx, "failed to persist audit event", "action", item.event.Action, "error", err)
		}
	}
}

// Close stops accepting async events and waits for the buffer to drain.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.buffer != nil {
			close(p.buffer)
			p.wg.Wait()
		}
	})
}
