package outbox

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability"
	"github.com/Zhima-Mochi/minishop-invoicing/internal/observability/logctx"
)

const componentOutbox = "outbox"

var (
	ErrBusStopped = errors.New("outbox: bus stopped")
	ErrQueueFull  = errors.New("outbox: queue full")
)

type Config struct {
	QueueSize      int
	Concurrency    int
	HandlerTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	if c.HandlerTimeout <= 0 {
		c.HandlerTimeout = 30 * time.Second
	}
	return c
}

// Bus is an in-memory event bus with asynchronous fan-out to subscribers.
// It is not durable: queued events are lost if the process dies.
type Bus struct {
	mu      sync.RWMutex
	subs    map[string][]domoutbox.Handler
	queue   chan domoutbox.Event
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}

	cfg Config
	log observability.Logger
}

var _ domoutbox.Bus = (*Bus)(nil)

func NewBus(logger observability.Logger, cfg Config) *Bus {
	if logger == nil {
		logger = observability.NopLogger()
	}
	cfg = cfg.withDefaults()
	return &Bus{
		subs:  make(map[string][]domoutbox.Handler),
		queue: make(chan domoutbox.Event, cfg.QueueSize),
		done:  make(chan struct{}),
		cfg:   cfg,
		log:   logger.With(observability.F("component", componentOutbox)),
	}
}

func (b *Bus) Subscribe(eventName string, h domoutbox.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[eventName] = append(b.subs[eventName], h)
}

func (b *Bus) Start(ctx context.Context) {
	b.startOnce.Do(func() {
		go b.dispatchLoop(context.WithoutCancel(ctx))
		logctx.FromOr(ctx, b.log).Info("event_bus_started")
	})
}

// Stop refuses new events, lets the dispatcher drain what is already queued,
// and waits for it to finish or for ctx to expire.
func (b *Bus) Stop(ctx context.Context) error {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		close(b.queue)
		b.mu.Unlock()
	})

	select {
	case <-b.done:
		logctx.FromOr(ctx, b.log).Info("event_bus_stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish enqueues e without waiting. Handlers publish from the dispatcher
// goroutine, so a full queue is reported as ErrQueueFull instead of blocking.
func (b *Bus) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopped {
		return ErrBusStopped
	}

	logger := logctx.FromOr(ctx, b.log).With(observability.F("event", e.EventName()))
	select {
	case b.queue <- e:
		logger.Debug("event_enqueued")
		return nil
	default:
		logger.Warn("event_dropped_queue_full",
			observability.F("queue_size", b.cfg.QueueSize),
		)
		return ErrQueueFull
	}
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for e := range b.queue {
		b.fanout(ctx, e)
	}
}

func (b *Bus) fanout(ctx context.Context, e domoutbox.Event) {
	name := e.EventName()

	b.mu.RLock()
	handlers := append([]domoutbox.Handler(nil), b.subs[name]...)
	b.mu.RUnlock()

	logger := b.log.With(observability.F("event", name))
	if len(handlers) == 0 {
		logger.Debug("event_dropped_no_subscriber")
		return
	}

	sem := make(chan struct{}, b.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, h := range handlers {
		h := h
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event_handler_panic",
						observability.F("panic", r),
						observability.F("stack", string(debug.Stack())),
					)
				}
				<-sem
				wg.Done()
			}()

			hctx, cancel := context.WithTimeout(ctx, b.cfg.HandlerTimeout)
			defer cancel()
			hctx = logctx.With(hctx, logger)
			if err := h(hctx, e); err != nil {
				logger.Warn("event_handler_error",
					observability.F("error", err),
				)
			}
		}()
	}

	wg.Wait()

	logger.Debug("event_fanned_out",
		observability.F("handlers", len(handlers)),
	)
}
