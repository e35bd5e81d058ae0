package outbox

import (
	"context"
	"sync"
	"testing"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-invoicing/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct{ id int }

func (testEvent) EventName() string { return "test.event" }

func TestBus_DeliversToSubscribers(t *testing.T) {
	bus := NewBus(nil, Config{})
	ctx := context.Background()

	var (
		mu  sync.Mutex
		got []int
	)
	bus.Subscribe("test.event", func(_ context.Context, e domoutbox.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.(testEvent).id)
		return nil
	})
	bus.Start(ctx)

	for i := 1; i <= 3; i++ {
		require.NoError(t, bus.Publish(ctx, testEvent{id: i}))
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(stopCtx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestBus_PublishAfterStop(t *testing.T) {
	bus := NewBus(nil, Config{})
	bus.Start(context.Background())
	require.NoError(t, bus.Stop(context.Background()))

	assert.ErrorIs(t, bus.Publish(context.Background(), testEvent{}), ErrBusStopped)
	assert.NoError(t, bus.Stop(context.Background()))
}

func TestBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewBus(nil, Config{})
	ctx := context.Background()

	delivered := make(chan struct{}, 1)
	bus.Subscribe("test.event", func(context.Context, domoutbox.Event) error {
		panic("boom")
	})
	bus.Subscribe("test.event", func(context.Context, domoutbox.Event) error {
		delivered <- struct{}{}
		return nil
	})
	bus.Start(ctx)

	require.NoError(t, bus.Publish(ctx, testEvent{}))
	require.NoError(t, bus.Stop(ctx))

	select {
	case <-delivered:
	default:
		t.Fatal("second handler did not run")
	}
}

func TestBus_PublishHonoursContext(t *testing.T) {
	bus := NewBus(nil, Config{QueueSize: 1})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, bus.Publish(ctx, testEvent{}))
	cancel()
	assert.ErrorIs(t, bus.Publish(ctx, testEvent{}), context.Canceled)
}

func TestBus_PublishWhenFull(t *testing.T) {
	bus := NewBus(nil, Config{QueueSize: 1})
	ctx := context.Background()

	require.NoError(t, bus.Publish(ctx, testEvent{id: 1}))
	assert.ErrorIs(t, bus.Publish(ctx, testEvent{id: 2}), ErrQueueFull)
}

type followUp struct{}

func (followUp) EventName() string { return "test.follow_up" }

func TestBus_HandlerPublishDoesNotStall(t *testing.T) {
	bus := NewBus(nil, Config{QueueSize: 1, HandlerTimeout: 5 * time.Second})
	ctx := context.Background()

	errs := make(chan error, 2)
	bus.Subscribe("test.event", func(hctx context.Context, _ domoutbox.Event) error {
		start := time.Now()
		errs <- bus.Publish(hctx, followUp{})
		errs <- bus.Publish(hctx, followUp{})
		if time.Since(start) > time.Second {
			t.Errorf("publish from handler blocked for %s", time.Since(start))
		}
		return nil
	})
	bus.Start(ctx)

	require.NoError(t, bus.Publish(ctx, testEvent{id: 1}))

	assert.NoError(t, <-errs)
	assert.ErrorIs(t, <-errs, ErrQueueFull)

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(stopCtx))
}
