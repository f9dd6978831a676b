package realtime

import (
	"context"

	"anoa.com/notifiq/pkg/metrics"
)

// Snapshot is one full result of a live query.
type Snapshot[T any] struct {
	Value T
	Err   error
}

// Loader runs the query behind a live subscription.
type Loader[T any] func(ctx context.Context) (T, error)

// Live re-runs a query every time its topic signals a change and delivers the
// complete result. It is owned by a single consumer.
type Live[T any] struct {
	out    chan Snapshot[T]
	cancel context.CancelFunc
	done   chan struct{}
}

// Watch subscribes to topic before the first load, so a write that lands
// between the two is never missed.
func Watch[T any](ctx context.Context, hub Hub, topic string, load Loader[T]) (*Live[T], error) {
	sub, err := hub.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	l := &Live[T]{
		out:    make(chan Snapshot[T]),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	metrics.LiveSubscriptions.Inc()
	go l.run(ctx, sub, load)
	return l, nil
}

func (l *Live[T]) run(ctx context.Context, sub Subscription, load Loader[T]) {
	defer close(l.done)
	defer metrics.LiveSubscriptions.Dec()
	defer sub.Close()

	for {
		value, err := load(ctx)
		if ctx.Err() != nil {
			return
		}

		select {
		case l.out <- Snapshot[T]{Value: value, Err: err}:
		case <-ctx.Done():
			return
		}

		select {
		case <-sub.C():
		case <-ctx.Done():
			return
		}
	}
}

// C yields snapshots. A nil *Live yields a nil channel, which blocks forever
// in a select.
func (l *Live[T]) C() <-chan Snapshot[T] {
	if l == nil {
		return nil
	}
	return l.out
}

// Close releases the subscription. Once it returns no further snapshot is
// delivered. Safe to call on nil and more than once.
func (l *Live[T]) Close() {
	if l == nil {
		return
	}
	l.cancel()
	<-l.done
}
