package ratpack

import (
	"context"
	"log/slog"

	"github.com/Kilo-411/ratpack/id"
	"github.com/Kilo-411/ratpack/stream"
)

// BindStream adapts a push-based source to the execution model: every
// inbound event becomes a continuation on the owning execution, in
// arrival order, so subscriber callbacks always run under the
// execution's single-runner guarantee even though the source may emit
// from an arbitrary goroutine. Completion and error both release the
// bridge's registered interest, resuming the execution toward
// completion.
func BindStream[T any](ctx context.Context, pub stream.Publisher[T]) (stream.Publisher[T], error) {
	e, err := Current(ctx)
	if err != nil {
		return nil, err
	}
	return &boundPublisher[T]{e: e, source: pub}, nil
}

type boundPublisher[T any] struct {
	e      *Execution
	source stream.Publisher[T]
}

// Subscribe must be called from a continuation of the owning execution;
// off-execution subscriptions are refused with a diagnostic, since
// registering interest from a foreign goroutine would race the
// execution's completion decision.
func (p *boundPublisher[T]) Subscribe(sub stream.Subscriber[T]) {
	e := p.e
	if e.loop.current.Load() != e {
		e.logger.Error("stream subscription refused off-execution",
			slog.String("error", ErrUnmanagedGoroutine.Error()),
		)
		return
	}

	subID := id.NewSubscriptionID()
	e.logger.Debug("stream bridged onto execution", slog.String("subscription_id", subID.String()))

	e.streamSubscribe(func(h *asyncHandle) {
		p.source.Subscribe(&boundSubscriber[T]{h: h, target: sub})
	})
}

// boundSubscriber forwards source callbacks as continuations. The
// source may call it from any goroutine; ordering is preserved by the
// execution's FIFO queue.
type boundSubscriber[T any] struct {
	h      *asyncHandle
	target stream.Subscriber[T]
}

func (s *boundSubscriber[T]) OnSubscribe(sub stream.Subscription) {
	s.h.event(func(_ context.Context) error {
		s.target.OnSubscribe(sub)
		return nil
	})
}

func (s *boundSubscriber[T]) OnNext(value T) {
	s.h.event(func(_ context.Context) error {
		s.target.OnNext(value)
		return nil
	})
}

func (s *boundSubscriber[T]) OnComplete() {
	s.h.complete(func(_ context.Context) error {
		s.target.OnComplete()
		return nil
	})
}

func (s *boundSubscriber[T]) OnError(err error) {
	s.h.complete(func(_ context.Context) error {
		s.target.OnError(err)
		return nil
	})
}
