// Package stream defines the minimal push-based source contract that the
// execution core bridges onto executions: a Publisher emits zero or more
// values to a Subscriber from an arbitrary goroutine, then terminates
// with exactly one of OnComplete or OnError.
//
// This is deliberately not a reactive-streams implementation. There is
// no demand negotiation beyond the Subscription handle, no processor
// graph, and no operator library; third-party push sources are adapted
// at this boundary and consumed through an execution's single-runner
// guarantee.
package stream

// Subscription is the handle a Publisher gives its Subscriber for
// controlling the flow of events.
type Subscription interface {
	// Request signals demand for up to n more events. Publishers in this
	// package treat demand as unbounded and may ignore it.
	Request(n int64)

	// Cancel asks the publisher to stop emitting. Best effort: events
	// already in flight may still be delivered.
	Cancel()
}

// Subscriber receives events from a Publisher. OnSubscribe is invoked
// exactly once before any other call. After OnComplete or OnError, no
// further calls are made.
type Subscriber[T any] interface {
	OnSubscribe(s Subscription)
	OnNext(value T)
	OnComplete()
	OnError(err error)
}

// Publisher is a push-based source of values.
type Publisher[T any] interface {
	Subscribe(sub Subscriber[T])
}

// SubscriberFuncs adapts plain functions into a Subscriber. Nil fields
// are no-ops.
type SubscriberFuncs[T any] struct {
	OnSubscribeFunc func(Subscription)
	OnNextFunc      func(T)
	OnCompleteFunc  func()
	OnErrorFunc     func(error)
}

func (s *SubscriberFuncs[T]) OnSubscribe(sub Subscription) {
	if s.OnSubscribeFunc != nil {
		s.OnSubscribeFunc(sub)
	}
}

func (s *SubscriberFuncs[T]) OnNext(value T) {
	if s.OnNextFunc != nil {
		s.OnNextFunc(value)
	}
}

func (s *SubscriberFuncs[T]) OnComplete() {
	if s.OnCompleteFunc != nil {
		s.OnCompleteFunc()
	}
}

func (s *SubscriberFuncs[T]) OnError(err error) {
	if s.OnErrorFunc != nil {
		s.OnErrorFunc(err)
	}
}
