package stream

// nopSubscription is handed to subscribers of the trivial publishers
// below, which emit eagerly and ignore demand.
type nopSubscription struct{}

func (nopSubscription) Request(int64) {}
func (nopSubscription) Cancel()       {}

type valuesPublisher[T any] struct {
	values []T
}

func (p valuesPublisher[T]) Subscribe(sub Subscriber[T]) {
	sub.OnSubscribe(nopSubscription{})
	for _, v := range p.values {
		sub.OnNext(v)
	}
	sub.OnComplete()
}

// Of returns a Publisher that synchronously emits the given values to
// each subscriber and then completes.
func Of[T any](values ...T) Publisher[T] {
	return valuesPublisher[T]{values: values}
}

type failPublisher[T any] struct {
	err error
}

func (p failPublisher[T]) Subscribe(sub Subscriber[T]) {
	sub.OnSubscribe(nopSubscription{})
	sub.OnError(p.err)
}

// Fail returns a Publisher that emits no values and terminates each
// subscription with err.
func Fail[T any](err error) Publisher[T] {
	return failPublisher[T]{err: err}
}

// PublisherFunc adapts a function into a Publisher.
type PublisherFunc[T any] func(sub Subscriber[T])

func (f PublisherFunc[T]) Subscribe(sub Subscriber[T]) { f(sub) }
