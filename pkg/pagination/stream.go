package pagination

import (
	"context"
	"errors"
	"sync"
)

// Result is one element of a Stream: an item or a page error.
type Result[T any] struct {
	Item T
	Err  error
}

// Stream delivers the items of a paginated endpoint on a channel.
//
// A single goroutine drives the same state machine as Iterator, so items
// and errors arrive in the same order and with the same termination
// rules. The goroutine runs at most one item ahead of the consumer and
// never has more than one page request in flight.
//
// Page errors are delivered and the stream keeps going. It ends when the
// iteration is exhausted, the context is cancelled, or Close is called.
type Stream[T any] struct {
	it     *Iterator[T]
	out    chan Result[T]
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	count  uint64
	lower  uint64
	hint   uint64
	hintOK bool
}

// NewStream starts streaming the fetcher's pages.
func NewStream[T any](ctx context.Context, f Fetcher[T], results Results, opts ...Option) *Stream[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream[T]{
		it:     NewIterator(f, results, opts...),
		out:    make(chan Result[T]),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

// Results returns the channel of items. It is closed when the stream ends.
func (s *Stream[T]) Results() <-chan Result[T] {
	return s.out
}

// Close stops the stream and aborts any in-flight page request.
// It waits for the streaming goroutine to exit.
func (s *Stream[T]) Close() {
	s.cancel()
	<-s.done
}

// SizeHint returns a lower and upper bound on the items still to come.
// The lower bound counts items already buffered from the current page.
// The upper bound is only known once a search endpoint reported a total.
func (s *Stream[T]) SizeHint() (lower, upper uint64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lower, s.hint, s.hintOK
}

// Count returns the number of items received from the server so far.
func (s *Stream[T]) Count() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Stream[T]) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.out)

	for {
		item, err := s.it.Next(ctx)
		if errors.Is(err, Done) {
			return
		}
		s.snapshot()

		select {
		case s.out <- Result[T]{Item: item, Err: err}:
		case <-ctx.Done():
			return
		}

		if err != nil && ctx.Err() != nil {
			return
		}
	}
}

func (s *Stream[T]) snapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count = s.it.Count()
	s.lower = uint64(len(s.it.buf))
	s.hint, s.hintOK = s.it.SizeHint()
}
