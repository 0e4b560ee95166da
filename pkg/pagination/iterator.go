package pagination

import (
	"context"
	"errors"
	"iter"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Fetcher retrieves the page currently described by its Paged state.
type Fetcher[T any] interface {
	Paged
	Fetch(ctx context.Context) (Batch[T], error)
}

// Option configures an Iterator or Stream.
type Option func(*options)

type options struct {
	label  string
	logger zerolog.Logger
}

// WithLabel sets the endpoint label used in metrics and logs.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithLogger sets the logger used for page-level debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Iterator walks a paginated endpoint one item at a time.
//
// It owns its Fetcher for its whole lifetime and is not safe for
// concurrent use. Exactly one page is requested at a time, in increasing
// offset order.
type Iterator[T any] struct {
	fetcher Fetcher[T]
	results Results

	// buf holds the current page in reverse so items pop in server order.
	buf []T

	next     uint64
	hasNext  bool
	count    uint64
	total    uint64
	hasTotal bool
	done     bool

	label  string
	logger zerolog.Logger
}

// NewIterator returns an iterator that starts at the fetcher's current page.
func NewIterator[T any](f Fetcher[T], results Results, opts ...Option) *Iterator[T] {
	o := options{label: "unknown", logger: log.With().Str("component", "pagination").Logger()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Iterator[T]{
		fetcher: f,
		results: results,
		next:    f.Offset(),
		hasNext: true,
		label:   o.label,
		logger:  o.logger,
	}
}

// Next returns the next item, fetching a new page when the current one is
// drained. It returns Done once the server reports no further results, the
// requested cap is met, or the result window ceiling is reached.
//
// Any other error comes from fetching a page. The iterator does not stop
// or retry on such errors: the following call requests the same page
// again. An endpoint that keeps failing therefore yields errors forever,
// and callers wanting fail-fast behaviour should stop at the first error
// (see Collect).
func (it *Iterator[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if len(it.buf) == 0 {
		if it.done {
			return zero, Done
		}
		if reason, ok := it.advance(); !ok {
			it.finish(reason)
			return zero, Done
		}
		if err := it.fill(ctx); err != nil {
			return zero, err
		}
		if len(it.buf) == 0 {
			it.finish(stopEmpty)
			return zero, Done
		}
	}
	item := it.buf[len(it.buf)-1]
	it.buf = it.buf[:len(it.buf)-1]
	return item, nil
}

// All returns a range-over-func sequence of items and page errors.
//
// Page errors are yielded like items and iteration continues after them,
// except for context cancellation which ends the sequence.
func (it *Iterator[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			item, err := it.Next(ctx)
			if errors.Is(err, Done) {
				return
			}
			if !yield(item, err) {
				return
			}
			if err != nil && ctx.Err() != nil {
				return
			}
		}
	}
}

// Count returns the number of items received from the server so far.
func (it *Iterator[T]) Count() uint64 {
	return it.count
}

// Total returns the total match count reported by a search endpoint.
func (it *Iterator[T]) Total() (uint64, bool) {
	return it.total, it.hasTotal
}

// SizeHint returns an upper bound on the items still to be received.
// It is only known once a search endpoint has reported a total.
func (it *Iterator[T]) SizeHint() (uint64, bool) {
	if !it.hasTotal {
		return 0, false
	}
	upper := min(it.total, RangeCeiling)
	if want, ok := it.results.Cap(); ok {
		upper = min(upper, want)
	}
	if upper <= it.count {
		return 0, true
	}
	return upper - it.count, true
}

// advance moves the fetcher to the next window, shrinking the limit when
// the requested cap needs fewer items than a full page.
func (it *Iterator[T]) advance() (string, bool) {
	if want, ok := it.results.Cap(); ok {
		if it.count >= want {
			return stopCap, false
		}
		if it.hasNext {
			remaining := want - it.count
			if remaining < it.fetcher.Limit() {
				if err := it.fetcher.SetLimit(remaining); err != nil {
					return stopCap, false
				}
			}
		}
	}
	if !it.hasNext {
		return stopLast, false
	}
	if err := it.fetcher.NextPage(it.next); err != nil {
		return stopCeiling, false
	}
	return "", true
}

func (it *Iterator[T]) fill(ctx context.Context) error {
	batch, err := it.fetcher.Fetch(ctx)
	if err != nil {
		pageErrors.WithLabelValues(it.label).Inc()
		it.logger.Debug().
			Err(err).
			Str("endpoint", it.label).
			Uint64("offset", it.fetcher.Offset()).
			Uint64("limit", it.fetcher.Limit()).
			Msg("Page fetch failed")
		return err
	}

	data := batch.Data
	if want, ok := it.results.Cap(); ok && uint64(len(data)) > want-it.count {
		data = data[:want-it.count]
	}

	it.count = saturatingAdd(it.count, uint64(len(data)))
	it.next, it.hasNext = batch.NextOffset()
	if total, ok := batch.TotalCount(); ok {
		it.total, it.hasTotal = total, true
	}
	it.buf = slices.Clone(data)
	slices.Reverse(it.buf)

	pagesFetched.WithLabelValues(it.label).Inc()
	itemsReceived.WithLabelValues(it.label).Add(float64(len(data)))

	event := it.logger.Debug().
		Str("endpoint", it.label).
		Uint64("offset", it.fetcher.Offset()).
		Uint64("limit", it.fetcher.Limit()).
		Int("items", len(data)).
		Uint64("count", it.count)
	if it.hasNext {
		event = event.Uint64("next", it.next)
	}
	event.Msg("Page fetched")

	return nil
}

func (it *Iterator[T]) finish(reason string) {
	if it.done {
		return
	}
	it.done = true
	iterationsFinished.WithLabelValues(it.label, reason).Inc()
	it.logger.Debug().
		Str("endpoint", it.label).
		Str("reason", reason).
		Uint64("count", it.count).
		Msg("Iteration finished")
}

func saturatingAdd(a, b uint64) uint64 {
	if s := a + b; s >= a {
		return s
	}
	return ^uint64(0)
}
