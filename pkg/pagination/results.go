package pagination

import "strconv"

// Paged is implemented by any parameter type that carries a Page.
// Embedding Page satisfies it through method promotion.
type Paged interface {
	Offset() uint64
	Limit() uint64
	SetLimit(limit uint64) error
	NextPage(next uint64) error
}

// Results caps the number of items an iteration returns across all pages.
// The zero value means all available results.
type Results struct {
	max     uint64
	bounded bool
}

// All requests every result the server is willing to return.
func All() Results {
	return Results{}
}

// Limit stops iteration after n items.
func Limit(n uint64) Results {
	return Results{max: n, bounded: true}
}

// Cap returns the requested maximum and whether one was set.
func (r Results) Cap() (uint64, bool) {
	return r.max, r.bounded
}

// String implements fmt.Stringer.
func (r Results) String() string {
	if !r.bounded {
		return "all"
	}
	return strconv.FormatUint(r.max, 10)
}

// Batch is one decoded page of results.
//
// Next is nil once the server has no further results. Total is only
// reported by search endpoints.
type Batch[T any] struct {
	Offset uint64  `json:"offset"`
	Next   *uint64 `json:"next,omitempty"`
	Total  *uint64 `json:"total,omitempty"`
	Data   []T     `json:"data"`
}

// Len returns the number of items in the batch.
func (b Batch[T]) Len() int {
	return len(b.Data)
}

// NextOffset returns the continuation offset, if any.
func (b Batch[T]) NextOffset() (uint64, bool) {
	if b.Next == nil {
		return 0, false
	}
	return *b.Next, true
}

// TotalCount returns the total number of matches reported by a search.
func (b Batch[T]) TotalCount() (uint64, bool) {
	if b.Total == nil {
		return 0, false
	}
	return *b.Total, true
}
