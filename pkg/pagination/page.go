package pagination

import (
	"fmt"
	"math/bits"
	"net/url"
	"strconv"
)

// Server-enforced paging bounds.
const (
	// LimitMin is the smallest page size the API accepts.
	// A limit of 0 is answered with "Unacceptable query params: [limit=0]".
	LimitMin uint64 = 1

	// LimitMax is the largest page size the API accepts.
	LimitMax uint64 = 100

	// LimitDefault is the page size used when none is given.
	LimitDefault = LimitMax

	// OffsetDefault is the starting offset used when none is given.
	OffsetDefault uint64 = 0

	// RangeCeiling is the largest value offset+limit may take.
	// The API refuses to return anything past the first 10 000 results.
	RangeCeiling uint64 = 9999

	// RangeLimit is the exclusive upper bound of offset+limit.
	RangeLimit = RangeCeiling + 1
)

// Page is a bounds-checked offset/limit window.
//
// The zero value is a valid page at offset 0 with the default limit.
type Page struct {
	offset uint64
	limit  uint64
}

// NewPage returns a page after checking both the limit window and the
// result range.
func NewPage(offset, limit uint64) (Page, error) {
	if err := checkBounds(offset, limit); err != nil {
		return Page{}, err
	}
	return Page{offset: offset, limit: limit}, nil
}

// WithOffset returns a page at offset with the default limit.
func WithOffset(offset uint64) (Page, error) {
	if err := checkRange(offset, LimitDefault); err != nil {
		return Page{}, err
	}
	return Page{offset: offset, limit: LimitDefault}, nil
}

// WithLimit returns a page at the default offset with the given limit.
func WithLimit(limit uint64) (Page, error) {
	return NewPage(OffsetDefault, limit)
}

// DefaultPage returns the first page with the default limit.
func DefaultPage() Page {
	return Page{offset: OffsetDefault, limit: LimitDefault}
}

// Offset returns the index of the first result in the window.
func (p Page) Offset() uint64 {
	return p.offset
}

// Limit returns the number of results requested for the window.
func (p Page) Limit() uint64 {
	if p.limit == 0 {
		return LimitDefault
	}
	return p.limit
}

// SetOffset moves the window to offset, keeping the current limit.
func (p *Page) SetOffset(offset uint64) error {
	if err := checkRange(offset, p.Limit()); err != nil {
		return err
	}
	p.offset = offset
	return nil
}

// SetLimit changes the window size, keeping the current offset.
func (p *Page) SetLimit(limit uint64) error {
	if err := checkBounds(p.offset, limit); err != nil {
		return err
	}
	p.limit = limit
	return nil
}

// NextPage moves the window to next.
//
// When the current limit would carry the window past RangeCeiling but
// some results are still reachable from next, the limit is silently
// clamped down to the largest value that fits and NextPage succeeds.
// Callers relying on a stable limit should re-read Limit afterwards.
//
// Once next sits at or beyond the ceiling nothing is reachable, and the
// returned *RangeBoundError means there are no more pages.
func (p *Page) NextPage(next uint64) error {
	err := checkRange(next, p.Limit())
	if err == nil {
		p.offset = next
		return nil
	}
	rangeErr := err.(*RangeBoundError)
	if !rangeErr.HasAvailable() {
		return rangeErr
	}
	p.offset = next
	p.limit = rangeErr.Available
	return nil
}

// Encode writes the offset and limit query parameters.
func (p Page) Encode(v url.Values) {
	v.Set("offset", strconv.FormatUint(p.offset, 10))
	v.Set("limit", strconv.FormatUint(p.Limit(), 10))
}

// String implements fmt.Stringer.
func (p Page) String() string {
	return fmt.Sprintf("offset=%d limit=%d", p.offset, p.Limit())
}

func checkBounds(offset, limit uint64) error {
	if err := checkLimit(limit); err != nil {
		return err
	}
	return checkRange(offset, limit)
}

func checkLimit(limit uint64) error {
	if limit < LimitMin || limit > LimitMax {
		return &LimitBoundError{Limit: limit}
	}
	return nil
}

// checkRange reports whether offset+limit stays within the result window.
// An overflowing sum is out of range with nothing available.
func checkRange(offset, limit uint64) error {
	sum, carry := bits.Add64(offset, limit, 0)
	if carry == 0 && sum <= RangeCeiling {
		return nil
	}
	return &RangeBoundError{
		Offset:    offset,
		Limit:     limit,
		Available: available(offset),
	}
}

// available returns the largest limit still valid at offset, or 0.
func available(offset uint64) uint64 {
	if offset >= RangeCeiling {
		return 0
	}
	return min(RangeCeiling-offset, LimitMax)
}
