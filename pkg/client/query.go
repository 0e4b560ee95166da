package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Endpoint describes one API call: where it goes and what it sends.
type Endpoint interface {
	Method() string
	Path() string
	Params() (url.Values, error)
}

// Labeler is implemented by endpoints that name themselves for metrics.
// The label must not contain request-specific values such as ids.
type Labeler interface {
	Label() string
}

type labelKey struct{}

// WithEndpointLabel attaches a metrics label to ctx.
func WithEndpointLabel(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, labelKey{}, label)
}

// EndpointLabel returns the label attached to ctx, or "other".
func EndpointLabel(ctx context.Context) string {
	if label, ok := ctx.Value(labelKey{}).(string); ok && label != "" {
		return label
	}
	return "other"
}

// Query performs e against r and decodes the response into T.
//
// Errors are one of *TransportError, *ResponseError or *DecodeError, or
// an error from building the request (parameter validation or
// ErrInvalidURL).
func Query[T any](ctx context.Context, r Requester, e Endpoint) (T, error) {
	var zero T

	params, err := e.Params()
	if err != nil {
		return zero, err
	}

	if l, ok := e.(Labeler); ok {
		ctx = WithEndpointLabel(ctx, l.Label())
	}

	req, err := r.NewRequest(ctx, e.Method(), e.Path(), params)
	if err != nil {
		return zero, err
	}
	target := req.URL.String()

	resp, err := r.Do(req)
	if err != nil {
		return zero, &TransportError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return zero, &TransportError{URL: target, Err: fmt.Errorf("read body: %w", err)}
	}

	return Decode[T](resp.StatusCode, target, body)
}

// Decode classifies a raw response and decodes it into T.
//
// A body that is not JSON is a malformed-body DecodeError on success and
// a ResponseError carrying the raw text otherwise. A non-2xx JSON body is
// read as an APIErrorBody. A 2xx JSON body that does not fit T is a
// DecodeError naming T.
func Decode[T any](status int, rawURL string, body []byte) (T, error) {
	var zero T
	success := status >= 200 && status < 300

	if !json.Valid(body) {
		if success {
			return zero, &DecodeError{
				TypeName: typeName[T](),
				URL:      rawURL,
				Err:      ErrMalformedBody,
			}
		}
		return zero, &ResponseError{
			StatusCode: status,
			URL:        rawURL,
			Body:       APIErrorBody{Message: truncate(strings.TrimSpace(string(body)), 512)},
		}
	}

	if !success {
		var apiErr APIErrorBody
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Text() == "" {
			apiErr = APIErrorBody{Message: truncate(string(body), 512)}
		}
		return zero, &ResponseError{StatusCode: status, URL: rawURL, Body: apiErr}
	}

	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return zero, &DecodeError{TypeName: typeName[T](), URL: rawURL, Err: err}
	}
	return v, nil
}

// Future is the pending result of QueryAsync.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// QueryAsync starts Query in a new goroutine.
// Cancelling ctx aborts the in-flight request.
func QueryAsync[T any](ctx context.Context, r Requester, e Endpoint) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = Query[T](ctx, r, e)
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or ctx is done. Abandoning
// the wait does not cancel the request; cancel the context passed to
// QueryAsync for that.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func typeName[T any]() string {
	var v T
	return fmt.Sprintf("%T", v)
}

func truncate(s string, n int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
