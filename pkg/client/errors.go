package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrTransport marks failures to obtain a response at all.
	ErrTransport = errors.New("transport error")

	// ErrResponse marks non-2xx API responses.
	ErrResponse = errors.New("api response error")

	// ErrDecode marks 2xx responses whose body does not fit the expected type.
	ErrDecode = errors.New("decode error")

	// ErrMalformedBody marks a 2xx response whose body is not JSON.
	ErrMalformedBody = errors.New("malformed response body")

	// ErrInvalidURL marks request URLs that could not be built.
	ErrInvalidURL = errors.New("invalid request url")
)

// ErrorClass represents a classification of request failures.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// classifyStatus maps an HTTP status to an error class, or "" for success.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx means the request itself is wrong
		return false
	}
}

// APIErrorBody is the error object the Graph API returns.
// Depending on the endpoint it uses either the "error" or "message" key.
type APIErrorBody struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Text returns whichever of the two messages is set.
func (b APIErrorBody) Text() string {
	if b.Error != "" {
		return b.Error
	}
	return b.Message
}

// TransportError is returned when no response could be obtained.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

// Unwrap exposes both ErrTransport and the underlying cause.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// ResponseError is returned for non-2xx responses.
type ResponseError struct {
	StatusCode int
	URL        string
	Body       APIErrorBody
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("api returned status %d for %s: %s", e.StatusCode, e.URL, e.Body.Text())
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ResponseError) Unwrap() error {
	return ErrResponse
}

// Class returns the error class of the response status.
func (e *ResponseError) Class() ErrorClass {
	return classifyStatus(e.StatusCode)
}

// NotFound reports whether the API answered 404.
func (e *ResponseError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// DecodeError is returned when a 2xx body cannot be decoded into TypeName.
type DecodeError struct {
	TypeName string
	URL      string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not parse %s data from %s: %v", e.TypeName, e.URL, e.Err)
}

// Unwrap exposes both ErrDecode and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
