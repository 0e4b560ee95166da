package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the fallback TTL when the response sets no max-age
	DefaultTTL = 10 * time.Minute

	// MaxBodySize bounds the bodies read into cache entries.
	MaxBodySize = 10 << 20
)

// replayHeaders are copied into cache entries.
var replayHeaders = []string{"Content-Type", "Content-Language"}

// ResponseToEntry converts an HTTP response to a CacheEntry.
// The response body is read and restored for the caller.
// It returns nil without error when the response must not be cached.
func ResponseToEntry(resp *http.Response, defaultTTL time.Duration) (*CacheEntry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	ttl, cacheable := freshness(resp.Header, defaultTTL)
	if !cacheable {
		return nil, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	headers := http.Header{}
	for _, name := range replayHeaders {
		if v := resp.Header.Get(name); v != "" {
			headers.Set(name, v)
		}
	}

	now := time.Now()
	return &CacheEntry{
		Data:       body,
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Expires:    now.Add(ttl),
		CachedAt:   now,
	}, nil
}

// EntryToResponse rebuilds an HTTP response for req from a cache entry.
func EntryToResponse(entry *CacheEntry, req *http.Request) *http.Response {
	headers := entry.Headers.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("Age", strconv.Itoa(int(entry.Age().Seconds())))

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", entry.StatusCode, http.StatusText(entry.StatusCode)),
		StatusCode:    entry.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        headers,
		Body:          io.NopCloser(bytes.NewReader(entry.Data)),
		ContentLength: int64(len(entry.Data)),
		Request:       req,
	}
}

// freshness reads Cache-Control and returns how long the response may be
// cached. no-store and no-cache disable caching.
func freshness(headers http.Header, defaultTTL time.Duration) (time.Duration, bool) {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	cc := headers.Get("Cache-Control")
	if cc == "" {
		return defaultTTL, true
	}

	for _, directive := range strings.Split(cc, ",") {
		directive = strings.ToLower(strings.TrimSpace(directive))
		switch {
		case directive == "no-store", directive == "no-cache":
			return 0, false
		case strings.HasPrefix(directive, "max-age="):
			seconds, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
			if err != nil {
				continue
			}
			if seconds <= 0 {
				return 0, false
			}
			return time.Duration(seconds) * time.Second, true
		}
	}
	return defaultTTL, true
}
