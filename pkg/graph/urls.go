package graph

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Path templates relative to the API root.
const (
	pathPaperSearch  = "paper/search"
	pathAuthorSearch = "author/search"
	pathPaper        = "paper"
	pathAuthor       = "author"
)

// ErrInvalidID is wrapped by *IDError.
var ErrInvalidID = errors.New("invalid identifier")

// IDError reports a paper or author identifier that cannot be placed in a
// request path.
type IDError struct {
	ID string
}

// Error implements the error interface.
func (e *IDError) Error() string {
	return fmt.Sprintf("invalid identifier %q: empty, \".\" and \"..\" segments are not allowed", e.ID)
}

// Unwrap returns ErrInvalidID for use with errors.Is.
func (e *IDError) Unwrap() error {
	return ErrInvalidID
}

// ValidateID checks that id is usable as a path identifier. Identifiers
// may contain slashes, as DOIs do, but no segment may be empty, "." or
// "..".
func ValidateID(id string) error {
	for _, s := range strings.Split(id, "/") {
		if strings.TrimSpace(s) == "" || s == "." || s == ".." {
			return &IDError{ID: id}
		}
	}
	return nil
}

// escapeID escapes each slash-separated segment of id. DOI identifiers
// such as "DOI:10.18653/v1/N18-3011" keep their slashes.
func escapeID(id string) string {
	segments := strings.Split(id, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// resourcePath builds "<kind>/<id>[/<relation>]". The path is still
// returned for an invalid id so that wrappers can report it, but the
// error must stop any request.
func resourcePath(kind, id, relation string) (string, error) {
	p := kind + "/" + escapeID(id)
	if relation != "" {
		p += "/" + relation
	}
	return p, ValidateID(id)
}
