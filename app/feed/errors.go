package feed

import (
	"errors"
	"fmt"
)

var (
	ErrFeedUnreachable = errors.New("feed unreachable")
	ErrFeedUnparseable = errors.New("feed unparseable")
	ErrFeedEmpty       = errors.New("feed has no items")
)

// FetchError carries the failure kind together with its cause so callers can
// match either with errors.Is.
type FetchError struct {
	Kind error
	URL  string
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newFetchError(kind error, url string, err error) *FetchError {
	return &FetchError{Kind: kind, URL: url, Err: err}
}
