package domain

import (
	"errors"
	"fmt"
)

var (
	ErrFetch    = errors.New("fetch failed")
	ErrDecode   = errors.New("decode failed")
	ErrShape    = errors.New("unexpected payload shape")
	ErrNotFound = errors.New("not found")
)

// FetchError is a network or HTTP status failure against a named feed.
type FetchError struct {
	Feed   string
	URL    string
	Status int // 0 when no response was received
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("fetch %s: status %d: %v", e.Feed, e.Status, e.Err)
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("fetch %s: status %d: %s", e.Feed, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("fetch %s: status %d", e.Feed, e.Status)
	default:
		return fmt.Sprintf("fetch %s: %v", e.Feed, e.Err)
	}
}

func (e *FetchError) Is(target error) bool { return target == ErrFetch }
func (e *FetchError) Unwrap() error        { return e.Err }

// DecodeError means the body was not valid JSON after BOM stripping.
type DecodeError struct {
	Feed string
	Err  error
}

func (e *DecodeError) Error() string        { return fmt.Sprintf("decode %s: %v", e.Feed, e.Err) }
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
func (e *DecodeError) Unwrap() error        { return e.Err }

// ShapeError means an expected top-level key is missing or has the wrong type.
type ShapeError struct {
	Feed string
	Key  string
	Want string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: expected %q to be %s", e.Feed, e.Key, e.Want)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }
