package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidURL marks a target that cannot be scraped as given.
var ErrInvalidURL = errors.New("invalid URL")

// TransportError wraps failures of the static HTTP fetch: connection
// errors, timeouts, and non-success status codes. A TransportError aborts
// the run before any output is produced.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport error for %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BrowserError wraps failures to acquire or drive a browser session.
// Stage identifies where the session broke (launch, connect, navigate).
type BrowserError struct {
	URL   string
	Stage string
	Err   error
}

func (e *BrowserError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("browser error at stage %q: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("browser error at stage %q for %s: %v", e.Stage, e.URL, e.Err)
}

func (e *BrowserError) Unwrap() error { return e.Err }

// ParseError wraps failures to turn a fetched body into a usable document
// tree, or to run a container query against it.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
	}
	return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RenderTimeoutError reports that no product container appeared within the
// readiness window after navigation. There is no underlying cause to
// unwrap: the page simply never produced a match.
type RenderTimeoutError struct {
	URL      string
	Selector string
	Wait     time.Duration
}

func (e *RenderTimeoutError) Error() string {
	return fmt.Sprintf("render timeout for %s: no match for %q after %s", e.URL, e.Selector, e.Wait)
}

// ExtractionError wraps an unexpected failure while reading one field out
// of a product container. It fails that product only, never the run.
type ExtractionError struct {
	Field string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error for field %q: %v", e.Field, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
