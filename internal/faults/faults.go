// Package faults defines the error kinds a harvest run distinguishes in its logs.
package faults

import (
	"errors"
	"fmt"
)

const (
	KindFetch      = "fetch"
	KindExtraction = "extraction"
	KindLedgerIO   = "ledger_io"
	KindEmit       = "emit"
	KindPanic      = "panic"
	KindUnknown    = "unknown"
)

// FetchError reports a network or HTTP failure for a single URL
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ExtractionFault reports a required element missing from a detail page
type ExtractionFault struct {
	URL   string
	Field string
}

func (e *ExtractionFault) Error() string {
	return fmt.Sprintf("extract %s: required field %q not found", e.URL, e.Field)
}

// LedgerIOFault reports that the visited-URL log could not be read or appended
type LedgerIOFault struct {
	Path string
	Op   string
	Err  error
}

func (e *LedgerIOFault) Error() string {
	return fmt.Sprintf("ledger %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *LedgerIOFault) Unwrap() error {
	return e.Err
}

// Kind resolves err, possibly wrapped, to one of the Kind constants
func Kind(err error) string {
	var fetchErr *FetchError
	var extractErr *ExtractionFault
	var ledgerErr *LedgerIOFault

	switch {
	case errors.As(err, &fetchErr):
		return KindFetch
	case errors.As(err, &extractErr):
		return KindExtraction
	case errors.As(err, &ledgerErr):
		return KindLedgerIO
	default:
		return KindUnknown
	}
}
