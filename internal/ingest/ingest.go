package ingest

import (
	"errors"
	"fmt"

	"ideaforge/internal/httpclient"
)

// Result aggregates one fetch run over every configured source.
type Result struct {
	TotalSources int           `json:"total_sources"`
	Success      int           `json:"success"`
	Failed       int           `json:"failed"`
	NewArticles  int           `json:"new_articles"`
	Errors       []SourceError `json:"errors"`
}

// SourceError is the per-source failure entry of a Result.
type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// FetchError means the feed document could not be retrieved (transport error or non-2xx).
type FetchError struct {
	Source     string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.Source, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError means the feed document was retrieved but could not be decoded.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func newFetchError(source string, err error) *FetchError {
	fe := &FetchError{Source: source, Err: err}
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		fe.StatusCode = se.StatusCode
	}
	return fe
}

// errorKind labels a per-source failure for metrics.
func errorKind(err error) string {
	var (
		fe *FetchError
		pe *ParseError
	)
	switch {
	case errors.As(err, &fe):
		return "fetch"
	case errors.As(err, &pe):
		return "parse"
	default:
		return "store"
	}
}
