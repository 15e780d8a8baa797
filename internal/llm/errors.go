package llm

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrEmptyResponse means the gateway answered but carried no usable message content.
var ErrEmptyResponse = errors.New("llm returned empty response")

// RateLimitedError is returned on HTTP 429 or when the body carries a rate-limit marker.
// Callers should surface it as "try again later" rather than as a model failure.
type RateLimitedError struct {
	StatusCode int
	Body       string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("llm gateway rate limited (status %d)", e.StatusCode)
}

// GatewayError is any other non-2xx answer from the gateway.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("llm gateway error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("llm gateway error: status %d: %s", e.StatusCode, e.Body)
}

// TransportError wraps connect, timeout and other network failures.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("llm transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsRateLimited reports whether err (or anything it wraps) is a RateLimitedError.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// Outcome names the failure class of err for logs and metrics.
func Outcome(err error) string {
	var (
		rl *RateLimitedError
		gw *GatewayError
		tr *TransportError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.As(err, &gw):
		return "gateway_error"
	case errors.As(err, &tr):
		return "transport_error"
	case errors.Is(err, ErrEmptyResponse):
		return "empty_response"
	default:
		return "error"
	}
}

const maxBodyExcerpt = 300

func excerpt(s string) string {
	if len(s) <= maxBodyExcerpt {
		return s
	}
	cut := maxBodyExcerpt
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
