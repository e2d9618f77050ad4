package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindNetwork       ErrorKind = "network"
	KindFetch         ErrorKind = "fetch"
	KindRenderTimeout ErrorKind = "render_timeout"
	KindParse         ErrorKind = "parse"
	KindValidation    ErrorKind = "validation"
	KindConfiguration ErrorKind = "configuration"
	KindThrottled     ErrorKind = "throttled"
	KindCanceled      ErrorKind = "canceled"
	KindUnknown       ErrorKind = "unknown"
)

// Error is the classified failure carried through the ingestion pipeline.
type Error struct {
	Kind   ErrorKind
	Op     string
	URL    string
	Status int // HTTP status for KindFetch
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" status=%d", e.Status)
	}
	if e.URL != "" {
		msg += " url=" + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func NetworkError(op, url string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, URL: url, Err: err}
}

func FetchError(op, url string, status int) error {
	return &Error{Kind: KindFetch, Op: op, URL: url, Status: status, Err: errors.New(http.StatusText(status))}
}

func RenderTimeoutError(op, url string, err error) error {
	return &Error{Kind: KindRenderTimeout, Op: op, URL: url, Err: err}
}

func ParseError(op, url string, err error) error {
	return &Error{Kind: KindParse, Op: op, URL: url, Err: err}
}

func ValidationError(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func ConfigurationError(op string, err error) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

func ThrottledError(op, url string, err error) error {
	return &Error{Kind: KindThrottled, Op: op, URL: url, Err: err}
}

// KindOf reports the classification of err. Context errors that were not
// wrapped by the pipeline map to KindCanceled.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	return KindUnknown
}

// Retryable reports whether the supervisor may spend another attempt on err.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	switch de.Kind {
	case KindNetwork, KindRenderTimeout, KindThrottled:
		return true
	case KindFetch:
		return de.Status >= 500 || de.Status == http.StatusTooManyRequests || de.Status == http.StatusRequestTimeout
	default:
		return false
	}
}
