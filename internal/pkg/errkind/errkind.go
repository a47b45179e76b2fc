// Package errkind classifies failures so retry policy, job status and HTTP
// responses agree on what went wrong.
package errkind

import (
	"context"
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation Kind = "validation"
	KindProvider   Kind = "provider"
	KindParse      Kind = "parse"
	KindRateLimit  Kind = "rate_limit"
	KindTimeout    Kind = "timeout"
	KindScrape     Kind = "scrape"
	KindInternal   Kind = "internal"
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, err error) *Error { return New(KindValidation, op, err) }
func Provider(op string, err error) *Error   { return New(KindProvider, op, err) }
func Parse(op string, err error) *Error      { return New(KindParse, op, err) }
func RateLimit(op string, err error) *Error  { return New(KindRateLimit, op, err) }
func Timeout(op string, err error) *Error    { return New(KindTimeout, op, err) }
func Scrape(op string, err error) *Error     { return New(KindScrape, op, err) }

func Validationf(op, format string, args ...any) *Error {
	return Validation(op, fmt.Errorf(format, args...))
}

// KindOf returns the outermost classified kind. Context deadlines count as
// timeouts; anything else unclassified is internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ke *Error
	if errors.As(err, &ke) && ke.Kind != "" {
		return ke.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Permanent kinds are never worth retrying at the job level.
func Permanent(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindTimeout, KindParse:
		return true
	default:
		return false
	}
}
