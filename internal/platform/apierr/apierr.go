package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/yungbote/paperlens-backend/internal/pkg/errkind"
	pkgerrors "github.com/yungbote/paperlens-backend/internal/pkg/errors"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// From maps a service error onto an HTTP status and a stable code.
// Unclassified errors become 500/internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, pkgerrors.ErrNotFound):
		return New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, pkgerrors.ErrConflict):
		return New(http.StatusConflict, "conflict", err)
	}
	switch kind := errkind.KindOf(err); kind {
	case errkind.KindValidation:
		return New(http.StatusBadRequest, string(kind), err)
	case errkind.KindRateLimit:
		return New(http.StatusTooManyRequests, string(kind), err)
	case errkind.KindTimeout:
		return New(http.StatusGatewayTimeout, string(kind), err)
	case errkind.KindProvider, errkind.KindParse, errkind.KindScrape:
		return New(http.StatusBadGateway, string(kind), err)
	}
	return New(http.StatusInternalServerError, "internal", errors.New("internal error"))
}
