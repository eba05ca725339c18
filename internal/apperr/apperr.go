// Package apperr carries the error taxonomy shared by the orchestration
// services and the HTTP layer: validation, not-found, upstream and storage
// failures, with the failed stage attached so callers can tell which external
// call broke.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindUpstream
	KindStorage
)

type Error struct {
	Kind    Kind
	Stage   string // quote, order, persist, refresh, estimate, ...
	Message string

	// Set for KindUpstream: the upstream HTTP status and verbatim body.
	UpstreamStatus int
	UpstreamBody   string

	Err error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Stage != "" {
		return fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Storage(stage string, err error) *Error {
	return &Error{Kind: KindStorage, Stage: stage, Err: err}
}

// Upstream wraps an external call failure. status and body come from the
// upstream response when the call got that far; both are zero on transport
// errors.
func Upstream(stage string, err error, status int, body string) *Error {
	return &Error{
		Kind:           KindUpstream,
		Stage:          stage,
		Err:            err,
		UpstreamStatus: status,
		UpstreamBody:   body,
	}
}

func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// HTTPStatus maps an error to the status the handler should answer with.
// Upstream failures surface the upstream's own status when one was received.
func HTTPStatus(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		if appErr.UpstreamStatus >= 400 {
			return appErr.UpstreamStatus
		}
		return http.StatusBadGateway
	case KindStorage:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Meta returns diagnostic detail for the response envelope.
func Meta(err error) map[string]any {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return nil
	}
	meta := map[string]any{}
	if appErr.Stage != "" {
		meta["stage"] = appErr.Stage
	}
	if appErr.UpstreamStatus > 0 {
		meta["upstream_status"] = appErr.UpstreamStatus
	}
	if appErr.UpstreamBody != "" {
		meta["details"] = appErr.UpstreamBody
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
