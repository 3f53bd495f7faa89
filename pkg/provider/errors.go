package provider

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
)

// Kind classifies why a provider call failed.
type Kind string

const (
	KindNetwork       Kind = "network"
	KindAuth          Kind = "auth"
	KindTimeout       Kind = "timeout"
	KindMalformed     Kind = "malformed"
	KindConfiguration Kind = "configuration"
	KindCanceled      Kind = "canceled"
	KindUnknown       Kind = "unknown"
)

// ErrEmptyResponse is wrapped into a KindMalformed error when a provider
// answers without any text.
var ErrEmptyResponse = errors.New("empty response")

// Error is the error type returned by providers.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func NewError(kind Kind, provider string, err error) *Error {
	if err == nil {
		err = errors.New(string(kind))
	}
	return &Error{Kind: kind, Provider: provider, Err: err}
}

func (e *Error) Error() string {
	if e.Provider == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Err.Error())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, KindUnknown if err is not a provider error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// Classify wraps err into an *Error. Errors that already are provider errors
// are returned unchanged.
func Classify(provider string, err error) *Error {
	if err == nil {
		return nil
	}

	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	return NewError(classifyKind(err), provider, err)
}

func classifyKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, ErrEmptyResponse) {
		return KindMalformed
	}

	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		return kindFromStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		return kindFromStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}

	return KindUnknown
}

func kindFromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusBadRequest || status == http.StatusNotFound || status == http.StatusUnprocessableEntity:
		return KindConfiguration
	default:
		return KindNetwork
	}
}
