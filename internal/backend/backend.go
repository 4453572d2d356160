package backend

import (
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/sashabaranov/go-openai"

	"question-extract/internal/models"
)

// Backend is the opaque completion service: one synchronous call in, raw
// completion text or a classified error out.
type Backend interface {
	Complete(ctx context.Context, req models.CompletionRequest) (string, error)
}

// ErrorKind classifies backend failures for the retry policy.
type ErrorKind string

const (
	KindTimeout          ErrorKind = "timeout"
	KindRateLimited      ErrorKind = "rate_limited"
	KindAuthFailed       ErrorKind = "auth_failed"
	KindMalformedRequest ErrorKind = "malformed_request"
	KindUnknown          ErrorKind = "unknown"
)

// Error is a classified backend failure.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend %s: %s", e.Kind, e.Message)
}

// Retryable reports whether the failure class is worth another attempt.
// Authentication and malformed-request errors never are.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindAuthFailed, KindMalformedRequest:
		return false
	}
	return true
}

// Classify maps a raw completion-call error onto the error taxonomy.
func Classify(err error) *Error {
	var be *Error
	if errors.As(err, &be) {
		return be
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{Kind: kindForStatus(apiErr.HTTPStatusCode), Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &Error{Kind: kindForStatus(reqErr.HTTPStatusCode), Message: reqErr.Error()}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: err.Error()}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: err.Error()}
	}

	return &Error{Kind: KindUnknown, Message: err.Error()}
}

func kindForStatus(status int) ErrorKind {
	switch status {
	case 429:
		return KindRateLimited
	case 401, 403:
		return KindAuthFailed
	case 400, 404, 422:
		return KindMalformedRequest
	default:
		return KindUnknown
	}
}
