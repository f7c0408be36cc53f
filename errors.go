package fixflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrTimeout signals that a request's deadline elapsed before a response.
	ErrTimeout = errors.New("request timed out")
	// ErrUnexpectedStatus signals a non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrNotFound signals a 404 from the backend.
	ErrNotFound = errors.New("not found")

	// ErrInvalidIssue signals a create request missing required fields.
	ErrInvalidIssue = errors.New("invalid issue")
	// ErrEmptyQuery signals a blank search query.
	ErrEmptyQuery = errors.New("empty search query")
	// ErrEmptyID signals a blank issue id.
	ErrEmptyID = errors.New("empty issue id")
	// ErrInvalidID signals an issue id that cannot be a single path segment.
	ErrInvalidID = errors.New("invalid issue id")
	// ErrInvalidFeedbackKind signals a feedback kind other than view or useful.
	ErrInvalidFeedbackKind = errors.New("invalid feedback kind")
)

// TimeoutError is returned when the per-request deadline fires first.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	// Round up so a sub-millisecond timeout never reads as 0ms.
	ms := int64((e.Timeout + time.Millisecond - 1) / time.Millisecond)
	return fmt.Sprintf("request timed out after %dms", ms)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// StatusError is returned for any non-2xx response. The message is fixed per
// operation; Detail holds the backend's explanation, if it sent one.
type StatusError struct {
	Op         string
	StatusCode int
	Detail     string
	message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.message, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Is lets a 404 match ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// maxErrorBody bounds how much of an error response is read for Detail.
const maxErrorBody = 64 << 10

func newStatusError(op operation, resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Op:         op.name,
		StatusCode: resp.StatusCode,
		Detail:     extractDetail(body),
		message:    op.failure,
	}
}

// extractDetail pulls the "detail" field out of a FastAPI error body.
// Validation errors carry a list there; it is kept as raw JSON.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) != nil || len(parsed.Detail) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(parsed.Detail, &s) == nil {
		return s
	}
	return string(parsed.Detail)
}
