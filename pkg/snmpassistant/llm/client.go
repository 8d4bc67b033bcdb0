// Package llm is the boundary to the external chat-completion service used to
// translate requests and summarize results. It defines the ChatClient
// contract, an OpenAI-compatible implementation, error classification and the
// retry policy applied to every call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
)

// ChatRequest is a single system + user prompt exchange.
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int

	// JSONMode asks the model to return a single JSON object.
	JSONMode bool
}

// ChatResponse carries the text of the first choice.
type ChatResponse struct {
	Text string
}

// ChatClient sends one chat completion request.
type ChatClient interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// ─────────────────────────────────────────────────────────────────────────────
// Error classification
// ─────────────────────────────────────────────────────────────────────────────

// ErrorClass groups failures by how the retry policy treats them.
type ErrorClass int

const (
	// ClassOther is any failure not covered below. Never retried.
	ClassOther ErrorClass = iota
	// ClassRateLimit is an HTTP 429 from the service.
	ClassRateLimit
	// ClassConnection is a failure to reach the service at all.
	ClassConnection
	// ClassServer is an HTTP 5xx from the service.
	ClassServer
	// ClassClient is any other HTTP error status (4xx).
	ClassClient
)

func (c ErrorClass) String() string {
	switch c {
	case ClassRateLimit:
		return "rate_limit"
	case ClassConnection:
		return "connection"
	case ClassServer:
		return "server"
	case ClassClient:
		return "client"
	default:
		return "other"
	}
}

// Error is a classified failure returned by a ChatClient.
type Error struct {
	Class      ErrorClass
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm: %s error (status %d): %v", e.Class, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("llm: %s error: %v", e.Class, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ClassFromStatus maps an HTTP status code to an ErrorClass.
func ClassFromStatus(status int) ErrorClass {
	switch {
	case status == 429:
		return ClassRateLimit
	case status >= 500:
		return ClassServer
	case status >= 400:
		return ClassClient
	default:
		return ClassOther
	}
}

// Classify returns the class of err. A *Error keeps its own class; otherwise
// network-level failures are ClassConnection and everything else ClassOther.
// Context cancellation is never retryable.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassOther
	}
	var le *Error
	if errors.As(err, &le) {
		return le.Class
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassOther
	}
	if isConnectionError(err) {
		return ClassConnection
	}
	return ClassOther
}

func isConnectionError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset")
}
