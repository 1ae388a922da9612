// Package rterrors provides the typed error taxonomy shared by every CORE
// component: workflow, agent, model, tool, configuration, retry-exhaustion
// and timeout failures. Errors preserve causal chains (errors.Is/As) while
// remaining cheap to construct in hot paths.
package rterrors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error into one of the categories from the error
// handling design.
type Kind string

const (
	// KindWorkflow covers step execution failures, invalid step output,
	// cycles and max-iteration violations in the workflow engine.
	KindWorkflow Kind = "workflow"
	// KindAgent covers agent execution failures: invalid input/output,
	// tool execution failures surfaced to the agent, max tool iterations,
	// missing model client, missing system prompt.
	KindAgent Kind = "agent"
	// KindModel covers model client failures: network, authentication,
	// rate-limit, invalid-request, invalid-response, model-not-found,
	// context-length-exceeded, server-error, parse.
	KindModel Kind = "model"
	// KindTool covers tool invocation failures: invalid parameters,
	// execution failed, timeout, not found, external-server connect/call.
	KindTool Kind = "tool"
	// KindConfiguration covers configuration load failures: missing
	// field, invalid value, validation, file-not-found, parse.
	KindConfiguration Kind = "configuration"
	// KindRetryExhausted marks a retry policy giving up after its last
	// attempt.
	KindRetryExhausted Kind = "retry-exhausted"
	// KindTimeout marks a deadline exceeded by a timeout-wrapped operation.
	KindTimeout Kind = "timeout"
)

// Sub-classifies KindModel failures (§4.6).
type ModelReason string

const (
	ReasonNetwork              ModelReason = "network"
	ReasonAuthentication       ModelReason = "authentication"
	ReasonRateLimit            ModelReason = "rate_limit"
	ReasonInvalidRequest       ModelReason = "invalid_request"
	ReasonInvalidResponse      ModelReason = "invalid_response"
	ReasonModelNotFound        ModelReason = "model_not_found"
	ReasonContextLengthExceed  ModelReason = "context_length_exceeded"
	ReasonServerError          ModelReason = "server_error"
	ReasonParse                ModelReason = "parse"
)

// Sub-classifies KindTool failures (§4.4, §4.7).
type ToolReason string

const (
	ToolReasonInvalidParameters   ToolReason = "invalid_parameters"
	ToolReasonExecutionFailed     ToolReason = "execution_failed"
	ToolReasonTimeout             ToolReason = "timeout"
	ToolReasonNotFound            ToolReason = "not_found"
	ToolReasonExternalConnect     ToolReason = "external_server_connect"
	ToolReasonExternalCall        ToolReason = "external_server_call"
)

// Error is the structured error value returned by every CORE operation.
// It preserves message and causal context while implementing the standard
// error interface, so errors.Is/As work through Cause.
type Error struct {
	// Kind classifies the failure per the taxonomy above.
	Kind Kind
	// Op names the operation that failed (e.g. "agent.execute", "workflow.run").
	Op string
	// ModelReason further classifies a KindModel error; empty otherwise.
	ModelReason ModelReason
	// ToolReason further classifies a KindTool error; empty otherwise.
	ToolReason ToolReason
	// Message is the human-readable summary of the failure.
	Message string
	// Retryable reports whether retrying the same operation may succeed
	// without modification. Meaningful chiefly for KindModel and KindTool.
	Retryable bool
	// Cause links to the underlying error, if any.
	Cause error
}

// New constructs an Error with the given kind, operation and message.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf formats message according to a format specifier.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error that chains an underlying cause.
func Wrap(kind Kind, op string, cause error, message string) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// WithRetryable sets the Retryable flag and returns e for chaining.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithModelReason sets ModelReason and returns e for chaining.
func (e *Error) WithModelReason(reason ModelReason) *Error {
	e.ModelReason = reason
	return e
}

// WithToolReason sets ToolReason and returns e for chaining.
func (e *Error) WithToolReason(reason ToolReason) *Error {
	e.ToolReason = reason
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
}

// Unwrap returns the underlying cause to support errors.Is/As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsRetryable reports whether err carries a retryable *Error. Non-Error
// values are treated as non-retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// RetryExhaustedError is returned by RetryPolicy.Execute when every attempt
// has been spent against a retryable error.
type RetryExhaustedError struct {
	// Op names the retried operation.
	Op string
	// Attempts is the total number of invocations made, including the first.
	Attempts int
	// LastErr is the error returned by the final attempt.
	LastErr error
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry-exhausted: %s: %d attempts: %v", e.Op, e.Attempts, e.LastErr)
}

// Unwrap returns the last underlying error.
func (e *RetryExhaustedError) Unwrap() error {
	return e.LastErr
}

// AsRTError converts RetryExhaustedError into the common *Error shape so
// callers can uniformly switch on Kind.
func (e *RetryExhaustedError) AsRTError() *Error {
	return &Error{
		Kind:    KindRetryExhausted,
		Op:      e.Op,
		Message: e.Error(),
		Cause:   e.LastErr,
	}
}

// TimeoutError describes an operation that did not complete before its
// deadline. timeout.Config.Execute returns it in its AsRTError form.
type TimeoutError struct {
	// Op names the operation that timed out.
	Op string
	// ElapsedMS is the wall-clock time spent before the deadline fired, in
	// milliseconds.
	ElapsedMS float64
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout: %s: exceeded deadline after %.3fms", e.Op, e.ElapsedMS)
}

// AsRTError converts TimeoutError into the common *Error shape.
func (e *TimeoutError) AsRTError() *Error {
	return &Error{Kind: KindTimeout, Op: e.Op, Message: e.Error()}
}

// Public-facing, UI-safe error strings. Callers may override these package
// variables at process startup to customize UX text.
var (
	// PublicTimeout is shown when a run fails due to a timeout.
	PublicTimeout = "The request timed out. Please retry."
	// PublicInternal is shown when a run fails for an unclassified reason.
	PublicInternal = "The request failed. Please retry."
	// PublicRateLimited is shown when the model provider is throttling requests.
	PublicRateLimited = "The model provider is rate-limiting requests. Please wait a moment and retry."
	// PublicProviderUnavailable is shown when the model provider is temporarily unavailable.
	PublicProviderUnavailable = "The model provider is temporarily unavailable. Please retry."
	// PublicInvalidRequest is shown when the provider rejects the request as invalid.
	PublicInvalidRequest = "The model provider rejected the request."
	// PublicAuth is shown when provider authentication fails.
	PublicAuth = "The model provider authentication failed."
)

// PublicMessage maps err to a user-safe string for direct UI rendering,
// falling back to PublicInternal when no specific mapping applies (§7
// "user-visible behaviour").
func PublicMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return PublicInternal
	}
	switch e.Kind {
	case KindTimeout:
		return PublicTimeout
	case KindModel:
		switch e.ModelReason {
		case ReasonRateLimit:
			return PublicRateLimited
		case ReasonServerError, ReasonNetwork:
			return PublicProviderUnavailable
		case ReasonInvalidRequest:
			return PublicInvalidRequest
		case ReasonAuthentication:
			return PublicAuth
		}
	}
	return PublicInternal
}
