package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Reason categorizes why a generation failed.
type Reason string

const (
	// ReasonBilling indicates payment or quota exhaustion (HTTP 402)
	ReasonBilling Reason = "billing"

	// ReasonRateLimit indicates rate limiting (HTTP 429)
	ReasonRateLimit Reason = "rate_limit"

	// ReasonAuth indicates authentication failure (HTTP 401, 403)
	ReasonAuth Reason = "auth"

	// ReasonTimeout indicates the request timed out
	ReasonTimeout Reason = "timeout"

	// ReasonServerError indicates server-side issues (HTTP 5xx)
	ReasonServerError Reason = "server_error"

	// ReasonInvalidRequest indicates client-side issues (HTTP 400)
	ReasonInvalidRequest Reason = "invalid_request"

	// ReasonModelUnavailable indicates the model does not exist or is offline
	ReasonModelUnavailable Reason = "model_unavailable"

	// ReasonContentFilter indicates the prompt or answer was blocked
	ReasonContentFilter Reason = "content_filter"

	// ReasonEmpty indicates the model returned no text
	ReasonEmpty Reason = "empty_response"

	// ReasonUnknown indicates an unclassified error
	ReasonUnknown Reason = "unknown"
)

// IsRetryable reports whether another attempt may succeed.
func (r Reason) IsRetryable() bool {
	switch r {
	case ReasonRateLimit, ReasonTimeout, ReasonServerError:
		return true
	default:
		return false
	}
}

// GenerationError is a failed call to a text generation model.
type GenerationError struct {
	Provider string
	Model    string
	Reason   Reason

	// Status is the HTTP status code, if known
	Status int

	Err error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", e.Provider)
	if e.Model != "" {
		fmt.Fprintf(&b, " (%s)", e.Model)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	if e.Status != 0 {
		fmt.Fprintf(&b, " status=%d", e.Status)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// newGenerationError classifies err. A non-zero status takes precedence over
// message heuristics.
func newGenerationError(provider, model string, status int, err error) *GenerationError {
	var existing *GenerationError
	if errors.As(err, &existing) {
		return existing
	}
	reason := classifyStatusCode(status)
	if reason == ReasonUnknown {
		reason = ClassifyError(err)
	}
	return &GenerationError{Provider: provider, Model: model, Reason: reason, Status: status, Err: err}
}

// ReasonOf returns the classification of err, classifying raw errors by
// their message.
func ReasonOf(err error) Reason {
	var gerr *GenerationError
	if errors.As(err, &gerr) {
		return gerr.Reason
	}
	return ClassifyError(err)
}

// ClassifyError inspects an error message and returns the matching Reason.
func ClassifyError(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}
	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "timeout", "deadline exceeded", "etimedout"):
		return ReasonTimeout
	case containsAny(msg, "rate limit", "rate_limit", "too many requests", "resource exhausted", "resource_exhausted", "429"):
		return ReasonRateLimit
	case containsAny(msg, "unauthorized", "unauthenticated", "invalid api key", "invalid_api_key",
		"api key not valid", "permission denied", "authentication", "401", "403"):
		return ReasonAuth
	case containsAny(msg, "billing", "payment", "quota", "insufficient", "402"):
		return ReasonBilling
	case containsAny(msg, "content_filter", "content policy", "safety", "blocked"):
		return ReasonContentFilter
	case containsAny(msg, "model not found", "model_not_found", "does not exist", "not found", "404"):
		return ReasonModelUnavailable
	case containsAny(msg, "internal server", "server error", "bad gateway", "service unavailable",
		"unavailable", "overloaded", "connection reset", "connection refused", "500", "502", "503", "504"):
		return ReasonServerError
	case containsAny(msg, "invalid argument", "invalid_argument", "bad request", "400"):
		return ReasonInvalidRequest
	}
	return ReasonUnknown
}

func classifyStatusCode(status int) Reason {
	switch {
	case status == 0:
		return ReasonUnknown
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ReasonAuth
	case status == http.StatusPaymentRequired:
		return ReasonBilling
	case status == http.StatusTooManyRequests:
		return ReasonRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ReasonTimeout
	case status == http.StatusBadRequest:
		return ReasonInvalidRequest
	case status == http.StatusNotFound:
		return ReasonModelUnavailable
	case status >= 500:
		return ReasonServerError
	default:
		return ReasonUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
