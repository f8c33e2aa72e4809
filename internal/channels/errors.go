package channels

import (
	"errors"
	"strings"
)

// ErrorCode classifies a transport failure. Codes appear in logs as "code".
type ErrorCode string

const (
	ErrCodeConnection     ErrorCode = "connection"
	ErrCodeAuthentication ErrorCode = "auth"
	ErrCodeRateLimit      ErrorCode = "rate_limit"
	ErrCodeBlocked        ErrorCode = "blocked" // user blocked the bot or left the chat
	ErrCodeSend           ErrorCode = "send"
	ErrCodeTimeout        ErrorCode = "timeout"
	ErrCodeConfig         ErrorCode = "config"
	ErrCodeInternal       ErrorCode = "internal"
)

// retryable lists the codes worth another attempt.
var retryable = map[ErrorCode]bool{
	ErrCodeConnection: true,
	ErrCodeRateLimit:  true,
	ErrCodeTimeout:    true,
}

// Error is a transport failure.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]any
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// WithContext records a key-value pair for logs and returns e.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

func (e *Error) IsRetryable() bool { return retryable[e.Code] }

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func ErrConfig(message string, err error) *Error     { return newError(ErrCodeConfig, message, err) }
func ErrConnection(message string, err error) *Error { return newError(ErrCodeConnection, message, err) }
func ErrSend(message string, err error) *Error       { return newError(ErrCodeSend, message, err) }
func ErrTimeout(message string, err error) *Error    { return newError(ErrCodeTimeout, message, err) }

// GetErrorCode returns the code of err, or ErrCodeInternal for errors that
// did not come from a transport.
func GetErrorCode(err error) ErrorCode {
	if e := asError(err); e != nil {
		return e.Code
	}
	return ErrCodeInternal
}

// IsRetryable reports whether err is a transient transport failure.
func IsRetryable(err error) bool {
	e := asError(err)
	return e != nil && e.IsRetryable()
}

func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// sendRules map fragments of Bot API error text to codes. The first match
// wins.
var sendRules = []struct {
	fragments []string
	code      ErrorCode
	message   string
}{
	{[]string{"too many requests", "429"}, ErrCodeRateLimit, "rate limited by telegram"},
	{[]string{"unauthorized", "401"}, ErrCodeAuthentication, "bot token rejected"},
	{[]string{"bot was blocked", "forbidden", "403"}, ErrCodeBlocked, "chat no longer reachable"},
	{[]string{"context canceled", "deadline exceeded"}, ErrCodeTimeout, "send cancelled"},
	{[]string{"connection refused", "no such host", "connection reset"}, ErrCodeConnection, "telegram unreachable"},
}

// ClassifySendError wraps a Bot API failure in an Error. Errors that already
// are channel Errors pass through unchanged.
func ClassifySendError(err error) *Error {
	if err == nil {
		return nil
	}
	if e := asError(err); e != nil {
		return e
	}
	msg := strings.ToLower(err.Error())
	for _, rule := range sendRules {
		for _, f := range rule.fragments {
			if strings.Contains(msg, f) {
				return newError(rule.code, rule.message, err)
			}
		}
	}
	return newError(ErrCodeSend, "failed to send message", err)
}
