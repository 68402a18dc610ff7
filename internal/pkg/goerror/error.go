// Package goerror carries the user-facing side of failures: a stable code
// that maps to an HTTP status, a message safe to show, and optional per
// field validation messages. The wrapped cause is for logs only.
package goerror

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels returned by repositories and mapped by usecases.
var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("resource conflict")
)

type Code int

const (
	CodeInternal Code = iota
	CodeInvalidFormat
	CodeInvalidInput
	CodeNotFound
	CodeConflict
	CodeTooManyRequest
	CodeUnauthorized
	CodeForbidden
	CodeUnavailable
)

var codeTable = [...]struct {
	name   string
	status int
	msg    string
}{
	CodeInternal:       {"INTERNAL", http.StatusInternalServerError, "Internal server error"},
	CodeInvalidFormat:  {"INVALID_FORMAT", http.StatusBadRequest, "Invalid request body"},
	CodeInvalidInput:   {"INVALID_INPUT", http.StatusUnprocessableEntity, "Validation error"},
	CodeNotFound:       {"NOT_FOUND", http.StatusNotFound, "Resource not found"},
	CodeConflict:       {"CONFLICT", http.StatusConflict, "Resource conflict"},
	CodeTooManyRequest: {"TOO_MANY_REQUESTS", http.StatusTooManyRequests, "Too many requests"},
	CodeUnauthorized:   {"UNAUTHORIZED", http.StatusUnauthorized, "Unauthorized"},
	CodeForbidden:      {"FORBIDDEN", http.StatusForbidden, "Forbidden"},
	CodeUnavailable:    {"UNAVAILABLE", http.StatusServiceUnavailable, "Service unavailable"},
}

func (c Code) entry() int {
	if c < 0 || int(c) >= len(codeTable) {
		return int(CodeInternal)
	}
	return int(c)
}

func (c Code) String() string { return "ERROR_CODE_" + codeTable[c.entry()].name }

// Status is the HTTP status for c; unknown codes are 500.
func (c Code) Status() int { return codeTable[c.entry()].status }

// Error is the structured error returned by usecases and rendered by the router.
type Error struct {
	cause  error
	msg    string
	code   Code
	fields map[string]string
}

func (e *Error) Error() string {
	switch {
	case e.cause != nil:
		return e.cause.Error()
	case e.msg != "":
		return e.msg
	default:
		return codeTable[e.code.entry()].msg
	}
}

// String is the verbose form for logs.
func (e *Error) String() string {
	return fmt.Sprintf("%s: %s (cause: %v)", e.code, e.Msg(), e.cause)
}

// Msg is the message safe to return to the client.
func (e *Error) Msg() string {
	if e.msg == "" {
		return codeTable[e.code.entry()].msg
	}
	return e.msg
}

func (e *Error) Code() Code                { return e.code }
func (e *Error) Fields() map[string]string { return e.fields }
func (e *Error) Unwrap() error             { return e.cause }
func (e *Error) StatusCode() int           { return e.code.Status() }

// CodeOf returns the Code carried by err, or CodeInternal when err is not an *Error.
func CodeOf(err error) Code {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.code
	}
	return CodeInternal
}

// NewServer hides err behind a generic 500 message.
func NewServer(err error) error {
	return &Error{cause: err, code: CodeInternal}
}

// NewBusiness reports a rule violation with a message for the client.
func NewBusiness(msg string, code Code) error {
	return &Error{msg: msg, code: code}
}

// WrapBusiness is NewBusiness keeping cause reachable through errors.Is/As.
// The client still only sees msg.
func WrapBusiness(cause error, msg string, code Code) error {
	return &Error{cause: cause, msg: msg, code: code}
}

// NewInvalidInput reports a validation failure. With err set, err carries the
// field messages (see validator.V10ValidationError). Otherwise kv lists
// field/message pairs; an odd kv is a programming error reported as a bad body.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		return &Error{cause: err, code: CodeInvalidInput}
	}
	if len(kv)%2 != 0 {
		return &Error{code: CodeInvalidFormat}
	}

	fields := make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return &Error{code: CodeInvalidInput, fields: fields}
}

// NewInvalidFormat reports a body or parameter that could not be decoded.
func NewInvalidFormat(msg ...string) error {
	e := &Error{code: CodeInvalidFormat}
	if len(msg) > 0 {
		e.msg = msg[0]
	}
	return e
}
