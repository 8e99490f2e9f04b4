package errors

import (
	stderrors "errors"
	"fmt"
)

// Join command rejections.
var (
	ErrEmptyIdentity = fmt.Errorf("identity must not be empty")
	ErrAlreadyBound  = fmt.Errorf("connection already bound to an identity")
	ErrNotConnecting = fmt.Errorf("connection is not waiting for a join")
)

// Send command rejections.
var (
	ErrNotJoined   = fmt.Errorf("connection has not joined")
	ErrEmptyText   = fmt.Errorf("text must not be empty")
	ErrTextTooLong = fmt.Errorf("text exceeds the maximum length")
)

// Lifecycle.
var (
	ErrUnknownConnection = fmt.Errorf("unknown connection")
	ErrConnectionClosed  = fmt.Errorf("connection closed")
	ErrHubClosed         = fmt.Errorf("hub closed")
	ErrWorkerPanic       = fmt.Errorf("worker panic")
)

// Startup.
var (
	ErrEmptyWords  = fmt.Errorf("no censored words found")
	ErrUnknownKind = fmt.Errorf("unknown event kind")
)

// Wire codes sent back to clients.
const (
	CodeEmptyIdentity = "EMPTY_IDENTITY"
	CodeAlreadyBound  = "ALREADY_BOUND"
	CodeNotConnecting = "NOT_CONNECTING"
	CodeNotJoined     = "NOT_JOINED"
	CodeEmptyText     = "EMPTY_TEXT"
	CodeTextTooLong   = "TEXT_TOO_LONG"
	CodeBadRequest    = "BAD_REQUEST"
	CodeInternalError = "INTERNAL_ERROR"

	CodeUnknownConnection = "UNKNOWN_CONNECTION"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrEmptyIdentity, CodeEmptyIdentity},
	{ErrAlreadyBound, CodeAlreadyBound},
	{ErrNotConnecting, CodeNotConnecting},
	{ErrNotJoined, CodeNotJoined},
	{ErrEmptyText, CodeEmptyText},
	{ErrTextTooLong, CodeTextTooLong},
	{ErrUnknownConnection, CodeUnknownConnection},
}

// Code maps a command error to the code exposed on the wire.
// Anything outside the command taxonomy is reported as an internal error.
func Code(err error) string {
	for _, c := range codes {
		if stderrors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternalError
}

// IsRejection reports whether err is a recoverable command rejection.
func IsRejection(err error) bool {
	return Code(err) != CodeInternalError
}
