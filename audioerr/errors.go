// Package audioerr defines the failure taxonomy shared by the decoder, the
// feature extractor and the transport adapters.
package audioerr

import "errors"

// Error codes
const (
	CodeDecode     = "DECODE_FAILED"
	CodeEmptyAudio = "EMPTY_AUDIO"
	CodeAnalysis   = "ANALYSIS_FAILED"
	CodePayload    = "INVALID_PAYLOAD"
)

// Sentinels for errors.Is. Any *Error matches the sentinel with its code.
var (
	ErrDecode     = &Error{Code: CodeDecode, Message: "audio could not be decoded"}
	ErrEmptyAudio = &Error{Code: CodeEmptyAudio, Message: "decoded audio is empty"}
	ErrAnalysis   = &Error{Code: CodeAnalysis, Message: "audio analysis failed"}
	ErrPayload    = &Error{Code: CodePayload, Message: "invalid request payload"}
)

// Error is a classified pipeline failure
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewDecodeError reports an unreadable or unsupported container
func NewDecodeError(message string, cause error) *Error {
	return &Error{Code: CodeDecode, Message: message, Cause: cause}
}

// NewEmptyAudioError reports a zero-length decoded signal
func NewEmptyAudioError(message string) *Error {
	return &Error{Code: CodeEmptyAudio, Message: message}
}

// NewAnalysisError reports a numeric failure on a non-empty buffer
func NewAnalysisError(message string, cause error) *Error {
	return &Error{Code: CodeAnalysis, Message: message, Cause: cause}
}

// NewPayloadError reports malformed or missing transport input
func NewPayloadError(message string, cause error) *Error {
	return &Error{Code: CodePayload, Message: message, Cause: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
