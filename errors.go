package fontpack

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes
const (
	NOERROR     int = 0
	EMISSING    int = 122 // resource does not exist
	EINVALID    int = 123 // validation failed
	ECONNECTION int = 124 // remote resource not connected
	EINTERNAL   int = 125 // internal error
	EAMBIGUOUS  int = 126 // more than one resource matches
	EEXTERNAL   int = 127 // external tool failed
	EINTEGRITY  int = 128 // checksum mismatch
)

func errorText(ecode int) string {
	switch ecode {
	case NOERROR:
		return "OK"
	case EMISSING:
		return "not found"
	case EINVALID:
		return "invalid"
	case ECONNECTION:
		return "transmission-error"
	case EINTERNAL:
		return "internal error"
	case EAMBIGUOUS:
		return "ambiguous"
	case EEXTERNAL:
		return "external tool failed"
	case EINTEGRITY:
		return "integrity check failed"
	}
	return "undefined error"
}

// AppError is an error with an associated error code and a user-message.
type AppError interface {
	error
	ErrorCode() int
	UserMessage() string
}

type packError struct {
	error
	code int
	msg  string
}

func (e packError) Unwrap() error {
	return e.error
}

// Error returns the user message followed by the text of the wrapped error,
// unless the message already ends with it.
func (e packError) Error() string {
	if e.error == nil {
		return e.msg
	}
	cause := e.error.Error()
	if strings.HasSuffix(e.msg, cause) {
		return e.msg
	}
	return e.msg + ": " + cause
}

func (e packError) ErrorCode() int {
	return e.code
}

func (e packError) UserMessage() string {
	return e.msg
}

var _ AppError = packError{}

// ErrorWithCode adds an error code to err's error chain.
// Unlike pkg/errors, ErrorWithCode will wrap nil error.
func ErrorWithCode(err error, code int) error {
	if err == nil {
		err = errors.New(errorText(code))
	}
	return packError{err, code, err.Error()}
}

// WrapError wraps an error, featuring an error code and a user message.
// If err is nil, the user message becomes the error text.
func WrapError(err error, code int, format string, v ...interface{}) error {
	msg := fmt.Sprintf(format, v...)
	if err == nil {
		err = errors.New(msg)
	}
	return packError{err, code, msg}
}

// Code returns the error code of the first AppError in err's chain, or
// NOERROR for nil and EINTERNAL for errors without a code.
func Code(err error) int {
	if err == nil {
		return NOERROR
	}
	var aerr AppError
	if errors.As(err, &aerr) {
		return aerr.ErrorCode()
	}
	return EINTERNAL
}

// UserMessage returns the user message of the first AppError in err's chain,
// falling back to err.Error().
func UserMessage(err error) string {
	if err == nil {
		return errorText(NOERROR)
	}
	var aerr AppError
	if errors.As(err, &aerr) {
		return aerr.UserMessage()
	}
	return err.Error()
}

// --- Error constructors for the pipeline's error taxonomy -------------------

// InvalidLicense is the configuration error for a license without templates.
func InvalidLicense(l License) error {
	return WrapError(nil, EINVALID, "%s is invalid license id.", l)
}

// FontNotFound is the resolution error for a font file that does not exist
// below the extraction root.
func FontNotFound(filename string) error {
	return WrapError(nil, EMISSING, "%s is not found.", filename)
}

// FontAmbiguous is the resolution error for a filename matching more than
// one file.
func FontAmbiguous(filename string) error {
	return WrapError(nil, EAMBIGUOUS, "2 or more files with same name as %s are found.", filename)
}

// ToolFailed is the error for an external tool exiting unsuccessfully.
func ToolFailed(err error, tool string) error {
	return WrapError(err, EEXTERNAL, "%s failed: %v", tool, err)
}

// ChecksumMismatch is the integrity error for a font whose SHA-256 does not
// match the descriptor.
func ChecksumMismatch(filename string) error {
	return WrapError(nil, EINTEGRITY, `SHA256 of "%s" is not matched.`, filename)
}
