// Package deverr defines the error kinds camera operations fail with and
// keeps a bounded history of recorded failures.
package deverr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Kind classifies a failure independently of the platform that produced it.
type Kind string

// Error kinds.
const (
	KindDeviceNotFound         Kind = "device-not-found"
	KindDeviceBusy             Kind = "device-busy"
	KindDevicePermissionDenied Kind = "device-permission-denied"
	KindDeviceDisconnected     Kind = "device-disconnected"
	KindControlNotSupported    Kind = "control-not-supported"
	KindControlOutOfRange      Kind = "control-value-out-of-range"
	KindControlReadOnly        Kind = "control-read-only"
	KindFormatNotSupported     Kind = "format-not-supported"
	KindResolutionNotSupported Kind = "resolution-not-supported"
	KindPlatformNotSupported   Kind = "platform-not-supported"
	KindDependencyMissing      Kind = "dependency-missing"
	KindPermissionDenied       Kind = "permission-denied"
	KindIO                     Kind = "io-error"
	KindTimeout                Kind = "timeout"
	KindUnknown                Kind = "unknown"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{
	KindDeviceNotFound,
	KindDeviceBusy,
	KindDevicePermissionDenied,
	KindDeviceDisconnected,
	KindControlNotSupported,
	KindControlOutOfRange,
	KindControlReadOnly,
	KindFormatNotSupported,
	KindResolutionNotSupported,
	KindPlatformNotSupported,
	KindDependencyMissing,
	KindPermissionDenied,
	KindIO,
	KindTimeout,
	KindUnknown,
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind. A target carrying a message
// must also match the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// With attaches a context value and returns e.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a classified error.
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// Newf creates a classified error with a formatted message and no cause.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...), nil)
}

// Wrap classifies cause with KindOf and attaches message. An *Error
// cause keeps its kind.
func Wrap(cause error, message string) *Error {
	if cause == nil {
		return nil
	}
	return New(KindOf(cause), message, cause)
}

// Sentinels for errors.Is checks by kind.
var (
	ErrDeviceNotFound      = &Error{Kind: KindDeviceNotFound}
	ErrDeviceBusy          = &Error{Kind: KindDeviceBusy}
	ErrControlNotSupported = &Error{Kind: KindControlNotSupported}
	ErrControlOutOfRange   = &Error{Kind: KindControlOutOfRange}
	ErrDependencyMissing   = &Error{Kind: KindDependencyMissing}
	ErrPlatformUnsupported = &Error{Kind: KindPlatformNotSupported}
)

// KindOf returns the kind of err. Unclassified errors go through
// FromError; nil returns "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return FromError(err)
}

// FromError maps OS and context errors to a kind.
func FromError(err error) Kind {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return FromErrno(errno)
	}

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return KindDeviceNotFound
	case errors.Is(err, fs.ErrPermission):
		return KindDevicePermissionDenied
	}
	return KindUnknown
}

// FromErrno maps an errno returned by a device call to a kind.
func FromErrno(errno syscall.Errno) Kind {
	switch errno {
	case syscall.ENOENT, syscall.ENODEV, syscall.ENXIO:
		return KindDeviceNotFound
	case syscall.EBUSY:
		return KindDeviceBusy
	case syscall.EACCES, syscall.EPERM:
		return KindDevicePermissionDenied
	case syscall.EINVAL, syscall.ERANGE:
		return KindControlOutOfRange
	case syscall.ENOTTY:
		return KindControlNotSupported
	case syscall.EIO:
		return KindDeviceDisconnected
	case syscall.ETIMEDOUT:
		return KindTimeout
	}
	return KindIO
}
