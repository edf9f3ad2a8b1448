package deverr

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"syscall"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "without cause",
			err:  New(KindControlNotSupported, "unknown control zoom", nil),
			want: "control-not-supported: unknown control zoom",
		},
		{
			name: "with cause",
			err:  New(KindDeviceBusy, "open /dev/video0", syscall.EBUSY),
			want: "device-busy: open /dev/video0: " + syscall.EBUSY.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	err := fmt.Errorf("set brightness: %w", New(KindControlOutOfRange, "300 > 255", nil))

	if !errors.Is(err, ErrControlOutOfRange) {
		t.Error("expected wrapped error to match ErrControlOutOfRange")
	}
	if errors.Is(err, ErrControlNotSupported) {
		t.Error("did not expect a match on a different kind")
	}
	if !errors.Is(err, &Error{Kind: KindControlOutOfRange, Message: "300 > 255"}) {
		t.Error("expected match on kind and message")
	}
	if errors.Is(err, &Error{Kind: KindControlOutOfRange, Message: "other"}) {
		t.Error("did not expect a match on a different message")
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := New(KindDevicePermissionDenied, "open", syscall.EACCES)
	if !errors.Is(err, syscall.EACCES) {
		t.Error("expected cause to be reachable")
	}
}

func TestFromErrno(t *testing.T) {
	tests := []struct {
		errno syscall.Errno
		want  Kind
	}{
		{syscall.ENOENT, KindDeviceNotFound},
		{syscall.ENODEV, KindDeviceNotFound},
		{syscall.ENXIO, KindDeviceNotFound},
		{syscall.EBUSY, KindDeviceBusy},
		{syscall.EACCES, KindDevicePermissionDenied},
		{syscall.EPERM, KindDevicePermissionDenied},
		{syscall.EINVAL, KindControlOutOfRange},
		{syscall.ERANGE, KindControlOutOfRange},
		{syscall.ENOTTY, KindControlNotSupported},
		{syscall.EIO, KindDeviceDisconnected},
		{syscall.ENOSPC, KindIO},
	}

	for _, tt := range tests {
		t.Run(tt.errno.Error(), func(t *testing.T) {
			if got := FromErrno(tt.errno); got != tt.want {
				t.Errorf("FromErrno(%v) = %q, want %q", tt.errno, got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"classified", Newf(KindDependencyMissing, "focus unavailable"), KindDependencyMissing},
		{"wrapped errno", fmt.Errorf("s_ctrl: %w", syscall.EBUSY), KindDeviceBusy},
		{"path error", &fs.PathError{Op: "open", Path: "/dev/video9", Err: syscall.ENOENT}, KindDeviceNotFound},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), KindTimeout},
		{"plain", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsKind(t *testing.T) {
	inner := New(KindControlReadOnly, "exposure", nil)
	err := Wrap(inner, "apply profile")
	if err.Kind != KindControlReadOnly {
		t.Errorf("Kind = %q, want %q", err.Kind, KindControlReadOnly)
	}
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestUserMessage(t *testing.T) {
	for _, kind := range Kinds {
		if MessageFor(kind) == "" {
			t.Errorf("no message for %q", kind)
		}
	}

	msg := UserMessage(fmt.Errorf("open: %w", syscall.EACCES))
	if !strings.Contains(msg, "elevated privileges") {
		t.Errorf("UserMessage() = %q, want permission hint", msg)
	}

	if MessageFor("bogus") != MessageFor(KindUnknown) {
		t.Error("unknown kinds should use the unknown message")
	}
}
