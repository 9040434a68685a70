package lightnvm

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

// Error represents a structured lightnvm error with context and errno mapping
type Error struct {
	Op     string        // Operation that failed (e.g., "BLOCK_GET", "PAGE_WRITE")
	Device string        // Device name ("" if not applicable)
	PPA    Addr          // Block or page address (0 if not applicable)
	Page   int           // Page index within the block (-1 if not applicable)
	Code   ErrorCode     // High-level error category
	Errno  syscall.Errno // Kernel errno (0 if not applicable)
	Msg    string        // Human-readable message
	Inner  error         // Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	if e.Device != "" {
		parts = append(parts, fmt.Sprintf("dev=%s", e.Device))
	}

	if e.PPA != 0 {
		parts = append(parts, fmt.Sprintf("ppa=0x%016x", uint64(e.PPA)))
	}

	if e.Page >= 0 {
		parts = append(parts, fmt.Sprintf("page=%d", e.Page))
	}

	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("lightnvm: %s (%s)", msg, strings.Join(parts, ", "))
	}

	return fmt.Sprintf("lightnvm: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support for the sentinel errors
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if se, ok := target.(SentinelError); ok {
		return e.Code == ErrorCode(se)
	}

	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}

	return false
}

// ErrorCode represents high-level error categories
type ErrorCode string

const (
	// ErrCodeDeviceRequest: the media manager refused a reservation,
	// release or mark request
	ErrCodeDeviceRequest ErrorCode = "device request failed"
	// ErrCodeIO: a physical erase, write or read submission failed
	ErrCodeIO ErrorCode = "I/O error"
	// ErrCodeInvalidState: the virtual block is not in a state that allows
	// the operation
	ErrCodeInvalidState       ErrorCode = "invalid virtual block state"
	ErrCodeInvalidParameters  ErrorCode = "invalid parameters"
	ErrCodeNoSpace            ErrorCode = "no free block"
	ErrCodeDeviceNotFound     ErrorCode = "device not found"
	ErrCodePermissionDenied   ErrorCode = "permission denied"
	ErrCodeDeviceClosed       ErrorCode = "device closed"
	ErrCodeNotImplemented     ErrorCode = "not implemented"
	ErrCodeInsufficientMemory ErrorCode = "insufficient memory"
)

// SentinelError is a code-only error usable as an errors.Is target
type SentinelError string

func (e SentinelError) Error() string {
	return "lightnvm: " + string(e)
}

const (
	ErrDeviceRequest     SentinelError = SentinelError(ErrCodeDeviceRequest)
	ErrIO                SentinelError = SentinelError(ErrCodeIO)
	ErrInvalidState      SentinelError = SentinelError(ErrCodeInvalidState)
	ErrInvalidParameters SentinelError = SentinelError(ErrCodeInvalidParameters)
	ErrNoSpace           SentinelError = SentinelError(ErrCodeNoSpace)
	ErrDeviceNotFound    SentinelError = SentinelError(ErrCodeDeviceNotFound)
	ErrPermissionDenied  SentinelError = SentinelError(ErrCodePermissionDenied)
	ErrDeviceClosed      SentinelError = SentinelError(ErrCodeDeviceClosed)
	ErrNotImplemented    SentinelError = SentinelError(ErrCodeNotImplemented)
)

// Error constructors

// NewError creates a new structured error
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:   op,
		Page: -1,
		Code: code,
		Msg:  msg,
	}
}

// NewErrorWithErrno creates a new structured error with errno
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return &Error{
		Op:    op,
		Page:  -1,
		Code:  code,
		Errno: errno,
		Msg:   errno.Error(),
	}
}

// NewBlockError creates an error tied to a block address
func NewBlockError(op, device string, ppa Addr, code ErrorCode, msg string) *Error {
	return &Error{
		Op:     op,
		Device: device,
		PPA:    ppa,
		Page:   -1,
		Code:   code,
		Msg:    msg,
	}
}

// WrapError wraps an existing error with lightnvm context. Plain errnos are
// mapped to a code; everything else becomes ErrCodeIO. The original error is
// always kept as Inner.
func WrapError(op string, inner error) *Error {
	return wrapWithCode(op, inner, "")
}

// wrapRequest wraps a failed reservation, release or mark
func wrapRequest(op, device string, ppa Addr, inner error) *Error {
	e := wrapWithCode(op, inner, ErrCodeDeviceRequest)
	if e == nil {
		return nil
	}
	e.Device = device
	e.PPA = ppa
	return e
}

// wrapIO wraps a failed physical submission
func wrapIO(op, device string, ppa Addr, page int, inner error) *Error {
	e := wrapWithCode(op, inner, ErrCodeIO)
	if e == nil {
		return nil
	}
	e.Device = device
	e.PPA = ppa
	e.Page = page
	return e
}

func wrapWithCode(op string, inner error, fallback ErrorCode) *Error {
	if inner == nil {
		return nil
	}

	// If it's already a structured error, just update the operation
	var le *Error
	if errors.As(inner, &le) {
		return &Error{
			Op:     op,
			Device: le.Device,
			PPA:    le.PPA,
			Page:   le.Page,
			Code:   le.Code,
			Errno:  le.Errno,
			Msg:    le.Msg,
			Inner:  le.Inner,
		}
	}

	code := ErrCodeIO
	if fallback != "" {
		code = fallback
	}

	var errno syscall.Errno
	if errors.As(inner, &errno) {
		if fallback == "" {
			code = mapErrnoToCode(errno)
		}
		return &Error{
			Op:    op,
			Page:  -1,
			Code:  code,
			Errno: errno,
			Msg:   inner.Error(),
			Inner: inner,
		}
	}

	return &Error{
		Op:    op,
		Page:  -1,
		Code:  code,
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// mapErrnoToCode maps syscall errno to lightnvm error codes. Errnos with no
// specific meaning map to ErrCodeIO.
func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.ENOENT, syscall.ENODEV, syscall.ENXIO:
		return ErrCodeDeviceNotFound
	case syscall.EINVAL, syscall.E2BIG:
		return ErrCodeInvalidParameters
	case syscall.ENOSYS, syscall.EOPNOTSUPP, syscall.ENOTTY:
		return ErrCodeNotImplemented
	case syscall.EPERM, syscall.EACCES:
		return ErrCodePermissionDenied
	case syscall.ENOSPC:
		return ErrCodeNoSpace
	case syscall.ENOMEM:
		return ErrCodeInsufficientMemory
	case syscall.EBADF:
		return ErrCodeDeviceClosed
	default:
		return ErrCodeIO
	}
}

// IsCode checks if an error matches a specific error code
func IsCode(err error, code ErrorCode) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// IsErrno checks if an error matches a specific errno
func IsErrno(err error, errno syscall.Errno) bool {
	var le *Error
	if errors.As(err, &le) {
		return le.Errno == errno
	}
	return false
}
