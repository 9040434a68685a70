package lightnvm

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("PAGE_WRITE", ErrCodeInvalidParameters, "buffer too short")

	if err.Op != "PAGE_WRITE" {
		t.Errorf("Expected Op=PAGE_WRITE, got %s", err.Op)
	}

	if err.Code != ErrCodeInvalidParameters {
		t.Errorf("Expected Code=ErrCodeInvalidParameters, got %s", err.Code)
	}

	expected := "lightnvm: buffer too short (op=PAGE_WRITE)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestBlockErrorMessage(t *testing.T) {
	err := NewBlockError("BLOCK_PUT", "nvme0n1", Addr(0x2a), ErrCodeInvalidState, "virtual block is released")
	err.Page = 3

	expected := "lightnvm: virtual block is released (op=BLOCK_PUT, dev=nvme0n1, ppa=0x000000000000002a, page=3)"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestWrapError(t *testing.T) {
	inner := syscall.ENOENT
	err := WrapError("OPEN", inner)

	if err.Code != ErrCodeDeviceNotFound {
		t.Errorf("Expected Code=ErrCodeDeviceNotFound, got %s", err.Code)
	}

	if err.Errno != syscall.ENOENT {
		t.Errorf("Expected Errno=ENOENT, got %v", err.Errno)
	}

	if !errors.Is(err, syscall.ENOENT) {
		t.Error("Expected wrapped error to satisfy errors.Is for ENOENT")
	}

	if WrapError("OPEN", nil) != nil {
		t.Error("WrapError(nil) should return nil")
	}
}

func TestWrapErrorFindsNestedErrno(t *testing.T) {
	inner := fmt.Errorf("PIO opcode 0x91 failed: %w", syscall.EIO)
	err := WrapError("WRITE", inner)

	if err.Errno != syscall.EIO {
		t.Errorf("Expected Errno=EIO, got %v", err.Errno)
	}
	if err.Code != ErrCodeIO {
		t.Errorf("Expected Code=ErrCodeIO, got %s", err.Code)
	}
	if !errors.Is(err, syscall.EIO) {
		t.Error("Expected errors.Is to reach the nested errno")
	}
}

func TestRequestAndIOWrapping(t *testing.T) {
	// Request failures keep their category regardless of errno
	req := wrapRequest("BLOCK_GET", "nvme0n1", 0, syscall.ENOSPC)
	if req.Code != ErrCodeDeviceRequest {
		t.Errorf("Expected Code=ErrCodeDeviceRequest, got %s", req.Code)
	}
	if !errors.Is(req, syscall.ENOSPC) {
		t.Error("Expected request error to preserve ENOSPC")
	}
	if !errors.Is(req, ErrDeviceRequest) {
		t.Error("Expected request error to match ErrDeviceRequest")
	}

	io := wrapIO("PAGE_READ", "nvme0n1", Addr(0x10), 7, syscall.EINVAL)
	if io.Code != ErrCodeIO {
		t.Errorf("Expected Code=ErrCodeIO, got %s", io.Code)
	}
	if io.Page != 7 {
		t.Errorf("Expected Page=7, got %d", io.Page)
	}
	if io.Device != "nvme0n1" {
		t.Errorf("Expected Device=nvme0n1, got %s", io.Device)
	}
}

func TestSentinelErrors(t *testing.T) {
	var sentinelErr error = ErrDeviceNotFound

	structuredErr := &Error{Code: ErrCodeDeviceNotFound}

	if !errors.Is(structuredErr, ErrDeviceNotFound) {
		t.Error("Structured error should match sentinel via errors.Is")
	}

	if sentinelErr.Error() != "lightnvm: device not found" {
		t.Errorf("Expected sentinel error message, got %q", sentinelErr.Error())
	}

	wrappedErr := WrapError("OPEN", syscall.ENOENT)
	if !errors.Is(wrappedErr, ErrDeviceNotFound) {
		t.Error("Wrapped ENOENT should match ErrDeviceNotFound")
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("TEST", ErrCodeInvalidState, "not reserved")

	if !IsCode(err, ErrCodeInvalidState) {
		t.Error("IsCode should return true for matching code")
	}

	if IsCode(err, ErrCodeIO) {
		t.Error("IsCode should return false for non-matching code")
	}

	if IsCode(nil, ErrCodeInvalidState) {
		t.Error("IsCode should return false for nil error")
	}

	// Codes survive further wrapping
	outer := fmt.Errorf("write block: %w", err)
	if !IsCode(outer, ErrCodeInvalidState) {
		t.Error("IsCode should look through fmt wrapping")
	}
}

func TestIsErrno(t *testing.T) {
	err := WrapError("TEST", syscall.EIO)

	if !IsErrno(err, syscall.EIO) {
		t.Error("IsErrno should return true for matching errno")
	}

	if IsErrno(err, syscall.EPERM) {
		t.Error("IsErrno should return false for non-matching errno")
	}

	if IsErrno(nil, syscall.EIO) {
		t.Error("IsErrno should return false for nil error")
	}
}

func TestErrnoMapping(t *testing.T) {
	testCases := []struct {
		errno    syscall.Errno
		expected ErrorCode
	}{
		{syscall.ENOENT, ErrCodeDeviceNotFound},
		{syscall.ENODEV, ErrCodeDeviceNotFound},
		{syscall.EINVAL, ErrCodeInvalidParameters},
		{syscall.EPERM, ErrCodePermissionDenied},
		{syscall.EACCES, ErrCodePermissionDenied},
		{syscall.ENOSPC, ErrCodeNoSpace},
		{syscall.ENOMEM, ErrCodeInsufficientMemory},
		{syscall.ENOTTY, ErrCodeNotImplemented},
		{syscall.EBADF, ErrCodeDeviceClosed},
		{syscall.EIO, ErrCodeIO},
	}

	for _, tc := range testCases {
		code := mapErrnoToCode(tc.errno)
		if code != tc.expected {
			t.Errorf("mapErrnoToCode(%v) = %s, want %s", tc.errno, code, tc.expected)
		}
	}
}
