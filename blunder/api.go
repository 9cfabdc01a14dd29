// Copyright (c) 2015-2021, NVIDIA CORPORATION.
// SPDX-License-Identifier: Apache-2.0

// Package blunder provides error-handling wrappers
//
// These wrappers allow callers to provide additional information in Go errors
// while still conforming to the Go error interface.
//
// This package provides APIs to add errno information to regular Go errors.
//
// This package is currently implemented on top of the ansel1/merry package:
//   https://github.com/ansel1/merry
//
//   From merry godoc:
//     You can add any context information to an error with `e = merry.WithValue(e, "code", 12345)`
//     You can retrieve that value with `v, _ := merry.Value(e, "code").(int)`
package blunder

import (
	"fmt"

	"github.com/ansel1/merry"
	"golang.org/x/sys/unix"

	"github.com/NVIDIA/pgas/logger"
)

// RuntimeError is the errno carried by errors raised in the runtime.
//
// Constants either map to linux/POSIX errnos as defined in errno.h or, for
// conditions not covered by the errno space, lie at or above 1000.
type RuntimeError int

const (
	NotPermError        RuntimeError = RuntimeError(int(unix.EPERM))     // Operation not permitted
	NotFoundError       RuntimeError = RuntimeError(int(unix.ENOENT))    // No such entry
	TryAgainError       RuntimeError = RuntimeError(int(unix.EAGAIN))    // Try again
	BadAddressError     RuntimeError = RuntimeError(int(unix.EFAULT))    // Bad address
	DevBusyError        RuntimeError = RuntimeError(int(unix.EBUSY))     // Device or resource busy
	InvalidArgError     RuntimeError = RuntimeError(int(unix.EINVAL))    // Invalid argument
	OutOfRangeError     RuntimeError = RuntimeError(int(unix.ERANGE))    // Math result not representable
	NotSupportedError   RuntimeError = RuntimeError(int(unix.ENOTSUP))   // Operation not supported
	NotConnectedError   RuntimeError = RuntimeError(int(unix.ENOTCONN))  // Transport endpoint is not connected
	TimedOut            RuntimeError = RuntimeError(int(unix.ETIMEDOUT)) // Timed out
	NotImplementedError RuntimeError = RuntimeError(int(unix.ENOSYS))    // Function not implemented
)

// Errors that map to constants already defined above
const (
	TypeMismatchError    RuntimeError = InvalidArgError
	UnknownProtocolError RuntimeError = NotSupportedError
	BadCoreError         RuntimeError = OutOfRangeError
	NotRunningError      RuntimeError = NotConnectedError
	AlreadyRunningError  RuntimeError = DevBusyError
)

const SuccessError RuntimeError = 0

const ( // reset iota to 0
	// Errors that are internal/specific to the runtime
	InvariantError RuntimeError = 1000 + iota
	ProtocolHaltError
)

const successErrno = 0
const failureErrno = -1

// Value returns the int value for the specified RuntimeError constant
func (err RuntimeError) Value() int {
	return int(err)
}

func (err RuntimeError) String() string {
	switch err {
	case SuccessError:
		return "SuccessError"
	case NotPermError:
		return "NotPermError"
	case NotFoundError:
		return "NotFoundError"
	case TryAgainError:
		return "TryAgainError"
	case BadAddressError:
		return "BadAddressError"
	case DevBusyError:
		return "DevBusyError"
	case InvalidArgError:
		return "InvalidArgError"
	case OutOfRangeError:
		return "OutOfRangeError"
	case NotSupportedError:
		return "NotSupportedError"
	case NotConnectedError:
		return "NotConnectedError"
	case TimedOut:
		return "TimedOut"
	case NotImplementedError:
		return "NotImplementedError"
	case InvariantError:
		return "InvariantError"
	case ProtocolHaltError:
		return "ProtocolHaltError"
	}
	return fmt.Sprintf("RuntimeError(%d)", int(err))
}

// NewError creates a new merry/blunder.RuntimeError-annotated error using the given
// format string and arguments.
func NewError(errValue RuntimeError, format string, a ...interface{}) error {
	return merry.WrapSkipping(fmt.Errorf(format, a...), 1).WithValue("errno", int(errValue))
}

// AddError is used to add runtime error detail to a Go error.
//
// NOTE: merry replaces a previously set errno; such replacement is logged.
func AddError(e error, errValue RuntimeError) error {
	if nil == e {
		return merry.New("regular error").WithValue("errno", int(errValue))
	}

	prevValue := Errno(e)
	if (prevValue != successErrno) && (prevValue != failureErrno) {
		logger.Warnf("replacing error value %v with value %v for error %v", prevValue, int(errValue), e)
	}

	return merry.WrapSkipping(e, 1).WithValue("errno", int(errValue))
}

// Errno extracts errno from the error, if it was previously wrapped.
// Otherwise a default value is returned.
func Errno(e error) int {
	if nil == e {
		return successErrno
	}

	errno, ok := merry.Value(e, "errno").(int)
	if !ok {
		return failureErrno
	}

	return errno
}

func ErrorString(e error) string {
	if nil == e {
		return ""
	}

	errno, ok := merry.Value(e, "errno").(int)
	if !ok {
		return e.Error()
	}

	return fmt.Sprintf("%s. Error Value: %v", e.Error(), errno)
}

// Is checks if an error matches a particular RuntimeError
//
// NOTE: Because the value of the underlying errno is used to do this check, one cannot
//       use this API to distinguish between RuntimeErrors that use the same errno value
//       (e.g. TypeMismatchError and InvalidArgError).
func Is(e error, theError RuntimeError) bool {
	return Errno(e) == theError.Value()
}

func IsNot(e error, theError RuntimeError) bool {
	return Errno(e) != theError.Value()
}

func IsSuccess(e error) bool {
	return Errno(e) == successErrno
}

func IsNotSuccess(e error) bool {
	return Errno(e) != successErrno
}

// Location returns the file and line number of the code that generated the error.
// Returns zero values if e has no stacktrace.
func Location(e error) (file string, line int) {
	file, line = merry.Location(e)
	return
}

// SourceLine returns the string representation of Location's result
func SourceLine(e error) string {
	return merry.SourceLine(e)
}

// Details wraps merry.Details, which returns all error details including stacktrace in a string.
func Details(e error) string {
	return merry.Details(e)
}

// Stacktrace wraps merry.Stacktrace, which returns error stacktrace (if set) in a string.
func Stacktrace(e error) string {
	return merry.Stacktrace(e)
}
