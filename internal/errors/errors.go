// SPDX-FileCopyrightText: 2019 Synopsys, Inc.
//
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a harness failure.
type ErrorCode string

const (
	// ErrCommandExecution is returned when a control command failed on every attempt.
	ErrCommandExecution ErrorCode = "ERR_COMMAND_EXECUTION"
	// ErrResourceNotReady is returned when a wait exhausted its attempts without the predicate holding.
	ErrResourceNotReady ErrorCode = "ERR_RESOURCE_NOT_READY"
	// ErrResourceStillPresent is returned when a resource is still observable after teardown.
	ErrResourceStillPresent ErrorCode = "ERR_RESOURCE_STILL_PRESENT"
	// ErrProbeQuery is returned when the cluster could not be queried. It is never a not-found.
	ErrProbeQuery ErrorCode = "ERR_PROBE_QUERY"
)

// HarnessError is the typed error returned by commands, waits and probes.
type HarnessError struct {
	Code    ErrorCode
	Cause   error
	Message string
}

func (e *HarnessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Code: %s, Message: %s, Cause: %s", e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("Code: %s, Message: %s", e.Code, e.Message)
}

func (e *HarnessError) Unwrap() error {
	return e.Cause
}

// WrapError wraps err into a HarnessError. A nil err stays nil.
func WrapError(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &HarnessError{
		Code:    code,
		Cause:   err,
		Message: message,
	}
}

// New creates a HarnessError without a cause.
func New(code ErrorCode, message string) error {
	return &HarnessError{
		Code:    code,
		Message: message,
	}
}

// Code returns the code of the outermost HarnessError in the chain of err, or an empty code.
func Code(err error) ErrorCode {
	var herr *HarnessError
	if errors.As(err, &herr) {
		return herr.Code
	}
	return ""
}

// IsCode checks if err carries a HarnessError with the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && Code(err) == code
}

// IsCommandExecution checks if err is a command execution failure.
func IsCommandExecution(err error) bool {
	return IsCode(err, ErrCommandExecution)
}

// IsResourceNotReady checks if err is a readiness timeout.
func IsResourceNotReady(err error) bool {
	return IsCode(err, ErrResourceNotReady)
}

// IsResourceStillPresent checks if err reports a resource surviving teardown.
func IsResourceStillPresent(err error) bool {
	return IsCode(err, ErrResourceStillPresent)
}

// IsProbeQuery checks if err is a failed cluster query.
func IsProbeQuery(err error) bool {
	return IsCode(err, ErrProbeQuery)
}
