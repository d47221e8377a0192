package types

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

func (e ErrorCode) String() string {
	return string(e)
}

const (
	InternalServiceError ErrorCode = "INTERNAL_SERVICE_ERROR"
	ValidationError      ErrorCode = "VALIDATION_ERROR"
	NotFound             ErrorCode = "NOT_FOUND"
	BadRequest           ErrorCode = "BAD_REQUEST"
	RequestTimeout       ErrorCode = "REQUEST_TIMEOUT"

	// NetworkError means the ledger node (or the wallet bridge) was
	// unreachable. Safe to retry from the caller side.
	NetworkError ErrorCode = "NETWORK_ERROR"
	// SchemaMismatch means a parameter value did not fit the entrypoint's
	// schema, or the entrypoint is absent from the schema.
	SchemaMismatch ErrorCode = "SCHEMA_MISMATCH"
	// DecodeError means a return value could not be decoded against the
	// schema, including a schema version mismatch. Fatal until the schema
	// cache is invalidated.
	DecodeError ErrorCode = "DECODE_ERROR"
	// InvokeRevert means the contract rejected the invocation. The mapped
	// reason is carried by the wrapped RevertError.
	InvokeRevert ErrorCode = "INVOKE_REVERT"
	// UserRejected means the wallet declined to sign. Silent cancel.
	UserRejected ErrorCode = "USER_REJECTED"
	// PartialFailure means a multi-step operation committed some steps
	// before a later step failed. The wrapped PartialFailureError carries
	// the failed step index so the caller can offer a targeted retry.
	PartialFailure ErrorCode = "PARTIAL_FAILURE"
	// TimedOut means a finalization wait was abandoned locally. The
	// transaction is not retracted and may still finalize; this is never
	// proof of failure.
	TimedOut ErrorCode = "TIMED_OUT"
	// StaleData means a refresh failed and the previously cached value
	// was retained.
	StaleData ErrorCode = "STALE_DATA"
)

// Error represents an error with an HTTP status code and an
// application-specific error code.
type Error struct {
	Err        error
	StatusCode int
	ErrorCode  ErrorCode
}

const UninitializedStatusCode = 0

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the provided status code, error code,
// and underlying error. If the status code is not provided (0), it
// defaults to http.StatusInternalServerError(500). If the error code is
// empty, it defaults to INTERNAL_SERVICE_ERROR.
func NewError(statusCode int, errorCode ErrorCode, err error) *Error {
	if statusCode == UninitializedStatusCode {
		statusCode = http.StatusInternalServerError
	}
	if errorCode == "" {
		errorCode = InternalServiceError
	}
	return &Error{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Err:        err,
	}
}

func NewErrorWithMsg(statusCode int, errorCode ErrorCode, msg string) *Error {
	return NewError(statusCode, errorCode, errors.New(msg))
}

func NewInternalServiceError(err error) *Error {
	return &Error{
		StatusCode: http.StatusInternalServerError,
		ErrorCode:  InternalServiceError,
		Err:        err,
	}
}

// RevertError carries the domain-mapped reason of a contract rejection.
type RevertError struct {
	Reason RevertReason
	Detail string
}

func (e *RevertError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("contract rejected invocation: %s", e.Reason)
	}
	return fmt.Sprintf("contract rejected invocation: %s: %s", e.Reason, e.Detail)
}

// NewRevertError wraps a mapped revert reason into the standard Error
// shape. Reverts are non-retryable without changing the request, hence
// 400.
func NewRevertError(reason RevertReason, detail string) *Error {
	return NewError(http.StatusBadRequest, InvokeRevert, &RevertError{Reason: reason, Detail: detail})
}

// AsRevertError extracts the RevertError from an error chain, if any.
func AsRevertError(err error) (*RevertError, bool) {
	var re *RevertError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// PartialFailureError is returned when step N of a multi-step operation
// fails after steps 0..N-1 already finalized. Tokens may have moved
// while later state updates did not happen; re-issuing only the failed
// step is the recovery path.
type PartialFailureError struct {
	FailedStepIndex int
	Reason          RevertReason
	FinalizedTxIDs  []TransactionID
	Cause           error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf(
		"operation partially committed: step %d failed (%s) after %d finalized step(s)",
		e.FailedStepIndex, e.Reason, len(e.FinalizedTxIDs),
	)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Cause
}

func NewPartialFailureError(pf *PartialFailureError) *Error {
	return NewError(http.StatusConflict, PartialFailure, pf)
}

// AsPartialFailure extracts the PartialFailureError from an error chain,
// if any.
func AsPartialFailure(err error) (*PartialFailureError, bool) {
	var pf *PartialFailureError
	if errors.As(err, &pf) {
		return pf, true
	}
	return nil, false
}
