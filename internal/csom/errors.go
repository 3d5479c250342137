package csom

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes protocol-layer errors.
type ErrorCode string

const (
	// ErrCodeBusiness indicates the server rejected the batch (ErrorInfo set).
	ErrCodeBusiness ErrorCode = "BUSINESS_ERROR"

	// ErrCodeProtocolViolation indicates a well-formed response that lacks
	// an expected correlation.
	ErrCodeProtocolViolation ErrorCode = "PROTOCOL_VIOLATION"

	// ErrCodeMalformedResponse indicates the response has the wrong shape.
	ErrCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"

	// ErrCodeDanglingReference indicates a node referenced an id the graph
	// never allocated as an object path.
	ErrCodeDanglingReference ErrorCode = "DANGLING_REFERENCE"

	// ErrCodeUnknownIdentity indicates a session lookup for a name that was
	// never remembered.
	ErrCodeUnknownIdentity ErrorCode = "UNKNOWN_IDENTITY"

	// ErrCodeGraphSealed indicates a mutation after serialization.
	ErrCodeGraphSealed ErrorCode = "GRAPH_SEALED"

	// ErrCodePartialSuccess indicates a create succeeded but its follow-up
	// refinement failed.
	ErrCodePartialSuccess ErrorCode = "PARTIAL_SUCCESS"
)

// BusinessError is the server's ErrorInfo record: the remote object model
// rejected the batch as a whole. It is never retried.
type BusinessError struct {
	Message            string
	Code               int64
	TypeName           string
	TraceCorrelationID string
}

// Error implements the error interface.
func (e *BusinessError) Error() string {
	if e.TypeName != "" {
		return fmt.Sprintf("%s (%s, code %d)", e.Message, e.TypeName, e.Code)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// Kind returns ErrCodeBusiness.
func (e *BusinessError) Kind() ErrorCode { return ErrCodeBusiness }

// ProtocolViolationError reports a successful response that did not contain
// a correlation the graph requires.
type ProtocolViolationError struct {
	Message    string
	MissingIDs []int
}

// Error implements the error interface.
func (e *ProtocolViolationError) Error() string {
	if len(e.MissingIDs) > 0 {
		return fmt.Sprintf("%s: %s (missing ids %v)", ErrCodeProtocolViolation, e.Message, e.MissingIDs)
	}
	return fmt.Sprintf("%s: %s", ErrCodeProtocolViolation, e.Message)
}

// Kind returns ErrCodeProtocolViolation.
func (e *ProtocolViolationError) Kind() ErrorCode { return ErrCodeProtocolViolation }

// MalformedResponseError reports a response body that is not a ProcessQuery
// envelope.
type MalformedResponseError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrCodeMalformedResponse, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrCodeMalformedResponse, e.Reason)
}

// Unwrap returns the underlying decode error, if any.
func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Kind returns ErrCodeMalformedResponse.
func (e *MalformedResponseError) Kind() ErrorCode { return ErrCodeMalformedResponse }

// DanglingReferenceError is a graph construction bug: a node pointed at an
// id that is not an object path of the same graph.
type DanglingReferenceError struct {
	Op  string
	Ref int
}

// Error implements the error interface.
func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("%s: %s references object path %d which this graph never allocated", ErrCodeDanglingReference, e.Op, e.Ref)
}

// Kind returns ErrCodeDanglingReference.
func (e *DanglingReferenceError) Kind() ErrorCode { return ErrCodeDanglingReference }

// UnknownIdentityError is an orchestration bug: a later phase asked for an
// identity the earlier phase never captured.
type UnknownIdentityError struct {
	Name  string
	Known []string
}

// Error implements the error interface.
func (e *UnknownIdentityError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("%s: no identity remembered as %q", ErrCodeUnknownIdentity, e.Name)
	}
	return fmt.Sprintf("%s: no identity remembered as %q (known: %s)", ErrCodeUnknownIdentity, e.Name, strings.Join(e.Known, ", "))
}

// Kind returns ErrCodeUnknownIdentity.
func (e *UnknownIdentityError) Kind() ErrorCode { return ErrCodeUnknownIdentity }

// GraphSealedError reports a builder call on a graph that was already
// serialized.
type GraphSealedError struct {
	Op string
}

// Error implements the error interface.
func (e *GraphSealedError) Error() string {
	return fmt.Sprintf("%s: %s called after the graph was serialized", ErrCodeGraphSealed, e.Op)
}

// Kind returns ErrCodeGraphSealed.
func (e *GraphSealedError) Kind() ErrorCode { return ErrCodeGraphSealed }

// PartialSuccessError reports a two-phase operation whose create phase
// succeeded and whose refinement phase failed. The created object still
// exists on the server; nothing is rolled back.
type PartialSuccessError struct {
	Operation string
	Phase     int
	Err       error
}

// Error implements the error interface.
func (e *PartialSuccessError) Error() string {
	return fmt.Sprintf("%s: %s created the object but phase %d failed: %v", ErrCodePartialSuccess, e.Operation, e.Phase, e.Err)
}

// Unwrap returns the phase error.
func (e *PartialSuccessError) Unwrap() error { return e.Err }

// Kind returns ErrCodePartialSuccess.
func (e *PartialSuccessError) Kind() ErrorCode { return ErrCodePartialSuccess }

// KindOf returns the ErrorCode of the first protocol error in err's chain,
// or "" when err carries none.
func KindOf(err error) ErrorCode {
	var k interface{ Kind() ErrorCode }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// IsBusinessError returns true if err wraps a BusinessError.
func IsBusinessError(err error) bool {
	var be *BusinessError
	return errors.As(err, &be)
}

// IsProtocolViolation returns true if err wraps a ProtocolViolationError.
func IsProtocolViolation(err error) bool {
	var pe *ProtocolViolationError
	return errors.As(err, &pe)
}

// IsMalformedResponse returns true if err wraps a MalformedResponseError.
func IsMalformedResponse(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}

// IsPartialSuccess returns true if err wraps a PartialSuccessError.
func IsPartialSuccess(err error) bool {
	var pe *PartialSuccessError
	return errors.As(err, &pe)
}

// IsDanglingReference returns true if err wraps a DanglingReferenceError.
func IsDanglingReference(err error) bool {
	var de *DanglingReferenceError
	return errors.As(err, &de)
}

// IsUnknownIdentity returns true if err wraps an UnknownIdentityError.
func IsUnknownIdentity(err error) bool {
	var ue *UnknownIdentityError
	return errors.As(err, &ue)
}
