package apperr

import (
	"errors"
	"fmt"
)

const (
	invalidArgumentCode     = "INVALID_ARGUMENT"
	notFoundCode            = "NOT_FOUND"
	internalErrorCode       = "INTERNAL_ERROR"
	functionDefinitionCode  = "FUNCTION_DEFINITION_ERROR"
	streamDescribeCode      = "STREAM_DESCRIBE_ERROR"
	iteratorAcquisitionCode = "ITERATOR_ACQUISITION_ERROR"
	fetchCode               = "FETCH_ERROR"
	handlerInvocationCode   = "HANDLER_INVOCATION_ERROR"
	thresholdExceededCode   = "THRESHOLD_EXCEEDED"
	failurePublishCode      = "FAILURE_PUBLISH_ERROR"
)

type messageCause struct {
	Msg string
	Err error
}

func (e *messageCause) Message() string { return e.Msg }
func (e *messageCause) Cause() error    { return e.Err }
func (e *messageCause) Unwrap() error   { return e.Err }

func formatError(code, msg string, cause error) string {
	if cause != nil {
		return fmt.Sprintf("[%s] %s: %v", code, msg, cause)
	}
	return fmt.Sprintf("[%s] %s", code, msg)
}

// CodeOf returns the code of the outermost BaseError in err's chain, or "".
func CodeOf(err error) string {
	var be BaseError
	if errors.As(err, &be) {
		return be.Code()
	}
	return ""
}

type InvalidArgErr struct {
	messageCause
}

func NewInvalidArgErr(msg string, cause error) *InvalidArgErr {
	return &InvalidArgErr{messageCause: messageCause{Msg: msg, Err: cause}}
}

func (e *InvalidArgErr) Error() string { return formatError(invalidArgumentCode, e.Msg, e.Err) }
func (e *InvalidArgErr) Code() string  { return invalidArgumentCode }

type NotFoundErr struct {
	messageCause
}

func NewNotFoundErr(msg string, cause error) *NotFoundErr {
	return &NotFoundErr{messageCause: messageCause{Msg: msg, Err: cause}}
}

func (e *NotFoundErr) Error() string { return formatError(notFoundCode, e.Msg, e.Err) }
func (e *NotFoundErr) Code() string  { return notFoundCode }

type InternalErr struct {
	messageCause
}

func NewInternalErr(msg string, cause error) *InternalErr {
	return &InternalErr{messageCause: messageCause{Msg: msg, Err: cause}}
}

func (e *InternalErr) Error() string { return formatError(internalErrorCode, e.Msg, e.Err) }
func (e *InternalErr) Code() string  { return internalErrorCode }

// FunctionDefinitionErr reports a malformed service or function definition.
type FunctionDefinitionErr struct {
	messageCause
}

func NewFunctionDefinitionErr(msg string, cause error) *FunctionDefinitionErr {
	return &FunctionDefinitionErr{messageCause: messageCause{Msg: msg, Err: cause}}
}

func (e *FunctionDefinitionErr) Error() string {
	return formatError(functionDefinitionCode, e.Msg, e.Err)
}
func (e *FunctionDefinitionErr) Code() string { return functionDefinitionCode }

// StreamDescribeErr is fatal at watcher startup.
type StreamDescribeErr struct {
	messageCause
	Stream string
}

func NewStreamDescribeErr(stream, msg string, cause error) *StreamDescribeErr {
	return &StreamDescribeErr{messageCause: messageCause{Msg: msg, Err: cause}, Stream: stream}
}

func (e *StreamDescribeErr) Error() string { return formatError(streamDescribeCode, e.Msg, e.Err) }
func (e *StreamDescribeErr) Code() string  { return streamDescribeCode }

// IteratorAcquisitionErr is fatal at watcher startup.
type IteratorAcquisitionErr struct {
	messageCause
	Stream string
}

func NewIteratorAcquisitionErr(stream, msg string, cause error) *IteratorAcquisitionErr {
	return &IteratorAcquisitionErr{messageCause: messageCause{Msg: msg, Err: cause}, Stream: stream}
}

func (e *IteratorAcquisitionErr) Error() string {
	return formatError(iteratorAcquisitionCode, e.Msg, e.Err)
}
func (e *IteratorAcquisitionErr) Code() string { return iteratorAcquisitionCode }

// FetchErr fails a single cycle.
type FetchErr struct {
	messageCause
	Stream string
}

func NewFetchErr(stream, msg string, cause error) *FetchErr {
	return &FetchErr{messageCause: messageCause{Msg: msg, Err: cause}, Stream: stream}
}

func (e *FetchErr) Error() string { return formatError(fetchCode, e.Msg, e.Err) }
func (e *FetchErr) Code() string  { return fetchCode }

// HandlerInvocationErr fails a single cycle.
type HandlerInvocationErr struct {
	messageCause
	Function string
}

func NewHandlerInvocationErr(function, msg string, cause error) *HandlerInvocationErr {
	return &HandlerInvocationErr{messageCause: messageCause{Msg: msg, Err: cause}, Function: function}
}

func (e *HandlerInvocationErr) Error() string {
	return formatError(handlerInvocationCode, e.Msg, e.Err)
}
func (e *HandlerInvocationErr) Code() string { return handlerInvocationCode }

// ThresholdExceededErr terminates the watcher. Its cause is the error of the
// cycle that pushed the consecutive error count over Max.
type ThresholdExceededErr struct {
	messageCause
	Max int
}

func NewThresholdExceededErr(max int, cause error) *ThresholdExceededErr {
	msg := fmt.Sprintf("exceeded maximum number of consecutive errors (%d)", max)
	return &ThresholdExceededErr{messageCause: messageCause{Msg: msg, Err: cause}, Max: max}
}

func (e *ThresholdExceededErr) Error() string {
	return formatError(thresholdExceededCode, e.Msg, e.Err)
}
func (e *ThresholdExceededErr) Code() string { return thresholdExceededCode }

type FailurePublishErr struct {
	messageCause
}

func NewFailurePublishErr(msg string, cause error) *FailurePublishErr {
	return &FailurePublishErr{messageCause: messageCause{Msg: msg, Err: cause}}
}

func (e *FailurePublishErr) Error() string { return formatError(failurePublishCode, e.Msg, e.Err) }
func (e *FailurePublishErr) Code() string  { return failurePublishCode }
