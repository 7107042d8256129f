package types

import "net/http"

// Status is a canonical status name attached to classified errors.
// The set mirrors the conventional RPC status space so that transport
// layers can map an error to an HTTP code without inspecting its message.
type Status string

const (
	StatusOK                 Status = "OK"
	StatusCancelled          Status = "CANCELLED"
	StatusUnknown            Status = "UNKNOWN"
	StatusInvalidArgument    Status = "INVALID_ARGUMENT"
	StatusDeadlineExceeded   Status = "DEADLINE_EXCEEDED"
	StatusNotFound           Status = "NOT_FOUND"
	StatusAlreadyExists      Status = "ALREADY_EXISTS"
	StatusPermissionDenied   Status = "PERMISSION_DENIED"
	StatusUnauthenticated    Status = "UNAUTHENTICATED"
	StatusResourceExhausted  Status = "RESOURCE_EXHAUSTED"
	StatusFailedPrecondition Status = "FAILED_PRECONDITION"
	StatusAborted            Status = "ABORTED"
	StatusOutOfRange         Status = "OUT_OF_RANGE"
	StatusUnimplemented      Status = "UNIMPLEMENTED"
	StatusInternal           Status = "INTERNAL"
	StatusUnavailable        Status = "UNAVAILABLE"
	StatusDataLoss           Status = "DATA_LOSS"
)

// 499 has no constant in net/http; it is the de-facto
// "client closed request" code.
const statusClientClosedRequest = 499

var httpStatus = map[Status]int{
	StatusOK:                 http.StatusOK,
	StatusCancelled:          statusClientClosedRequest,
	StatusUnknown:            http.StatusInternalServerError,
	StatusInvalidArgument:    http.StatusBadRequest,
	StatusDeadlineExceeded:   http.StatusGatewayTimeout,
	StatusNotFound:           http.StatusNotFound,
	StatusAlreadyExists:      http.StatusConflict,
	StatusPermissionDenied:   http.StatusForbidden,
	StatusUnauthenticated:    http.StatusUnauthorized,
	StatusResourceExhausted:  http.StatusTooManyRequests,
	StatusFailedPrecondition: http.StatusBadRequest,
	StatusAborted:            http.StatusConflict,
	StatusOutOfRange:         http.StatusBadRequest,
	StatusUnimplemented:      http.StatusNotImplemented,
	StatusInternal:           http.StatusInternalServerError,
	StatusUnavailable:        http.StatusServiceUnavailable,
	StatusDataLoss:           http.StatusInternalServerError,
}

// HTTPStatus returns the conventional HTTP status code for s.
// Unrecognized statuses map to 500.
func (s Status) HTTPStatus() int {
	if code, ok := httpStatus[s]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// Valid reports whether s is one of the canonical status names.
func (s Status) Valid() bool {
	_, ok := httpStatus[s]
	return ok
}
