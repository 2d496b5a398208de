package errutil

import "net/http"

// CoreStatus is the transport-agnostic error kind carried by BaseError.
type CoreStatus string

const (
	StatusBadRequest         CoreStatus = "bad_request"
	StatusValidationFailed   CoreStatus = "validation_failed"
	StatusUnauthorized       CoreStatus = "unauthorized"
	StatusForbidden          CoreStatus = "not_authorized"
	StatusNotFound           CoreStatus = "not_found"
	StatusConflict           CoreStatus = "conflict"
	StatusInvalidState       CoreStatus = "invalid_state"
	StatusPreconditionNotMet CoreStatus = "precondition_not_met"
	StatusInternal           CoreStatus = "internal"
	StatusTimeout            CoreStatus = "timeout"
	StatusNotImplemented     CoreStatus = "not_implemented"
	StatusUnknown            CoreStatus = "unknown"
)

// HTTPStatus converts the CoreStatus to its fixed HTTP status code.
func (s CoreStatus) HTTPStatus() int {
	switch s {
	case StatusBadRequest, StatusValidationFailed:
		return http.StatusBadRequest
	case StatusUnauthorized:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	case StatusNotFound:
		return http.StatusNotFound
	case StatusConflict, StatusInvalidState:
		return http.StatusConflict
	case StatusPreconditionNotMet:
		return http.StatusUnprocessableEntity
	case StatusTimeout:
		return http.StatusGatewayTimeout
	case StatusNotImplemented:
		return http.StatusNotImplemented
	case StatusInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
