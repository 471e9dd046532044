package response

import "net/http"

// Status codes carried in the envelope "status" field
const (
	StatusSuccess        = "SUCCESS"
	StatusFailure        = "FAILURE"
	StatusServerError    = "SERVER_ERROR"
	StatusBadRequest     = "BAD_REQUEST"
	StatusNotFound       = "RECORD_NOT_FOUND"
	StatusValidation     = "VALIDATION_ERROR"
	StatusUnauthorized   = "UNAUTHORIZED"
	StatusForbidden      = "FORBIDDEN"
	defaultOKMessage     = "Your request is successfully executed"
	defaultNotFoundMsg   = "Record not found with specified criteria."
	defaultBadRequestMsg = "Request parameters are invalid or missing."
)

// Response represents the standard API envelope: {status, message, data}
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success returns a standard success response wrapping the data
func Success(data interface{}) Response {
	return Response{Status: StatusSuccess, Message: defaultOKMessage, Data: data}
}

// Error returns an envelope for the given status with no data
func Error(status, message string) Response {
	return Response{Status: status, Message: message}
}

func BadRequest(message string) Response {
	if message == "" {
		message = defaultBadRequestMsg
	}
	return Error(StatusBadRequest, message)
}

func NotFound() Response {
	return Error(StatusNotFound, defaultNotFoundMsg)
}

func Validation(message string) Response {
	return Error(StatusValidation, message)
}

func ServerError(message string) Response {
	return Error(StatusServerError, message)
}

func Unauthorized(message string) Response {
	return Error(StatusUnauthorized, message)
}

func Forbidden(message string) Response {
	return Error(StatusForbidden, message)
}

// HTTPStatus maps an envelope status to the HTTP status code it is sent with
func HTTPStatus(status string) int {
	switch status {
	case StatusSuccess:
		return http.StatusOK
	case StatusFailure, StatusBadRequest:
		return http.StatusBadRequest
	case StatusNotFound:
		return http.StatusNotFound
	case StatusValidation:
		return http.StatusUnprocessableEntity
	case StatusUnauthorized:
		return http.StatusUnauthorized
	case StatusForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
