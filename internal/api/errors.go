package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openDAQ/openDAQ-sub004/internal/auth"
	"github.com/openDAQ/openDAQ-sub004/internal/registry"
	"github.com/openDAQ/openDAQ-sub004/internal/status"
)

// ErrorBody is the error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the status name and message of a failure.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Codes outside the status taxonomy.
const (
	codeUnauthorized = "Unauthorized"
	codeBadRequest   = "BadRequest"
	codeUnavailable  = "Unavailable"
)

var httpStatus = map[status.Code]int{
	status.CodeArgumentNull:     http.StatusBadRequest,
	status.CodeNotFound:         http.StatusNotFound,
	status.CodeAlreadyExists:    http.StatusConflict,
	status.CodeAccessDenied:     http.StatusForbidden,
	status.CodeFrozen:           http.StatusConflict,
	status.CodeInvalidType:      http.StatusBadRequest,
	status.CodeInvalidParameter: http.StatusBadRequest,
	status.CodeOutOfRange:       http.StatusBadRequest,
	status.CodeInvalidState:     http.StatusConflict,
	status.CodeNoInterface:      http.StatusBadRequest,
	status.CodeCoerceFailed:     http.StatusUnprocessableEntity,
	status.CodeValidateFailed:   http.StatusUnprocessableEntity,
	status.CodeGeneral:          http.StatusInternalServerError,
}

// classify maps err onto an HTTP status and a code name. Registry and auth
// errors are folded into the status taxonomy first.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, registry.ErrObjectNotFound):
		return http.StatusNotFound, status.CodeNotFound.String()
	case errors.Is(err, registry.ErrNameTaken):
		return http.StatusConflict, status.CodeAlreadyExists.String()
	case errors.Is(err, registry.ErrInvalidName):
		return http.StatusBadRequest, status.CodeInvalidParameter.String()
	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, codeUnauthorized
	}
	code := status.Of(err)
	if st, ok := httpStatus[code]; ok {
		return st, code.String()
	}
	return http.StatusInternalServerError, status.CodeGeneral.String()
}

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		//nolint:errcheck // best-effort write; the connection may be gone
		json.NewEncoder(w).Encode(v)
	}
}

func writeErrorCode(w http.ResponseWriter, httpCode int, code, message string) {
	writeJSON(w, httpCode, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// writeError writes err in the error envelope.
func writeError(w http.ResponseWriter, err error) {
	httpCode, code := classify(err)
	writeErrorCode(w, httpCode, code, err.Error())
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeErrorCode(w, http.StatusBadRequest, codeBadRequest, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeErrorCode(w, http.StatusUnauthorized, codeUnauthorized, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeErrorCode(w, http.StatusInternalServerError, status.CodeGeneral.String(), message)
}
