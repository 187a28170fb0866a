package api

import (
	"encoding/json"
	"net/http"

	"github.com/julianstephens/daychain/internal/errors"
	"github.com/julianstephens/daychain/internal/logger"
)

// CodeRateLimited is returned by the rate limiting middleware.
const CodeRateLimited = "RATE_LIMITED"

var statusByCode = map[string]int{
	errors.CodeValidation:       http.StatusBadRequest,
	errors.CodeNotFound:         http.StatusNotFound,
	errors.CodeStaleReference:   http.StatusConflict,
	errors.CodeRevisionConflict: http.StatusConflict,
	errors.CodeInvariant:        http.StatusUnprocessableEntity,
	CodeRateLimited:             http.StatusTooManyRequests,
	errors.CodeInternal:         http.StatusInternalServerError,
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}

func writeCode(w http.ResponseWriter, code, message string) {
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeError classifies err. Internal errors are logged and their detail is not sent.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.Code(err)
	msg := err.Error()
	if code == errors.CodeInternal {
		logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeCode(w, code, msg)
}
