package errs

import (
	"encoding/json"
	"net/http"

	"poetryHub/logger"
)

// codes maps application error codes to http status codes.
var codes = map[string]int{
	ECONFLICT:     http.StatusConflict,
	EFORBIDDEN:    http.StatusForbidden,
	EINTERNAL:     http.StatusInternalServerError,
	EINVALID:      http.StatusBadRequest,
	ENOTFOUND:     http.StatusNotFound,
	EUNAUTHORIZED: http.StatusUnauthorized,
}

// StatusCode returns the http status code belonging to an application error code.
func StatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

// ReturnError writes an error to the response. Internal errors are logged,
// and the client only gets a generic message for them.
func ReturnError(w http.ResponseWriter, r *http.Request, err error) {
	code, message := ErrorCode(err), ErrorMessage(err)
	if code == EINTERNAL {
		LogError(r, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(code))
	if err := json.NewEncoder(w).Encode(&ErrorResponse{Error: message}); err != nil {
		LogError(r, err)
	}
}

// ErrorResponse is the json body of a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LogError logs an error with the request's method and url, using the request scoped logger.
func LogError(r *http.Request, err error) {
	logger.FromContext(r.Context()).Error("http request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
}
