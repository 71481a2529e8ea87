// Package response writes the league API's JSON wire format.
//
// Reads answer with a bare JSON body. Mutations answer 200 with an
// acknowledgement: {"success":true,...} or {"success":false,"error":"..."} when
// a league rule refuses the request. Malformed or forbidden requests get a
// non-2xx status and {"error":"..."}.
package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	clienterrors "github.com/trashtalkapp/trashtalk-client/internal/errors"
)

// Ack is the body of a refused mutation.
type Ack struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ErrorBody is sent with non-2xx statuses.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// Success writes v with 200 OK.
func Success(w http.ResponseWriter, v any, logger *slog.Logger) {
	JSON(w, http.StatusOK, v, logger)
}

// Accepted acknowledges a mutation. extra is merged into the body next to
// "success"; pass nil when there is nothing to add.
func Accepted(w http.ResponseWriter, extra map[string]string, logger *slog.Logger) {
	body := map[string]any{"success": true}
	for k, v := range extra {
		body[k] = v
	}
	JSON(w, http.StatusOK, body, logger)
}

// Rejected refuses a well-formed mutation with 200 and success=false.
func Rejected(w http.ResponseWriter, message string, logger *slog.Logger) {
	JSON(w, http.StatusOK, Ack{Success: false, Error: message}, logger)
}

// Error writes {"error": message} with the given status code.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	JSON(w, status, ErrorBody{Error: message}, logger)
}

// BadRequest writes a 400 Bad Request response.
func BadRequest(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusBadRequest, message, logger)
}

// Forbidden writes a 403 Forbidden response.
func Forbidden(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusForbidden, message, logger)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusNotFound, message, logger)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, message, logger)
}

// StatusFor maps an error code to the HTTP status it is sent with.
func StatusFor(code clienterrors.Code) int {
	switch code {
	case clienterrors.CodeValidation:
		return http.StatusBadRequest
	case clienterrors.CodeUnauthorized, clienterrors.CodeInvalidCredentials:
		return http.StatusUnauthorized
	case clienterrors.CodeForbidden:
		return http.StatusForbidden
	case clienterrors.CodeNotFound, clienterrors.CodeAccountNotFound:
		return http.StatusNotFound
	case clienterrors.CodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes the response for err. REJECTED errors become a
// success=false acknowledgement, other coded errors use StatusFor, and
// anything else is a 500 with a generic message.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var coded *clienterrors.Error
	if !clienterrors.As(err, &coded) {
		if logger != nil {
			logger.Error("Unhandled error", "error", err)
		}
		InternalError(w, "internal server error", logger)
		return
	}

	if coded.Code == clienterrors.CodeRejected {
		Rejected(w, coded.Message, logger)
		return
	}

	status := StatusFor(coded.Code)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("Request failed", "error", err)
	}
	Error(w, status, coded.Message, logger)
}

// TooManyRequests writes a 429 Too Many Requests response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, message, logger)
}
