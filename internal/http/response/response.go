// Package response provides standardized HTTP response formatting and error handling utilities.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/bughive/bughive-server/internal/errors"
	"github.com/bughive/bughive-server/internal/store"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data as a bare JSON document with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		if logger != nil {
			logger.Error("Failed to encode JSON response", "error", err)
		}
	}
}

// Success writes a successful JSON response (200 OK).
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Created writes a created response (201 Created).
func Created(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusCreated, data, logger)
}

// NoContent writes a no content response (204 No Content).
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an error response with the given status code.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	JSON(w, status, ErrorBody{Error: message}, logger)
}

// BadRequest writes a 400 Bad Request response.
func BadRequest(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusBadRequest, message, logger)
}

// Unauthorized writes a 401 Unauthorized response.
func Unauthorized(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusUnauthorized, message, logger)
}

// NotFound writes a 404 with an empty body. Missing documents are reported
// by status alone.
func NotFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, "internal server error", logger)
}

// InvalidBody writes the 400 returned for request bodies that are not JSON.
func InvalidBody(w http.ResponseWriter, logger *slog.Logger) {
	BadRequest(w, "invalid request body", logger)
}

// HandleError writes an appropriate HTTP response based on the error type.
// Domain errors carry their own code, store errors their HTTP status, and
// unknown errors become a logged 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		status := domainErr.HTTPStatus()
		switch status {
		case http.StatusNotFound:
			NotFound(w)
		case http.StatusInternalServerError:
			logUnhandled(logger, err)
			InternalError(w, logger)
		default:
			JSON(w, status, ErrorBody{Error: domainErr.Message, Details: domainErr.Details}, logger)
		}
		return
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		status := storeErr.HTTPCode()
		switch {
		case status == http.StatusNotFound:
			NotFound(w)
		case status >= http.StatusInternalServerError:
			logUnhandled(logger, err)
			InternalError(w, logger)
		default:
			Error(w, status, storeErr.Message, logger)
		}
		return
	}

	logUnhandled(logger, err)
	InternalError(w, logger)
}

func logUnhandled(logger *slog.Logger, err error) {
	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
}
