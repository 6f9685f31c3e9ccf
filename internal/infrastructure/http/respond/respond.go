// Package respond writes JSON bodies and error envelopes for HTTP handlers.
package respond

import (
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/recipesimplifier/api/pkg/errors"
)

// JSON writes data with the given status.
func JSON(w http.ResponseWriter, logger *zap.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", zap.Error(err))
	}
}

// Error writes err as the standard error envelope. Errors that are not
// AppErrors are reported as internal errors without their text.
func Error(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.NewInternalError("").WithCause(err)
	}

	requestID := chimiddleware.GetReqID(r.Context())
	status := appErr.StatusCode()

	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("code", string(appErr.Code)),
		zap.String("message", appErr.Message),
		zap.Int("status", status),
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.NamedError("cause", appErr.Cause))
	}

	body := errors.ToErrorResponse(appErr, requestID)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", append(fields, zap.String("stack", appErr.StackTrace))...)
		body.Metadata = nil
	} else {
		logger.Info("Request rejected", fields...)
	}

	JSON(w, logger, status, body)
}
