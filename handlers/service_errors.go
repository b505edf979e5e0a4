package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/moimpay/moim-backend/services"
	"github.com/moimpay/moim-backend/utils"
)

// HandleServiceError maps domain errors to HTTP responses. Handlers stay
// thin: services decide WHAT went wrong, this decides what the client sees.
func HandleServiceError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	path := r.URL.Path
	message := clientMessage(err)
	details := services.GetErrorDetails(err)

	switch {
	case services.IsNotFoundError(err):
		if writeErr := utils.WriteNotFound(w, path, message); writeErr != nil {
			logger.Error("failed to write not found response", zap.Error(writeErr))
		}

	case services.IsValidationError(err):
		if writeErr := utils.WriteBadRequest(w, path, message, details); writeErr != nil {
			logger.Error("failed to write bad request response", zap.Error(writeErr))
		}

	case services.IsUnauthenticatedError(err):
		if writeErr := utils.WriteUnauthorized(w, path, message); writeErr != nil {
			logger.Error("failed to write unauthorized response", zap.Error(writeErr))
		}

	case services.IsForbiddenError(err):
		if writeErr := utils.WriteForbidden(w, path, message); writeErr != nil {
			logger.Error("failed to write forbidden response", zap.Error(writeErr))
		}

	case services.IsConflictError(err):
		if writeErr := utils.WriteConflict(w, path, message, details); writeErr != nil {
			logger.Error("failed to write conflict response", zap.Error(writeErr))
		}

	case services.IsUnavailableError(err):
		// fail closed and say so; the client should retry, not re-login
		logger.Error("backing store unavailable", zap.String("path", path), zap.Error(err))
		if writeErr := utils.WriteServiceUnavailable(w, path, message); writeErr != nil {
			logger.Error("failed to write service unavailable response", zap.Error(writeErr))
		}

	default:
		logger.Error("internal server error",
			zap.String("path", path),
			zap.String("error_type", string(services.GetErrorType(err))),
			zap.Error(err))
		if writeErr := utils.WriteInternalServerError(w, path, "An internal error occurred"); writeErr != nil {
			logger.Error("failed to write internal error response", zap.Error(writeErr))
		}
	}
}

// clientMessage returns the domain message without the wrapped cause; causes
// carry store and driver detail that does not belong in a response body.
func clientMessage(err error) string {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if writeErr := utils.WriteBadRequest(w, r.URL.Path, "Validation failed", details); writeErr != nil {
			logger.Error("failed to write validation error response", zap.Error(writeErr))
		}
		return
	}

	if writeErr := utils.WriteBadRequest(w, r.URL.Path, err.Error(), nil); writeErr != nil {
		logger.Error("failed to write validation error response", zap.Error(writeErr))
	}
}
