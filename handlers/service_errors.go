package handlers

import (
	"net/http"

	"github.com/upb/leaddesk/services"
	"go.uber.org/zap"
)

// Caller-facing messages that do not come from a domain error
const (
	MessageUnknownError        = "Unknown error"
	MessageServerMisconfigured = "Server misconfigured"
)

// HandleServiceError maps domain errors to intake responses.
// Only the domain message and field details are ever written.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsValidationError(err):
		respondJSON(w, http.StatusUnprocessableEntity, MessageResponse{
			Message:     services.GetErrorMessage(err),
			FieldErrors: details,
		}, logger)

	case services.IsMalformedInputError(err):
		respondJSON(w, http.StatusBadRequest, MessageResponse{
			Message:     services.GetErrorMessage(err),
			FieldErrors: details,
		}, logger)

	case services.IsVerificationError(err), services.IsNotFoundError(err):
		respondMessage(w, http.StatusBadRequest, services.GetErrorMessage(err), logger)

	case services.IsInternalError(err):
		// Persistence failures keep their sanitized domain message
		logger.Error("internal error", zap.Error(err))
		respondMessage(w, http.StatusBadRequest, services.GetErrorMessage(err), logger)

	case services.IsConfigurationError(err):
		logger.Error("server configuration error", zap.Error(err))
		respondMessage(w, http.StatusInternalServerError, MessageServerMisconfigured, logger)

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		respondMessage(w, http.StatusInternalServerError, MessageUnknownError, logger)
	}
}
