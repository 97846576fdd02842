package handlers

import (
	"net/http"

	"github.com/upb/leaddesk/models"
	"github.com/upb/leaddesk/utils"
	"go.uber.org/zap"
)

// MessageResponse is the body of every intake error response
type MessageResponse struct {
	Message     string                 `json:"message"`
	FieldErrors map[string]interface{} `json:"fieldErrors,omitempty"`
}

// LeadCreatedResponse is the body of a successful intake response
type LeadCreatedResponse struct {
	Message      string       `json:"message"`
	Lead         *models.Lead `json:"lead"`
	EmailSuccess bool         `json:"email_success"`
}

// respondJSON writes a JSON response and logs encoding failures
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}, logger *zap.Logger) {
	if err := utils.WriteJSON(w, statusCode, data); err != nil {
		logger.Error("failed to write response", zap.Int("status", statusCode), zap.Error(err))
	}
}

// respondMessage writes a {"message": ...} response
func respondMessage(w http.ResponseWriter, statusCode int, message string, logger *zap.Logger) {
	respondJSON(w, statusCode, MessageResponse{Message: message}, logger)
}
