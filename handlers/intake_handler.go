package handlers

import (
	"context"
	"mime"
	"net/http"

	"github.com/upb/leaddesk/middleware"
	"github.com/upb/leaddesk/services"
	"github.com/upb/leaddesk/services/intake"
	"go.uber.org/zap"
)

const (
	// maxFormBytes bounds the request body, uploads included
	maxFormBytes = 32 << 20

	// maxFormMemory is the multipart size kept in memory before spilling to disk
	maxFormMemory = 32 << 20
)

// LeadSubmitter runs the intake pipeline
type LeadSubmitter interface {
	Submit(ctx context.Context, sub *intake.Submission) (*intake.Result, error)
}

// IntakeHandler serves the public lead intake endpoint
type IntakeHandler struct {
	submitter LeadSubmitter
	logger    *zap.Logger
}

// NewIntakeHandler creates a new IntakeHandler
func NewIntakeHandler(submitter LeadSubmitter, logger *zap.Logger) *IntakeHandler {
	return &IntakeHandler{
		submitter: submitter,
		logger:    logger,
	}
}

// HandleCreateLead handles POST /api/leads
func (h *IntakeHandler) HandleCreateLead(w http.ResponseWriter, r *http.Request) {
	defer h.recoverPanic(w, r)

	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	fields, err := readForm(w, r)
	if err != nil {
		h.logger.Warn("failed to parse form",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleServiceError(w, services.NewDomainError(services.ErrorTypeMalformedInput, "Invalid form data", err), h.logger)
		return
	}

	sub, err := intake.NewSubmission(fields, middleware.GetClientIPFromContext(ctx))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	result, err := h.submitter.Submit(ctx, sub)
	if err != nil {
		h.logger.Debug("lead submission rejected",
			zap.String("request_id", requestID),
			zap.String("error_type", string(services.GetErrorType(err))))
		HandleServiceError(w, err, h.logger)
		return
	}

	respondJSON(w, http.StatusCreated, LeadCreatedResponse{
		Message:      "Lead created",
		Lead:         result.Lead,
		EmailSuccess: result.EmailAccepted,
	}, h.logger)
}

// HandleProbe handles GET and HEAD on the intake path. Embedding pages use it
// to check reachability; the body is empty.
func (h *IntakeHandler) HandleProbe(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// recoverPanic turns a panic into a generic 500
func (h *IntakeHandler) recoverPanic(w http.ResponseWriter, r *http.Request) {
	if rec := recover(); rec != nil {
		if rec == http.ErrAbortHandler {
			panic(rec)
		}
		h.logger.Error("panic while handling lead submission",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
			zap.Any("panic", rec),
			zap.Stack("stack"))
		respondMessage(w, http.StatusInternalServerError, MessageUnknownError, h.logger)
	}
}

// readForm parses url-encoded or multipart bodies into one value per key.
// The last value wins for repeated keys; file parts contribute their filename.
func readForm(w http.ResponseWriter, r *http.Request) (map[string]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, err
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, err
	}

	fields := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			fields[key] = values[len(values)-1]
		}
	}
	if r.MultipartForm != nil {
		for key, files := range r.MultipartForm.File {
			if len(files) > 0 {
				fields[key] = files[len(files)-1].Filename
			}
		}
	}
	return fields, nil
}
