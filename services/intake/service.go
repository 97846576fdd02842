// Package intake implements the public lead submission pipeline.
package intake

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/leaddesk/models"
	"github.com/upb/leaddesk/repositories"
	"github.com/upb/leaddesk/services"
	"github.com/upb/leaddesk/services/notification"
	"github.com/upb/leaddesk/services/verification"
	"github.com/upb/leaddesk/utils"
	"go.uber.org/zap"
)

// VerificationFailedMessage is returned to callers for every verification failure
const VerificationFailedMessage = "Cloudflare Turnstile failed"

// fieldMessages replaces the generated validator messages
var fieldMessages = map[string]string{
	FieldName:     "Name is required",
	FieldEmail:    "Email is required",
	FieldClientID: "Client ID is required",
	FieldToken:    "Verification token is required",
}

// leadForm is the validated view of a submission
type leadForm struct {
	Name     string  `form:"name" validate:"required"`
	Email    string  `form:"email" validate:"required,email"`
	ClientID string  `form:"clientId" validate:"required,uuid"`
	Message  *string `form:"message"`
	Token    string  `form:"cf-turnstile-response" validate:"required"`
}

// Result is the outcome of a successful submission
type Result struct {
	Lead *models.Lead

	// EmailAccepted is true only when the mail provider confirmed the send
	EmailAccepted bool
}

// Service runs the intake pipeline
type Service struct {
	clients  repositories.ClientRepository
	leads    repositories.LeadRepository
	txMgr    repositories.TransactionManager
	verifier verification.Verifier
	sender   notification.Sender
	logger   *zap.Logger
}

// NewService creates a new intake Service
func NewService(
	repos *repositories.Repositories,
	txMgr repositories.TransactionManager,
	verifier verification.Verifier,
	sender notification.Sender,
	logger *zap.Logger,
) *Service {
	return &Service{
		clients:  repos.Clients,
		leads:    repos.Leads,
		txMgr:    txMgr,
		verifier: verifier,
		sender:   sender,
		logger:   logger,
	}
}

// Submit validates, verifies and stores a submission, then notifies the
// client's users. Notification failure does not fail the submission.
func (s *Service) Submit(ctx context.Context, sub *Submission) (*Result, error) {
	form, meta, err := s.validate(sub)
	if err != nil {
		return nil, err
	}

	if err := s.verify(ctx, form.Token, sub.RemoteIP); err != nil {
		return nil, err
	}

	clientID := uuid.MustParse(form.ClientID)
	type stored struct {
		client *models.Client
		lead   *models.Lead
	}

	out, err := services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*stored, error) {
		client, err := s.clients.GetByIDWithUsers(ctx, clientID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, services.NewDomainError(services.ErrorTypeNotFound, services.ErrClientNotFound.Message, err)
			}
			return nil, services.WrapInternal("Failed to load client", err)
		}

		lead := models.NewLead(client.ID, form.Name, form.Email, form.Message, meta, sub.additionalFields())
		if err := s.leads.Create(ctx, lead); err != nil {
			if errors.Is(err, repositories.ErrInvalidReference) {
				return nil, services.NewDomainError(services.ErrorTypeNotFound, services.ErrClientNotFound.Message, err)
			}
			return nil, services.WrapInternal("Failed to create lead", err)
		}
		return &stored{client: client, lead: lead}, nil
	})
	if err != nil {
		if !services.IsNotFoundError(err) {
			s.logger.Error("failed to store lead", zap.String("client_id", clientID.String()), zap.Error(err))
		}
		// begin and commit failures come back untyped
		if services.GetErrorType(err) == "" {
			err = services.WrapInternal("Failed to create lead", err)
		}
		return nil, err
	}

	s.logger.Info("lead created",
		zap.String("lead_id", out.lead.ID.String()),
		zap.String("client_id", out.client.ID.String()),
		zap.Int("additional_fields", len(out.lead.AdditionalFields)),
	)

	// The lead is committed; the send must not be aborted by the caller going away
	accepted := s.notify(context.WithoutCancel(ctx), out.client, out.lead)

	return &Result{Lead: out.lead, EmailAccepted: accepted}, nil
}

func (s *Service) validate(sub *Submission) (*leadForm, models.JSONMap, error) {
	form := &leadForm{}
	form.Name, _ = sub.value(FieldName)
	form.Email, _ = sub.value(FieldEmail)
	form.ClientID, _ = sub.value(FieldClientID)
	form.Token, _ = sub.value(FieldToken)
	if msg, ok := sub.value(FieldMessage); ok {
		form.Message = &msg
	}

	fields := map[string]string{}
	if err := utils.ValidateStructWithMessages(form, fieldMessages); err != nil {
		verr := utils.GetValidationFields(err)
		if verr == nil {
			return nil, nil, services.WrapInternal("Failed to validate submission", err)
		}
		for k, v := range verr {
			fields[k] = v
		}
	}

	meta := models.JSONMap{}
	if sub.HasMeta {
		obj, ok := sub.Meta.(map[string]interface{})
		if ok {
			meta = obj
		} else {
			fields[FieldMeta] = "Meta must be an object"
		}
	}

	if len(fields) > 0 {
		return nil, nil, services.NewValidationError(fields)
	}
	return form, meta, nil
}

func (s *Service) verify(ctx context.Context, token, remoteIP string) error {
	outcome, err := s.verifier.Verify(ctx, token, remoteIP)
	if err != nil {
		if errors.Is(err, verification.ErrMissingSecret) {
			s.logger.Error("turnstile secret key is not configured")
			return services.NewDomainError(services.ErrorTypeConfiguration, services.ErrMissingSecret.Message, err)
		}
		s.logger.Warn("turnstile verification errored", zap.Error(err))
		return services.NewDomainError(services.ErrorTypeVerificationFailed, VerificationFailedMessage, err)
	}
	if !outcome.Success {
		s.logger.Warn("turnstile verification rejected",
			zap.Strings("error_codes", outcome.Raw.ErrorCodes),
			zap.String("hostname", outcome.Raw.Hostname),
			zap.String("action", outcome.Raw.Action),
		)
		return services.NewDomainError(services.ErrorTypeVerificationFailed, VerificationFailedMessage, nil)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, client *models.Client, lead *models.Lead) bool {
	recipients := client.NotificationEmails()
	if len(recipients) == 0 {
		s.logger.Info("no notification recipients for client", zap.String("client_id", client.ID.String()))
		return false
	}

	receipt, err := s.sender.SendLeadCreationEmail(ctx, recipients, lead)
	if err != nil {
		s.logger.Error("failed to send lead notification",
			zap.String("lead_id", lead.ID.String()),
			zap.Int("recipients", len(recipients)),
			zap.Error(err),
		)
		return false
	}
	if !receipt.Accepted() {
		s.logger.Warn("lead notification not confirmed by provider", zap.String("lead_id", lead.ID.String()))
		return false
	}
	return true
}
