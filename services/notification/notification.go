// Package notification delivers lead-creation emails to the staff of a client.
package notification

import (
	"context"

	"github.com/upb/leaddesk/models"
	"go.uber.org/zap"
)

// Receipt is the provider's acknowledgement of a send. An empty MessageID
// means the provider did not confirm acceptance.
type Receipt struct {
	MessageID string

	// MessageIDs holds one ID per message when the send was split
	MessageIDs []string
}

// Accepted reports whether the provider accepted the message for delivery
func (r *Receipt) Accepted() bool {
	return r != nil && r.MessageID != ""
}

// Sender sends the lead-creation notification
type Sender interface {
	SendLeadCreationEmail(ctx context.Context, recipients []string, lead *models.Lead) (*Receipt, error)
}

// LogSender writes notifications to the log instead of sending them.
// It never confirms acceptance.
type LogSender struct {
	renderer *Renderer
	logger   *zap.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(renderer *Renderer, logger *zap.Logger) *LogSender {
	return &LogSender{renderer: renderer, logger: logger}
}

// SendLeadCreationEmail renders the message and logs it
func (s *LogSender) SendLeadCreationEmail(ctx context.Context, recipients []string, lead *models.Lead) (*Receipt, error) {
	msg, err := s.renderer.Render(lead)
	if err != nil {
		return nil, err
	}
	s.logger.Info("lead notification (log only)",
		zap.Strings("recipients", recipients),
		zap.String("subject", msg.Subject),
		zap.String("lead_id", lead.ID.String()))
	return &Receipt{}, nil
}
