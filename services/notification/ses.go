package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/upb/leaddesk/models"
	"go.uber.org/zap"
)

// ErrNoRecipients is returned when a send is attempted without recipients
var ErrNoRecipients = errors.New("no notification recipients")

const charset = "UTF-8"

// maxDestinations is the SES limit on addresses per message
const maxDestinations = 50

// SESAPI is the subset of the SES v2 client used by SESSender
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends notifications through Amazon SES v2
type SESSender struct {
	client   SESAPI
	from     string
	renderer *Renderer
	logger   *zap.Logger
}

// NewSESSender creates a sender over an existing SES client
func NewSESSender(client SESAPI, from string, renderer *Renderer, logger *zap.Logger) *SESSender {
	return &SESSender{
		client:   client,
		from:     from,
		renderer: renderer,
		logger:   logger,
	}
}

// NewSESClient loads AWS credentials from the default chain for the given region
func NewSESClient(ctx context.Context, region string) (*sesv2.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return sesv2.NewFromConfig(cfg), nil
}

// SendLeadCreationEmail sends the notification to every recipient. SES caps
// a message at maxDestinations addresses, so larger lists go out as several
// messages with identical content. The receipt is accepted only when every
// message was.
func (s *SESSender) SendLeadCreationEmail(ctx context.Context, recipients []string, lead *models.Lead) (*Receipt, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}

	msg, err := s.renderer.Render(lead)
	if err != nil {
		return nil, err
	}
	content := &types.EmailContent{
		Simple: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String(charset)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String(charset)},
				Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String(charset)},
			},
		},
	}

	ids := make([]string, 0, (len(recipients)+maxDestinations-1)/maxDestinations)
	confirmed := true
	for start := 0; start < len(recipients); start += maxDestinations {
		end := min(start+maxDestinations, len(recipients))

		out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(s.from),
			Destination: &types.Destination{
				ToAddresses: recipients[start:end],
			},
			ReplyToAddresses: []string{lead.Email},
			Content:          content,
		})
		if err != nil {
			if start > 0 {
				s.logger.Warn("lead notification partially sent",
					zap.String("lead_id", lead.ID.String()),
					zap.Int("sent", start),
					zap.Int("recipients", len(recipients)))
			}
			return nil, fmt.Errorf("ses send failed: %w", err)
		}

		id := aws.ToString(out.MessageId)
		if id == "" {
			confirmed = false
		}
		ids = append(ids, id)
	}

	receipt := &Receipt{MessageIDs: ids}
	if confirmed {
		receipt.MessageID = ids[0]
	}
	s.logger.Debug("lead notification sent",
		zap.String("lead_id", lead.ID.String()),
		zap.Strings("message_ids", ids),
		zap.Int("recipients", len(recipients)))
	return receipt, nil
}
