package clients

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"marketplace/internal/domain/notifications"
)

// ResendMailer sends transactional email through the Resend API.
type ResendMailer struct {
	client *resend.Client
}

func NewResendMailer(apiKey string) *ResendMailer {
	return &ResendMailer{client: resend.NewClient(apiKey)}
}

func (m *ResendMailer) Send(ctx context.Context, email notifications.Email) (notifications.SendResult, error) {
	resp, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    email.From,
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
	})
	if err != nil {
		return notifications.SendResult{}, fmt.Errorf("failed to send email %q: %w", email.Subject, err)
	}

	return notifications.SendResult{ID: resp.Id}, nil
}
