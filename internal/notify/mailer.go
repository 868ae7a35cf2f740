package notify

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/anonto42/gatherly/backend/internal/models"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// UserLookup resolves a recipient's address.
type UserLookup interface {
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// Mailer emails notifications through the Resend API.
type Mailer struct {
	client *resend.Client
	from   string
	users  UserLookup
	log    zerolog.Logger
}

func NewMailer(client *resend.Client, from string, users UserLookup, log zerolog.Logger) *Mailer {
	return &Mailer{client: client, from: from, users: users, log: log}
}

func (m *Mailer) Name() string { return "email" }

func (m *Mailer) Notify(ctx context.Context, n models.Notification) error {
	recipient, err := m.users.GetUserByID(ctx, n.RecipientID)
	if err != nil {
		return fmt.Errorf("look up recipient %d: %w", n.RecipientID, err)
	}

	subject, body := m.render(ctx, n)
	sent, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{recipient.Email},
		Subject: subject,
		Html:    body,
	})
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			m.log.Warn().
				Str("limit", rateLimitErr.Limit).
				Str("reset", rateLimitErr.Reset).
				Msg("resend rate limit exceeded")
		}
		return fmt.Errorf("send email: %w", err)
	}

	m.log.Debug().Str("email_id", sent.Id).Str("notification_id", n.ID).Msg("notification emailed")
	return nil
}

func (m *Mailer) render(ctx context.Context, n models.Notification) (subject, body string) {
	switch n.Type {
	case models.NotificationFriendRequest:
		sender := "Someone"
		if u, err := m.users.GetUserByID(ctx, n.SenderID); err == nil {
			sender = u.Name
		}
		subject = sender + " sent you a friend request"
		body = "<p>" + html.EscapeString(sender) + " would like to be friends on Gatherly.</p>"
	case models.NotificationEventCancelled:
		subject = "An event you joined was cancelled"
		body = "<p>" + html.EscapeString(n.Message) + "</p>"
	default:
		subject = "New notification"
		body = "<p>" + html.EscapeString(n.Message) + "</p>"
	}
	return subject, body
}
