// Package channels implements the email, SMS, and voice delivery adapters.
// Each renders the same slot list into its own message shape.
package channels

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caniken03/vioconcierge/internal/notification/domain"
	"github.com/wneessen/go-mail"
)

// SMTPConfig configures the email adapter.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	LinkBase string // base URL for the response link
}

// EmailAdapter delivers slot offers as plain-text email over SMTP.
type EmailAdapter struct {
	client   *mail.Client
	from     string
	linkBase string
	logger   *slog.Logger
}

// NewEmailAdapter creates an SMTP-backed email adapter.
func NewEmailAdapter(config SMTPConfig, logger *slog.Logger) (*EmailAdapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := mail.NewClient(config.Host,
		mail.WithPort(config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(config.Username),
		mail.WithPassword(config.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return &EmailAdapter{
		client:   client,
		from:     config.From,
		linkBase: config.LinkBase,
		logger:   logger,
	}, nil
}

// Channel implements domain.Adapter.
func (a *EmailAdapter) Channel() domain.Channel {
	return domain.ChannelEmail
}

// Send renders the offer as full prose and delivers it.
func (a *EmailAdapter) Send(ctx context.Context, recipient domain.Recipient, offer domain.SlotOffer) (domain.Delivery, error) {
	if recipient.Email == "" {
		return domain.Delivery{}, fmt.Errorf("%w: recipient has no email address", domain.ErrChannelUnavailable)
	}

	msg := mail.NewMsg()
	if err := msg.From(a.from); err != nil {
		return domain.Delivery{}, fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(recipient.Email); err != nil {
		return domain.Delivery{}, fmt.Errorf("set recipient: %w", err)
	}

	subject := "Reschedule your appointment"
	if offer.Reminder {
		subject = "Reminder: reschedule your appointment"
	}
	msg.Subject(subject)
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, renderEmailBody(recipient, offer, a.linkBase))

	if err := a.client.DialAndSendWithContext(ctx, msg); err != nil {
		return domain.Delivery{}, fmt.Errorf("%w: %v", domain.ErrChannelUnavailable, err)
	}
	return domain.Delivery{Delivered: true, ExternalID: msg.GetMessageID()}, nil
}

func renderEmailBody(recipient domain.Recipient, offer domain.SlotOffer, linkBase string) string {
	var b strings.Builder

	name := recipient.Name
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	if offer.Reminder {
		b.WriteString("Just a reminder that your appointment still needs a new time.\n\n")
	}
	fmt.Fprintf(&b, "Your appointment with %s", businessOr(offer.BusinessName))
	if !offer.OriginalTime.IsZero() {
		fmt.Fprintf(&b, " originally scheduled for %s", offer.OriginalTime.Format("Monday, January 2 at 3:04 PM"))
	}
	b.WriteString(" needs to be rescheduled. Here are the available times:\n\n")

	for i, slot := range offer.Slots {
		fmt.Fprintf(&b, "  %d. %s (%d minutes)\n", i+1,
			slot.StartTime.Format("Monday, January 2 at 3:04 PM"), slot.DurationMinutes)
	}

	b.WriteString("\nPick a time using the link below, or let us know none of these work:\n")
	fmt.Fprintf(&b, "%s/respond?token=%s\n", strings.TrimRight(linkBase, "/"), offer.Token)
	fmt.Fprintf(&b, "\nThis link expires in %d hours.\n", expiryHours(offer.TokenTTL))
	return b.String()
}

func expiryHours(ttl time.Duration) int {
	hours := int(ttl.Hours())
	if hours <= 0 {
		hours = 24
	}
	return hours
}

func businessOr(name string) string {
	if name == "" {
		return "your provider"
	}
	return name
}
