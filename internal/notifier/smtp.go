// Package notifier delivers rendered reports by email.
package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/budget-report/internal/logger"
	"github.com/dvloznov/budget-report/internal/report"
	"github.com/wneessen/go-mail"
)

// ErrNoDocument is returned when there is nothing to attach.
var ErrNoDocument = errors.New("no document to send")

// Sender transmits composed messages. *mail.Client implements it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// RequireTLS refuses relays that do not offer STARTTLS.
	RequireTLS bool
	Timeout    time.Duration
}

// SMTPNotifier implements report.Notifier over SMTP.
type SMTPNotifier struct {
	sender Sender
	from   string
	now    func() time.Time
}

// NewSMTPNotifier creates a go-mail client for cfg.
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("NewSMTPNotifier: host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("NewSMTPNotifier: from address is required")
	}

	policy := mail.TLSOpportunistic
	if cfg.RequireTLS {
		policy = mail.TLSMandatory
	}
	opts := []mail.Option{mail.WithTLSPolicy(policy)}
	if cfg.Port != 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewSMTPNotifier: create client: %w", err)
	}
	return NewSMTPNotifierWithSender(client, cfg.From), nil
}

// NewSMTPNotifierWithSender creates a notifier on top of an existing sender.
func NewSMTPNotifierWithSender(sender Sender, from string) *SMTPNotifier {
	return &SMTPNotifier{sender: sender, from: from, now: time.Now}
}

// Send mails doc to recipient as an attachment.
func (n *SMTPNotifier) Send(ctx context.Context, recipient report.Recipient, subject string, doc *report.Document) (*report.DeliveryReceipt, error) {
	msg, err := n.Compose(recipient, subject, doc)
	if err != nil {
		return nil, err
	}

	if err := n.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return nil, fmt.Errorf("Send: deliver to %s: %w", recipient, err)
	}

	receipt := &report.DeliveryReceipt{
		Recipient: recipient,
		Subject:   subject,
		MessageID: messageID(msg),
		Document:  doc.Filename,
		SentAt:    n.now(),
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("recipient", string(recipient)).
		Str("message_id", receipt.MessageID).
		Msg("Report delivered")

	return receipt, nil
}

// Compose builds the message without sending it.
func (n *SMTPNotifier) Compose(recipient report.Recipient, subject string, doc *report.Document) (*mail.Msg, error) {
	if doc == nil || len(doc.Data) == 0 {
		return nil, fmt.Errorf("Send: %w", ErrNoDocument)
	}

	plain, html, err := body(doc)
	if err != nil {
		return nil, fmt.Errorf("Send: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, fmt.Errorf("Send: set from: %w", err)
	}
	if err := msg.To(string(recipient)); err != nil {
		return nil, fmt.Errorf("Send: set recipient %q: %w", recipient, err)
	}
	msg.Subject(subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, plain)
	msg.AddAlternativeString(mail.TypeTextHTML, html)

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := msg.AttachReader(doc.Filename, bytes.NewReader(doc.Data),
		mail.WithFileContentType(mail.ContentType(contentType))); err != nil {
		return nil, fmt.Errorf("Send: attach %s: %w", doc.Filename, err)
	}

	return msg, nil
}

func messageID(msg *mail.Msg) string {
	ids := msg.GetGenHeader(mail.HeaderMessageID)
	if len(ids) == 0 {
		return ""
	}
	return strings.Trim(ids[0], "<>")
}

var _ report.Notifier = (*SMTPNotifier)(nil)
