package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// Kind selects the transactional template for an outbound message.
type Kind string

const (
	// KindVerifyEmail carries the registration passcode.
	KindVerifyEmail Kind = "verify_email"
	// KindLoginCode carries the second-factor login passcode.
	KindLoginCode Kind = "login_code"
	// KindRegistrationSuccess is the post-verification welcome notice.
	KindRegistrationSuccess Kind = "registration_success"
	// KindLoginSuccess confirms a completed login.
	KindLoginSuccess Kind = "login_success"
)

var (
	errMissingRecipient = errors.New("mailer: recipient address required")
	errMissingCode      = errors.New("mailer: passcode required for code messages")
	errUnknownKind      = errors.New("mailer: unknown message kind")
)

// Message describes one transactional email to deliver.
type Message struct {
	To          string
	DisplayName string
	Kind        Kind
	Code        string
}

// Notifier delivers transactional messages. Delivery failures are the
// caller's to log; they must never gate an account state transition.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NopNotifier drops every message. Used in tests and when no mail
// provider is configured.
type NopNotifier struct {
	Logger *zap.Logger
}

// Send logs and discards the message.
func (n *NopNotifier) Send(_ context.Context, msg Message) error {
	if n.Logger != nil {
		n.Logger.Debug("mail delivery skipped",
			zap.String("kind", string(msg.Kind)),
			zap.String("to", msg.To))
	}
	return nil
}

// ResendNotifier delivers messages through the Resend REST API.
type ResendNotifier struct {
	from   string
	client *resend.Client
}

// NewResendNotifier constructs a notifier for the given sender address.
func NewResendNotifier(apiKey, from string) (*ResendNotifier, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("mailer: resend api key is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("mailer: sender address is required")
	}
	return &ResendNotifier{
		from:   from,
		client: resend.NewClient(apiKey),
	}, nil
}

// Send renders the template for the message kind and submits it.
func (n *ResendNotifier) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errMissingRecipient
	}

	subject, text, html, err := render(msg)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      []string{msg.To},
		Subject: subject,
		Text:    text,
		Html:    html,
	}

	if _, err := n.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("mailer: resend send failed: %w", err)
	}
	return nil
}

func render(msg Message) (subject, text, html string, err error) {
	name := msg.DisplayName
	if name == "" {
		name = "there"
	}

	switch msg.Kind {
	case KindVerifyEmail, KindLoginCode:
		if strings.TrimSpace(msg.Code) == "" {
			return "", "", "", errMissingCode
		}
		action := "verify your email address"
		subject = "Verify your email for HD Note Taking"
		if msg.Kind == KindLoginCode {
			action = "log in to your account"
			subject = "Your HD Note Taking login code"
		}
		text = fmt.Sprintf("Hi %s, use the code %s to %s. It expires in 10 minutes.", name, msg.Code, action)
		html = fmt.Sprintf(
			"<p>Hi <strong>%s</strong>,</p><p>Use the code below to %s. It expires in <strong>10 minutes</strong>.</p><p style=\"font-size:24px;font-weight:bold\">%s</p><p>If you did not request this, please ignore this email.</p>",
			name, action, msg.Code)
	case KindRegistrationSuccess:
		subject = "Registration successful - welcome to HD Note Taking"
		text = fmt.Sprintf("Welcome %s! You have successfully registered for HD Note Taking.", name)
		html = fmt.Sprintf(
			"<p>Welcome, <strong>%s</strong>!</p><p>You have successfully registered for HD Note Taking. You can now start creating and managing your notes.</p>",
			name)
	case KindLoginSuccess:
		subject = "Login successful - HD Note Taking"
		text = fmt.Sprintf("Hello %s, you have successfully logged in to your HD Note Taking account.", name)
		html = fmt.Sprintf(
			"<p>Hello, <strong>%s</strong>!</p><p>You have successfully logged in to your HD Note Taking account. If this was not you, please secure your account.</p>",
			name)
	default:
		return "", "", "", fmt.Errorf("%w: %q", errUnknownKind, msg.Kind)
	}

	return subject, text, html, nil
}
