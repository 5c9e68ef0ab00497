package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/usergate/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/wneessen/go-mail"
)

// Mailer delivers password reset mail
type Mailer interface {
	SendPasswordResetOTP(ctx context.Context, to, code string, ttl time.Duration) error
	SendPasswordResetConfirmation(ctx context.Context, to string) error
}

// message is a rendered email with plain text and HTML bodies
type message struct {
	Subject string
	Text    string
	HTML    string
}

func passwordResetOTPMessage(code string, ttl time.Duration) message {
	minutes := int(ttl.Minutes())
	return message{
		Subject: fmt.Sprintf("Your password reset OTP (valid for %d min)", minutes),
		Text:    fmt.Sprintf("Your OTP for password reset is: %s\n\nIt expires in %d minutes. If you did not ask to reset your password you can ignore this email.\n", code, minutes),
		HTML:    fmt.Sprintf("<p>Your OTP for password reset is: <strong>%s</strong></p><p>It expires in %d minutes. If you did not ask to reset your password you can ignore this email.</p>", code, minutes),
	}
}

func passwordResetConfirmationMessage() message {
	return message{
		Subject: "Password reset successful",
		Text:    "Your password has been successfully reset.\n",
		HTML:    "<h1>Your password has been successfully reset.</h1>",
	}
}

// NewMailer builds the transport selected by cfg.Provider
func NewMailer(ctx context.Context, cfg *config.MailConfig, logger *slog.Logger) (Mailer, error) {
	switch cfg.Provider {
	case "ses":
		return NewSESMailer(ctx, cfg.AWSRegion, cfg.FromAddress, logger)
	case "smtp":
		return NewSMTPMailer(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}
}

// SESMailer sends mail through AWS SES
type SESMailer struct {
	client      *ses.Client
	fromAddress string
	logger      *slog.Logger
}

func NewSESMailer(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESMailer{
		client:      ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

func (m *SESMailer) SendPasswordResetOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	return m.send(ctx, to, passwordResetOTPMessage(code, ttl))
}

func (m *SESMailer) SendPasswordResetConfirmation(ctx context.Context, to string) error {
	return m.send(ctx, to, passwordResetConfirmationMessage())
}

func (m *SESMailer) send(ctx context.Context, to string, msg message) error {
	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML)},
				Text: &types.Content{Data: aws.String(msg.Text)},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}

	m.logger.Debug("email sent via SES", slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	client      *mail.Client
	fromAddress string
	logger      *slog.Logger
}

func NewSMTPMailer(cfg *config.MailConfig, logger *slog.Logger) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(cfg.SendTimeout),
	}
	if cfg.SMTPUsername != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUsername),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return &SMTPMailer{
		client:      client,
		fromAddress: cfg.FromAddress,
		logger:      logger,
	}, nil
}

func (m *SMTPMailer) SendPasswordResetOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	return m.send(ctx, to, passwordResetOTPMessage(code, ttl))
}

func (m *SMTPMailer) SendPasswordResetConfirmation(ctx context.Context, to string) error {
	return m.send(ctx, to, passwordResetConfirmationMessage())
}

func (m *SMTPMailer) send(ctx context.Context, to string, msg message) error {
	mm := mail.NewMsg()
	if err := mm.From(m.fromAddress); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := mm.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Text)
	mm.AddAlternativeString(mail.TypeTextHTML, msg.HTML)

	if err := m.client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	m.logger.Debug("email sent via SMTP")
	return nil
}
