// Package delivery sends rendered workbooks by e-mail through SendGrid.
package delivery

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"idoosync/internal/config"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrNotConfigured is returned by NewMailer when the key or addresses are
// missing
var ErrNotConfigured = errors.New("email delivery not configured")

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer delivers workbooks to a fixed recipient
type Mailer struct {
	client sender
	from   *mail.Email
	to     *mail.Email
	logger *slog.Logger
}

// NewMailer creates a SendGrid mailer from cfg
func NewMailer(cfg config.EmailConfig, logger *slog.Logger) (*Mailer, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}
	name := cfg.FromName
	if name == "" {
		name = config.AppName
	}
	return &Mailer{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   mail.NewEmail(name, cfg.FromAddress),
		to:     mail.NewEmail("", cfg.ToAddress),
		logger: logger,
	}, nil
}

// Send mails the workbook at path with the given subject
func (m *Mailer) Send(ctx context.Context, subject, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read attachment: %w", err)
	}

	name := filepath.Base(path)
	body := fmt.Sprintf("Attached: %s", name)
	message := mail.NewSingleEmail(m.from, subject, m.to, body, fmt.Sprintf("<p>%s</p>", body))

	attachment := mail.NewAttachment()
	attachment.SetContent(base64.StdEncoding.EncodeToString(data))
	attachment.SetType(xlsxMIME)
	attachment.SetFilename(name)
	attachment.SetDisposition("attachment")
	message.AddAttachment(attachment)

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}

	m.logger.InfoContext(ctx, "Workbook mailed",
		slog.Int("status", response.StatusCode),
		slog.String("subject", subject),
		slog.String("attachment", name))
	return nil
}
