package delivery

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idoosync/internal/config"
	"idoosync/internal/shared/testutil"
)

type fakeSender struct {
	sent     []*mail.SGMailV3
	response *rest.Response
	err      error
}

func (f *fakeSender) SendWithContext(_ context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	return f.response, f.err
}

func validConfig() config.EmailConfig {
	return config.EmailConfig{
		SendGridAPIKey: "SG.test",
		FromAddress:    "bot@example.com",
		ToAddress:      "orders@example.com",
	}
}

func newTestMailer(t *testing.T, client *fakeSender) *Mailer {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	m, err := NewMailer(validConfig(), logger)
	require.NoError(t, err)
	m.client = client
	return m
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "IDOO-IOTSTORE-10-16-2026.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("xlsx-bytes"), 0644))
	return path
}

func TestNewMailerRequiresConfig(t *testing.T) {
	cfg := validConfig()
	cfg.SendGridAPIKey = ""
	_, err := NewMailer(cfg, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)

	m, err := NewMailer(validConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, config.AppName, m.from.Name)
}

func TestSendAttachesWorkbook(t *testing.T) {
	client := &fakeSender{response: &rest.Response{StatusCode: 202}}
	m := newTestMailer(t, client)
	path := writeWorkbook(t)

	require.NoError(t, m.Send(context.Background(), "INVENTORY - IOTSTORE - 10-16-2026", path))
	require.Len(t, client.sent, 1)

	msg := client.sent[0]
	assert.Equal(t, "INVENTORY - IOTSTORE - 10-16-2026", msg.Subject)
	assert.Equal(t, "bot@example.com", msg.From.Address)
	require.Len(t, msg.Personalizations, 1)
	assert.Equal(t, "orders@example.com", msg.Personalizations[0].To[0].Address)

	require.Len(t, msg.Attachments, 1)
	att := msg.Attachments[0]
	assert.Equal(t, "IDOO-IOTSTORE-10-16-2026.xlsx", att.Filename)
	assert.Equal(t, xlsxMIME, att.Type)
	assert.Equal(t, "attachment", att.Disposition)
	decoded, err := base64.StdEncoding.DecodeString(att.Content)
	require.NoError(t, err)
	assert.Equal(t, "xlsx-bytes", string(decoded))
}

func TestSendFailures(t *testing.T) {
	path := writeWorkbook(t)

	t.Run("error status", func(t *testing.T) {
		m := newTestMailer(t, &fakeSender{response: &rest.Response{StatusCode: 401, Body: "unauthorized"}})
		err := m.Send(context.Background(), "s", path)
		assert.ErrorContains(t, err, "status=401")
	})

	t.Run("transport error", func(t *testing.T) {
		boom := errors.New("dial tcp: timeout")
		m := newTestMailer(t, &fakeSender{err: boom})
		assert.ErrorIs(t, m.Send(context.Background(), "s", path), boom)
	})

	t.Run("missing attachment", func(t *testing.T) {
		client := &fakeSender{response: &rest.Response{StatusCode: 202}}
		m := newTestMailer(t, client)
		err := m.Send(context.Background(), "s", filepath.Join(t.TempDir(), "absent.xlsx"))
		assert.ErrorIs(t, err, os.ErrNotExist)
		assert.Empty(t, client.sent)
	})
}
