package email_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/projectauth/pkg/email"
)

// MockEmailSender is a mock implementation of EmailSender for testing
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendEmail(ctx context.Context, params email.SendEmailParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func validParams() email.SendEmailParams {
	return email.SendEmailParams{
		SendTo:   "user@example.com",
		Subject:  "Test Subject",
		BodyHTML: "<p>Test body</p>",
		Tag:      "test",
	}
}

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *email.SendEmailParams)
		errMsg string
	}{
		{name: "valid", mutate: func(*email.SendEmailParams) {}},
		{name: "without tag", mutate: func(p *email.SendEmailParams) { p.Tag = "" }},
		{name: "empty recipient", mutate: func(p *email.SendEmailParams) { p.SendTo = " " }, errMsg: "recipient is required"},
		{name: "bad recipient", mutate: func(p *email.SendEmailParams) { p.SendTo = "nope" }, errMsg: "valid email"},
		{name: "empty subject", mutate: func(p *email.SendEmailParams) { p.Subject = "" }, errMsg: "subject is required"},
		{name: "empty body", mutate: func(p *email.SendEmailParams) { p.BodyHTML = "" }, errMsg: "body is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := validParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, email.ErrInvalidParams)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewSender(t *testing.T) {
	t.Parallel()

	t.Run("log driver by default", func(t *testing.T) {
		t.Parallel()
		s, err := email.NewSender(email.Config{}, nil)
		require.NoError(t, err)
		assert.IsType(t, &email.LogSender{}, s)
	})

	t.Run("dev driver", func(t *testing.T) {
		t.Parallel()
		s, err := email.NewSender(email.Config{Driver: email.DriverDev, DevOutputDir: t.TempDir()}, nil)
		require.NoError(t, err)
		assert.IsType(t, &email.DevSender{}, s)
	})

	t.Run("postmark driver validates config", func(t *testing.T) {
		t.Parallel()
		_, err := email.NewSender(email.Config{Driver: email.DriverPostmark}, nil)
		require.ErrorIs(t, err, email.ErrInvalidConfig)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()
		_, err := email.NewSender(email.Config{Driver: "pigeon"}, nil)
		require.ErrorIs(t, err, email.ErrInvalidConfig)
	})
}

func TestLogSender(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	s := email.NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, s.SendEmail(context.Background(), validParams()))
	assert.Contains(t, buf.String(), `"subject":"Test Subject"`)
	assert.NotContains(t, buf.String(), "user@example.com", "recipient is masked")

	err := s.SendEmail(context.Background(), email.SendEmailParams{})
	require.ErrorIs(t, err, email.ErrInvalidParams)
}
