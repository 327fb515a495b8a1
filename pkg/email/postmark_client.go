package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// postmarkAPI is the part of *postmark.Client the sender calls.
type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

type postmarkClient struct {
	api     postmarkAPI
	from    string
	replyTo string
}

// NewPostmarkClient returns a sender over Postmark's transactional API.
// Both tokens and valid sender and support addresses are required.
func NewPostmarkClient(cfg Config) (EmailSender, error) {
	if err := cfg.validatePostmark(); err != nil {
		return nil, err
	}
	return newPostmarkSender(postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken), cfg), nil
}

func newPostmarkSender(api postmarkAPI, cfg Config) *postmarkClient {
	return &postmarkClient{api: api, from: cfg.SenderEmail, replyTo: cfg.SupportEmail}
}

func (cfg Config) validatePostmark() error {
	required := []struct{ name, value string }{
		{"PostmarkServerToken", cfg.PostmarkServerToken},
		{"PostmarkAccountToken", cfg.PostmarkAccountToken},
		{"SenderEmail", cfg.SenderEmail},
		{"SupportEmail", cfg.SupportEmail},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidConfig, f.name)
		}
	}
	for _, f := range required[2:] {
		if !emailRegex.MatchString(f.value) {
			return fmt.Errorf("%w: %s must be a valid email address", ErrInvalidConfig, f.name)
		}
	}
	return nil
}

// SendEmail delivers params with open and link tracking off, since
// verification links carry credentials.
func (c *postmarkClient) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := c.api.SendEmail(ctx, postmark.Email{
		From:       c.from,
		ReplyTo:    c.replyTo,
		To:         params.SendTo,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TextBody:   params.BodyText,
		TrackOpens: false,
		TrackLinks: "None",
	})
	switch {
	case err != nil:
		return errors.Join(ErrFailedToSendEmail, err)
	case resp.ErrorCode != 0:
		return fmt.Errorf("%w: postmark error %d: %s", ErrFailedToSendEmail, resp.ErrorCode, resp.Message)
	}
	return nil
}
