package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	htmltemplate "html/template"
	"log/slog"
	"math"
	texttemplate "text/template"
	"time"

	"github.com/dmitrymomot/projectauth/pkg/auth"
	"github.com/dmitrymomot/projectauth/pkg/i18n"
	"github.com/dmitrymomot/projectauth/pkg/logger"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

//go:embed locales/*.yaml
var localeFS embed.FS

// Message tags, used by Postmark for stats and by DevSender for file names.
const (
	TagVerification = "email-verification"
	TagLoginCode    = "login-code"
)

// AuthMailer renders and sends the mail of the authentication flows.
type AuthMailer struct {
	sender EmailSender
	tr     *i18n.Translator
	html   *htmltemplate.Template
	text   *texttemplate.Template
	now    func() time.Time
	log    *slog.Logger
}

var _ auth.Mailer = (*AuthMailer)(nil)

// MailerOption configures an AuthMailer.
type MailerOption func(*AuthMailer)

// WithTranslator replaces the embedded message catalog.
func WithTranslator(tr *i18n.Translator) MailerOption {
	return func(m *AuthMailer) {
		if tr != nil {
			m.tr = tr
		}
	}
}

func WithMailerLogger(l *slog.Logger) MailerOption {
	return func(m *AuthMailer) {
		if l != nil {
			m.log = l
		}
	}
}

func WithMailerClock(now func() time.Time) MailerOption {
	return func(m *AuthMailer) {
		if now != nil {
			m.now = now
		}
	}
}

// Catalog returns the translator built from the embedded locales.
func Catalog() (*i18n.Translator, error) {
	return i18n.NewFromFS(localeFS, "locales/*.yaml")
}

// NewAuthMailer parses the embedded templates and catalog.
func NewAuthMailer(sender EmailSender, opts ...MailerOption) (*AuthMailer, error) {
	if sender == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("sender is nil"))
	}
	m := &AuthMailer{
		sender: sender,
		now:    time.Now,
		log:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.tr == nil {
		tr, err := Catalog()
		if err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
		m.tr = tr
	}

	var err error
	if m.html, err = htmltemplate.ParseFS(templateFS, "templates/*.html"); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if m.text, err = texttemplate.ParseFS(templateFS, "templates/*.txt"); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	return m, nil
}

type messageData struct {
	Lang     string
	Greeting string
	Intro    string
	Action   string
	Fallback string
	Link     string
	Code     string
	Expiry   string
	Ignore   string
}

// SendVerification mails the confirmation link. The locale comes from the
// message, then from ctx.
func (m *AuthMailer) SendVerification(ctx context.Context, msg auth.VerificationMail) error {
	lang := m.tr.Match(msg.Locale, i18n.GetLocale(ctx))
	data := m.common(lang, msg.Name, msg.ExpiresAt)
	data.Intro = m.tr.T(lang, "verification.intro")
	data.Action = m.tr.T(lang, "verification.action")
	data.Fallback = m.tr.T(lang, "verification.fallback")
	data.Link = msg.Link

	return m.send(ctx, "verification", SendEmailParams{
		SendTo:  msg.To,
		Subject: m.tr.T(lang, "verification.subject"),
		Tag:     TagVerification,
	}, data)
}

// SendLoginCode mails a one-time sign-in code.
func (m *AuthMailer) SendLoginCode(ctx context.Context, msg auth.LoginCodeMail) error {
	lang := m.tr.Match(i18n.GetLocale(ctx))
	data := m.common(lang, msg.Name, msg.ExpiresAt)
	data.Intro = m.tr.T(lang, "login_code.intro")
	data.Code = msg.Code

	return m.send(ctx, "login_code", SendEmailParams{
		SendTo:  msg.To,
		Subject: m.tr.T(lang, "login_code.subject"),
		Tag:     TagLoginCode,
	}, data)
}

func (m *AuthMailer) common(lang, name string, expiresAt time.Time) messageData {
	data := messageData{
		Lang:     lang,
		Greeting: m.tr.T(lang, "common.greeting_anonymous"),
		Ignore:   m.tr.T(lang, "common.ignore"),
	}
	if name != "" {
		data.Greeting = m.tr.T(lang, "common.greeting", "name", name)
	}
	if !expiresAt.IsZero() {
		data.Expiry = m.expiry(lang, expiresAt.Sub(m.now()))
	}
	return data
}

// expiry renders the remaining lifetime in whole hours, or minutes below
// one hour.
func (m *AuthMailer) expiry(lang string, left time.Duration) string {
	if left >= time.Hour {
		return m.tr.N(lang, "common.expires.hours", int(math.Round(left.Hours())))
	}
	return m.tr.N(lang, "common.expires.minutes", max(1, int(math.Round(left.Minutes()))))
}

func (m *AuthMailer) send(ctx context.Context, name string, params SendEmailParams, data messageData) error {
	var html, text bytes.Buffer
	if err := m.html.ExecuteTemplate(&html, name+".html", data); err != nil {
		return errors.Join(ErrRenderFailed, err)
	}
	if err := m.text.ExecuteTemplate(&text, name+".txt", data); err != nil {
		return errors.Join(ErrRenderFailed, err)
	}
	params.BodyHTML = html.String()
	params.BodyText = text.String()

	if err := m.sender.SendEmail(ctx, params); err != nil {
		m.log.ErrorContext(ctx, "failed to send email",
			logger.Component("email"),
			slog.String("tag", params.Tag),
			logger.Error(err),
		)
		return err
	}
	m.log.DebugContext(ctx, "email sent",
		logger.Component("email"),
		slog.String("tag", params.Tag),
		slog.String("lang", data.Lang),
	)
	return nil
}
