// Package mailer renders notification templates and hands them to an SMTP
// relay.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
	"vance/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*
var templateFS embed.FS

var (
	pinHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/pin.html"))
	pinText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/pin.txt"))
)

// PinMessage is the password recovery mail.
type PinMessage struct {
	To        string
	Name      string
	Pin       string
	ExpiresIn time.Duration
}

type Sender interface {
	SendPin(ctx context.Context, msg PinMessage) error
}

type SMTPMailer struct {
	client  *mail.Client
	from    string
	subject string
	timeout time.Duration
}

// New returns an SMTP backed Sender, or a Sender that drops mail when no
// SMTP host is configured.
func New(cfg config.MailConfig) (Sender, error) {
	if cfg.Host == "" {
		logrus.Warn("SMTP host not configured, outgoing mail is disabled")
		return disabledSender{}, nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
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
		return nil, fmt.Errorf("error creating mail client: %w", err)
	}

	return &SMTPMailer{
		client:  client,
		from:    cfg.From,
		subject: cfg.Subject,
		timeout: cfg.Timeout,
	}, nil
}

func (m *SMTPMailer) SendPin(ctx context.Context, msg PinMessage) error {
	message, err := buildPinMessage(m.from, m.subject, msg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.client.DialAndSendWithContext(ctx, message); err != nil {
		return fmt.Errorf("error sending pin mail: %w", err)
	}
	logrus.WithField("to", msg.To).Info("pin mail sent")
	return nil
}

func buildPinMessage(from, subject string, msg PinMessage) (*mail.Msg, error) {
	html, text, err := RenderPin(msg)
	if err != nil {
		return nil, err
	}

	message := mail.NewMsg()
	if err := message.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	if err := message.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	message.Subject(subject)
	message.SetBodyString(mail.TypeTextPlain, text)
	message.AddAlternativeString(mail.TypeTextHTML, html)
	return message, nil
}

// RenderPin renders the HTML and plain text bodies of the PIN mail.
func RenderPin(msg PinMessage) (html string, text string, err error) {
	data := struct {
		Name             string
		Pin              string
		ExpiresInMinutes int
	}{
		Name:             msg.Name,
		Pin:              msg.Pin,
		ExpiresInMinutes: int(msg.ExpiresIn.Minutes()),
	}

	var htmlBuf, textBuf bytes.Buffer
	if err := pinHTML.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("error rendering pin mail: %w", err)
	}
	if err := pinText.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("error rendering pin mail: %w", err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}

type disabledSender struct{}

func (disabledSender) SendPin(_ context.Context, msg PinMessage) error {
	logrus.WithField("to", msg.To).Warn("mail delivery disabled, pin mail dropped")
	return nil
}
