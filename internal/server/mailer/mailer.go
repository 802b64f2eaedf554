// Package mailer sends the account emails (activation and password reset)
// through an SMTP relay.
package mailer

import (
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/dmitrijs2005/questkeeper/internal/server/config"
	"github.com/wneessen/go-mail"
)

//go:embed templates/*.html
var templateFS embed.FS

var subjects = map[string]string{
	"activation": "Активация аккаунта",
	"reset":      "Сброс пароля",
}

// SendFunc delivers a composed message.
type SendFunc func(ctx context.Context, msg *mail.Msg) error

// SMTPNotifier renders an embedded HTML template per notification kind and
// sends it from the configured sender address.
type SMTPNotifier struct {
	cfg       config.MailConfig
	templates *template.Template
	send      SendFunc
}

// NewSMTPNotifier returns a notifier that dials cfg.Host for every message.
func NewSMTPNotifier(cfg config.MailConfig) (*SMTPNotifier, error) {
	n, err := newNotifier(cfg, nil)
	if err != nil {
		return nil, err
	}
	n.send = n.dialAndSend
	return n, nil
}

// NewNotifierWithSender is like NewSMTPNotifier but hands composed messages
// to send instead of an SMTP server.
func NewNotifierWithSender(cfg config.MailConfig, send SendFunc) (*SMTPNotifier, error) {
	return newNotifier(cfg, send)
}

func newNotifier(cfg config.MailConfig, send SendFunc) (*SMTPNotifier, error) {
	tpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	return &SMTPNotifier{cfg: cfg, templates: tpl, send: send}, nil
}

// Notify renders template name with vars and sends it to the given address.
func (n *SMTPNotifier) Notify(ctx context.Context, to, name string, vars map[string]any) error {
	msg, err := n.Compose(to, name, vars)
	if err != nil {
		return err
	}
	if err := n.send(ctx, msg); err != nil {
		return fmt.Errorf("send %s mail: %w", name, err)
	}
	return nil
}

// Compose builds the message without sending it.
func (n *SMTPNotifier) Compose(to, name string, vars map[string]any) (*mail.Msg, error) {
	subject, ok := subjects[name]
	if !ok {
		return nil, fmt.Errorf("unknown mail template %q", name)
	}
	tpl := n.templates.Lookup(name + ".html")
	if tpl == nil {
		return nil, fmt.Errorf("mail template %q not found", name)
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(n.cfg.FromName, n.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	if err := msg.SetBodyHTMLTemplate(tpl, vars); err != nil {
		return nil, fmt.Errorf("render %s mail: %w", name, err)
	}
	return msg, nil
}

func (n *SMTPNotifier) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{mail.WithPort(n.cfg.Port)}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}
	if n.cfg.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
