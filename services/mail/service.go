package mail

import (
	"bytes"
	"fmt"
	htmlTemplate "html/template"
	"path/filepath"
	"strings"
	textTemplate "text/template"
	"time"

	"github.com/harborchat/harborchat/config"
	"github.com/harborchat/harborchat/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// MailClient abstracts the SMTP transport so tests can inject a fake.
type MailClient interface {
	DialAndSend(messages ...*mail.Msg) error
}

type GoMailClient struct {
	client *mail.Client
}

func (c *GoMailClient) DialAndSend(messages ...*mail.Msg) error {
	return c.client.DialAndSend(messages...)
}

type Service struct {
	config        *config.MailConfig
	client        MailClient
	htmlTemplates *htmlTemplate.Template
	textTemplates *textTemplate.Template
	logger        *logging.Service
}

type TemplateData map[string]any

func NewService(cfg *config.MailConfig, logger *logging.Service) (*Service, error) {
	clientOpts := []mail.Option{
		mail.WithPort(cfg.Port),
	}

	switch cfg.Encryption {
	case "tls", "starttls":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if cfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}

	client, err := mail.NewClient(cfg.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	return NewServiceWithClient(cfg, logger, &GoMailClient{client: client})
}

func NewServiceWithClient(cfg *config.MailConfig, logger *logging.Service, client MailClient) (*Service, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	service := &Service{
		config: cfg,
		client: client,
		logger: logger,
	}

	if err := service.loadTemplates(); err != nil {
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	if logger != nil {
		logger.Info("mail service initialized",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("from_address", cfg.FromAddress))
	}
	return service, nil
}

func (s *Service) loadTemplates() error {
	if s.config.TemplatesDir == "" {
		return nil
	}

	htmlPattern := filepath.Join(s.config.TemplatesDir, "*.html")
	textPattern := filepath.Join(s.config.TemplatesDir, "*.txt")

	var err error
	s.htmlTemplates, err = htmlTemplate.ParseGlob(htmlPattern)
	if err != nil && !isNoFilesErr(err) {
		return fmt.Errorf("failed to parse HTML templates: %w", err)
	}

	s.textTemplates, err = textTemplate.ParseGlob(textPattern)
	if err != nil && !isNoFilesErr(err) {
		return fmt.Errorf("failed to parse text templates: %w", err)
	}

	return nil
}

// isNoFilesErr reports whether err is ParseGlob's empty-match error. An
// absent or empty templates directory is fine; senders fall back to
// plain-body messages.
func isNoFilesErr(err error) bool {
	return strings.Contains(err.Error(), "pattern matches no files")
}

// NewMessage builds a message with the configured FROM address. A
// non-empty fromName overrides the configured display name, so security
// notifications can present a distinct sender.
func (s *Service) NewMessage(fromName string) *mail.Msg {
	message := mail.NewMsg()

	name := s.config.FromName
	if fromName != "" {
		name = fromName
	}

	fromAddr := s.config.FromAddress
	if name != "" {
		fromAddr = fmt.Sprintf("%s <%s>", name, s.config.FromAddress)
	}

	if err := message.From(fromAddr); err != nil {
		panic(fmt.Sprintf("failed to set FROM address: %s", err))
	}

	return message
}

func (s *Service) Send(message *mail.Msg) error {
	startTime := time.Now()
	err := s.client.DialAndSend(message)
	duration := time.Since(startTime)

	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to send email",
				zap.Error(err),
				zap.Duration("attempt_duration", duration))
		}
		return err
	}

	if s.logger != nil {
		s.logger.Info("email sent", zap.Duration("send_duration", duration))
	}
	return nil
}

func (s *Service) SendTemplate(templateName string, to []string, subject string, data map[string]any) error {
	return s.SendTemplateFrom("", templateName, to, subject, data)
}

func (s *Service) SendTemplateFrom(fromName, templateName string, to []string, subject string, data map[string]any) error {
	if s.logger != nil {
		s.logger.Info("sending template email",
			zap.String("template", templateName),
			zap.Strings("recipients", to),
			zap.String("subject", subject))
	}

	message := s.NewMessage(fromName)

	if err := message.To(to...); err != nil {
		return fmt.Errorf("failed to set TO addresses: %w", err)
	}

	message.Subject(subject)

	if err := s.renderTemplate(templateName, data, message); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	return s.Send(message)
}

func (s *Service) renderTemplate(templateName string, data map[string]any, message *mail.Msg) error {
	var hasTemplate bool

	if s.htmlTemplates != nil {
		tmpl := s.htmlTemplates.Lookup(templateName + ".html")
		if tmpl != nil {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return fmt.Errorf("failed to execute HTML template: %w", err)
			}
			message.SetBodyString(mail.TypeTextHTML, buf.String())
			hasTemplate = true
		}
	}

	if s.textTemplates != nil {
		tmpl := s.textTemplates.Lookup(templateName + ".txt")
		if tmpl != nil {
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, data); err != nil {
				return fmt.Errorf("failed to execute text template: %w", err)
			}
			if hasTemplate {
				message.AddAlternativeString(mail.TypeTextPlain, buf.String())
			} else {
				message.SetBodyString(mail.TypeTextPlain, buf.String())
			}
			hasTemplate = true
		}
	}

	if !hasTemplate {
		return fmt.Errorf("template '%s' not found", templateName)
	}

	return nil
}

func (s *Service) SendPlain(to []string, subject, body string) error {
	message := s.NewMessage("")

	if err := message.To(to...); err != nil {
		return fmt.Errorf("failed to set TO addresses: %w", err)
	}

	message.Subject(subject)
	message.SetBodyString(mail.TypeTextPlain, body)

	return s.Send(message)
}
