package service

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/gomail.v2"
)

// Mailer sends a rendered notification email. Implementations must be safe
// for concurrent use.
type Mailer interface {
	Send(to, subject, templateName string, context map[string]interface{}) error
}

// EmailService delivers notification emails over SMTP using HTML templates
// loaded from disk per send, so template edits need no restart.
type EmailService struct {
	dialer       *gomail.Dialer
	fromName     string
	fromAddress  string
	templatesDir string
}

func NewEmailServiceFromEnv() (*EmailService, error) {
	host := os.Getenv("MAIL_HOST")
	if host == "" {
		return nil, errors.New("MAIL_HOST is required")
	}
	port := 587
	if p := os.Getenv("MAIL_PORT"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid MAIL_PORT: %w", err)
		}
		port = parsed
	}

	dialer := gomail.NewDialer(host, port, os.Getenv("MAIL_USERNAME"), os.Getenv("MAIL_PASSWORD"))
	dialer.SSL = os.Getenv("MAIL_ENCRYPTION") == "ssl"

	fromAddress := os.Getenv("MAIL_FROM_ADDRESS")
	if fromAddress == "" {
		return nil, errors.New("MAIL_FROM_ADDRESS is required")
	}
	fromName := os.Getenv("MAIL_FROM_NAME")
	if fromName == "" {
		fromName = "ERP Elite"
	}

	templatesDir := os.Getenv("EMAIL_TEMPLATES_DIR")
	if templatesDir == "" {
		templatesDir = "templates/emails"
	}

	return &EmailService{
		dialer:       dialer,
		fromName:     fromName,
		fromAddress:  fromAddress,
		templatesDir: templatesDir,
	}, nil
}

// Send renders the named template with context and delivers it. A missing
// template falls back to the generic notification template; if that is also
// missing the send is skipped with a log line, matching the best-effort
// contract of the notification pipeline.
func (s *EmailService) Send(to, subject, templateName string, context map[string]interface{}) error {
	html, err := s.render(templateName, context)
	if err != nil {
		if templateName != "notification" {
			log.Printf("Email template %q unavailable (%v), falling back to notification", templateName, err)
			html, err = s.render("notification", context)
		}
		if err != nil {
			log.Printf("No usable email template for %q: %v", templateName, err)
			return nil
		}
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.fromAddress, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	log.Printf("Email sent to %s (template=%s)", to, templateName)
	return nil
}

func (s *EmailService) render(templateName string, context map[string]interface{}) (string, error) {
	path := filepath.Join(s.templatesDir, filepath.Clean(templateName)+".html")
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return "", err
	}
	return buf.String(), nil
}
