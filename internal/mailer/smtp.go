package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/mail.v2"
)

type dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPMailer renders the embedded templates and delivers them over SMTP.
type SMTPMailer struct {
	fromEmail string
	dialer    dialer
	backoff   time.Duration
}

func NewSMTPMailer(host string, port int, username, password, fromEmail string) (*SMTPMailer, error) {
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	if fromEmail == "" {
		return nil, errors.New("from email is required")
	}

	d := mail.NewDialer(host, port, username, password)
	d.Timeout = 10 * time.Second
	return &SMTPMailer{fromEmail: fromEmail, dialer: d, backoff: time.Second}, nil
}

// render executes the "subject", "plainBody" and "htmlBody" blocks of tmpl.
func render(templateFile string, data any) (subject, plain, html string, err error) {
	tmpl, err := template.ParseFS(FS, "templates/"+templateFile)
	if err != nil {
		return "", "", "", err
	}

	var buf bytes.Buffer
	for _, part := range []struct {
		name string
		dst  *string
	}{
		{"subject", &subject},
		{"plainBody", &plain},
		{"htmlBody", &html},
	} {
		buf.Reset()
		if err := tmpl.ExecuteTemplate(&buf, part.name, data); err != nil {
			return "", "", "", err
		}
		*part.dst = buf.String()
	}
	return subject, plain, html, nil
}

func (m *SMTPMailer) Send(templateFile, username, email string, data any) error {
	subject, plain, html, err := render(templateFile, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", templateFile, err)
	}

	msg := mail.NewMessage()
	msg.SetAddressHeader("From", m.fromEmail, FromName)
	msg.SetAddressHeader("To", email, username)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plain)
	msg.AddAlternative("text/html", html)

	var lastErr error
	for i := 0; i < maxRetires; i++ {
		if lastErr = m.dialer.DialAndSend(msg); lastErr == nil {
			return nil
		}
		// exponential backoff
		time.Sleep(m.backoff * time.Duration(1<<i))
	}
	return fmt.Errorf("failed to send email after %d attempts, error: %v", maxRetires, lastErr)
}
