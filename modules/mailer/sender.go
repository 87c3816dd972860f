package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

// Sender delivers a single email message.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// SMTPSender sends email through an SMTP server using gomail.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPSender creates a new SMTPSender.
func NewSMTPSender(host string, port int, username, password, from string) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

// Send delivers an HTML email.
func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<html>
<body>
  <p>Hi {{.Username}},</p>
  <p>Thanks for signing up. Please confirm your email address by clicking the link below:</p>
  <p><a href="{{.ConfirmURL}}">Confirm your email</a></p>
  <p>The link expires in 7 days. If you did not create an account, you can ignore this message.</p>
</body>
</html>`))

// RenderConfirmationEmail builds the HTML body of a confirmation email.
func RenderConfirmationEmail(username, confirmURL string) (string, error) {
	var buf bytes.Buffer
	err := confirmationTemplate.Execute(&buf, map[string]string{
		"Username":   username,
		"ConfirmURL": confirmURL,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render confirmation email: %w", err)
	}
	return buf.String(), nil
}
